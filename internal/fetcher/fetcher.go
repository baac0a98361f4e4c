// Package fetcher downloads a resolved stream into one contiguous byte
// buffer. Segmented (playlist) streams are reassembled transparently in
// document order; reassembly is all-or-nothing from the caller's point of
// view, but individual segment failures are skipped best-effort and reported
// in the skipped count.
package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/user/tunefetch/internal/httpx"
	"github.com/user/tunefetch/internal/types"
)

const (
	// MinAudioBytes guards against providers returning an error page or
	// silence stub with a 200 status.
	MinAudioBytes = 100 * 1024

	// fetchCeiling bounds one whole fetch operation, playlist and all
	// segments included.
	fetchCeiling = 300 * time.Second

	segmentTimeout = 30 * time.Second
)

// segmentExtensions are the recognized audio-segment file extensions inside
// playlist documents.
var segmentExtensions = []string{".mp3", ".m4a", ".aac", ".ts", ".ogg", ".opus", ".wav"}

// Fetcher retrieves audio bytes over HTTP.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher. The per-operation ceiling is enforced via context,
// so the underlying client carries no timeout of its own.
func New() *Fetcher {
	return &Fetcher{client: httpx.NewClient(0)}
}

// Fetch downloads the stream and returns the audio bytes, the number of
// segments fetched, and the number of playlist segments skipped. Any failure
// mode (sub-threshold payload, empty segment list, timeout) surfaces as
// ErrDownloadFailed; no partial buffer is ever returned.
func (f *Fetcher) Fetch(ctx context.Context, stream *types.ResolvedStream) ([]byte, int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchCeiling)
	defer cancel()

	if stream.Segmented || IsPlaylistURL(stream.URL) {
		return f.fetchPlaylist(ctx, stream.URL)
	}
	data, err := f.fetchSingle(ctx, stream.URL)
	if err != nil {
		return nil, 0, 0, err
	}
	return data, 1, 0, nil
}

func (f *Fetcher) fetchSingle(ctx context.Context, streamURL string) ([]byte, error) {
	data, err := f.get(ctx, streamURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDownloadFailed, err)
	}
	if len(data) < MinAudioBytes {
		return nil, fmt.Errorf("%w: payload too small (%d bytes)", types.ErrDownloadFailed, len(data))
	}
	return data, nil
}

func (f *Fetcher) fetchPlaylist(ctx context.Context, playlistURL string) ([]byte, int, int, error) {
	doc, err := f.get(ctx, playlistURL)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: playlist: %v", types.ErrDownloadFailed, err)
	}

	segments := ExtractSegmentURLs(string(doc))
	if len(segments) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: playlist contains no segments", types.ErrDownloadFailed)
	}

	// Sequential on purpose: playback order equals document order, and
	// correctness beats throughput here.
	var buf bytes.Buffer
	fetched, skipped := 0, 0
	for i, segURL := range segments {
		data, err := f.getSegment(ctx, segURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, 0, fmt.Errorf("%w: %v", types.ErrDownloadFailed, ctx.Err())
			}
			slog.Warn("segment skipped", "index", i, "url", segURL, "error", err)
			skipped++
			continue
		}
		buf.Write(data)
		fetched++
	}

	if buf.Len() < MinAudioBytes {
		return nil, 0, 0, fmt.Errorf("%w: reassembled payload too small (%d bytes, %d/%d segments)",
			types.ErrDownloadFailed, buf.Len(), fetched, len(segments))
	}
	return buf.Bytes(), fetched, skipped, nil
}

func (f *Fetcher) getSegment(ctx context.Context, segURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, segmentTimeout)
	defer cancel()
	return f.get(ctx, segURL)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", httpx.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// IsPlaylistURL reports whether the URL points at a streaming-playlist
// document rather than a single audio file.
func IsPlaylistURL(rawURL string) bool {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.HasSuffix(strings.ToLower(trimmed), ".m3u8")
}

// ExtractSegmentURLs returns every absolute segment URL in the playlist
// document, preserving document order. Document order is playback order and
// must never be reshuffled.
func ExtractSegmentURLs(doc string) []string {
	var urls []string
	scanner := bufio.NewScanner(strings.NewReader(doc))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			continue
		}
		if isSegmentURL(line) {
			urls = append(urls, line)
		}
	}
	return urls
}

func isSegmentURL(rawURL string) bool {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	lower := strings.ToLower(trimmed)
	for _, ext := range segmentExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
