// Package catalog is the HTTP client for the media catalog provider. All
// endpoints are plain GETs authenticated by an API key query parameter;
// responses are JSON except playlist documents and audio bodies.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/tunefetch/internal/httpx"
	"github.com/user/tunefetch/internal/types"
)

const (
	// DefaultBaseURL is the current (v2) catalog API.
	DefaultBaseURL = "https://api-v2.sndcatalog.com"
	// DefaultLegacyBaseURL is the legacy API used as the resolution fallback.
	DefaultLegacyBaseURL = "https://api.sndcatalog.com"

	requestTimeout = 15 * time.Second
)

// Protocol tags on a track's available encodings.
const (
	ProtocolProgressive = "progressive"
	ProtocolHLS         = "hls"
)

// Client is the catalog provider API client. Outbound calls are paced by a
// rate limiter so a burst of page-building searches cannot trip provider
// throttling.
type Client struct {
	apiKey     string
	baseURL    string
	legacyURL  string
	client     *http.Client
	noRedirect *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the v2 API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLegacyBaseURL overrides the legacy API base URL.
func WithLegacyBaseURL(u string) Option {
	return func(c *Client) { c.legacyURL = u }
}

// WithRateLimit overrides the outbound requests-per-second pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// New creates a catalog client. An empty apiKey is allowed at construction;
// every call will then fail with ErrConfigMissing instead of crashing the
// process.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		legacyURL:  DefaultLegacyBaseURL,
		client:     httpx.NewClient(requestTimeout),
		noRedirect: httpx.NewNoRedirectClient(requestTimeout),
		limiter:    rate.NewLimiter(rate.Limit(8), 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Transcoding is one available encoding of a track. The URL is an
// indirection token: a second request materializes the actual stream URL.
type Transcoding struct {
	URL    string `json:"url"`
	Format struct {
		Protocol string `json:"protocol"`
		MimeType string `json:"mime_type"`
	} `json:"format"`
}

// TrackDetail is per-track metadata including its available encodings.
type TrackDetail struct {
	Summary      types.TrackSummary
	Transcodings []Transcoding
}

type trackJSON struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	DurationMS int    `json:"duration"`
	ArtworkURL string `json:"artwork_url"`
	User       struct {
		Username string `json:"username"`
	} `json:"user"`
	Media struct {
		Transcodings []Transcoding `json:"transcodings"`
	} `json:"media"`
}

func (t *trackJSON) summary() types.TrackSummary {
	return types.TrackSummary{
		ID:         strconv.FormatInt(t.ID, 10),
		Title:      t.Title,
		Artist:     t.User.Username,
		Duration:   (t.DurationMS + 500) / 1000,
		ArtworkURL: t.ArtworkURL,
	}
}

// SearchTracks queries the catalog's track search, returning results in
// provider relevance order.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]types.TrackSummary, error) {
	var out struct {
		Collection []trackJSON `json:"collection"`
	}
	params := url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}
	if err := c.getJSON(ctx, c.baseURL+"/search/tracks", params, &out); err != nil {
		return nil, fmt.Errorf("search tracks: %w", err)
	}
	return summaries(out.Collection), nil
}

// Trending returns the provider's trending chart in chart order.
func (c *Client) Trending(ctx context.Context, limit int) ([]types.TrackSummary, error) {
	var out struct {
		Collection []struct {
			Track trackJSON `json:"track"`
		} `json:"collection"`
	}
	params := url.Values{"kind": {"trending"}, "limit": {strconv.Itoa(limit)}}
	if err := c.getJSON(ctx, c.baseURL+"/charts", params, &out); err != nil {
		return nil, fmt.Errorf("trending chart: %w", err)
	}
	tracks := make([]types.TrackSummary, 0, len(out.Collection))
	for _, entry := range out.Collection {
		tracks = append(tracks, entry.Track.summary())
	}
	return tracks, nil
}

// Related returns tracks the provider considers similar to the given track.
func (c *Client) Related(ctx context.Context, trackID string, limit int) ([]types.TrackSummary, error) {
	var out struct {
		Collection []trackJSON `json:"collection"`
	}
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	endpoint := fmt.Sprintf("%s/tracks/%s/related", c.baseURL, url.PathEscape(trackID))
	if err := c.getJSON(ctx, endpoint, params, &out); err != nil {
		return nil, fmt.Errorf("related tracks: %w", err)
	}
	return summaries(out.Collection), nil
}

// Track fetches per-track metadata, including the list of available
// encodings used by the resolution chain.
func (c *Client) Track(ctx context.Context, trackID string) (*TrackDetail, error) {
	var out trackJSON
	endpoint := fmt.Sprintf("%s/tracks/%s", c.baseURL, url.PathEscape(trackID))
	if err := c.getJSON(ctx, endpoint, nil, &out); err != nil {
		return nil, fmt.Errorf("track metadata: %w", err)
	}
	return &TrackDetail{
		Summary:      out.summary(),
		Transcodings: out.Media.Transcodings,
	}, nil
}

// Materialize exchanges a transcoding's indirection token for the actual
// stream URL.
func (c *Client) Materialize(ctx context.Context, transcodingURL string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, transcodingURL, nil, &out); err != nil {
		return "", fmt.Errorf("materialize stream url: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("materialize stream url: empty url in response")
	}
	return out.URL, nil
}

// LegacyStream resolves a stream URL through the legacy API. It first tries
// the JSON streams endpoint, then falls back to reading the redirect
// Location of the plain stream endpoint.
func (c *Client) LegacyStream(ctx context.Context, trackID string) (string, error) {
	var out struct {
		MP3URL string `json:"http_mp3_128_url"`
	}
	endpoint := fmt.Sprintf("%s/tracks/%s/streams", c.legacyURL, url.PathEscape(trackID))
	if err := c.getJSON(ctx, endpoint, nil, &out); err == nil && out.MP3URL != "" {
		return out.MP3URL, nil
	}

	if err := c.wait(ctx); err != nil {
		return "", err
	}
	redirectURL := fmt.Sprintf("%s/tracks/%s/stream", c.legacyURL, url.PathEscape(trackID))
	req, err := c.newRequest(ctx, redirectURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return "", fmt.Errorf("legacy stream request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("legacy stream: unexpected status %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("legacy stream: redirect without location")
	}
	return loc, nil
}

func summaries(tracks []trackJSON) []types.TrackSummary {
	out := make([]types.TrackSummary, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.summary())
	}
	return out
}

func (c *Client) wait(ctx context.Context) error {
	if !c.Configured() {
		return types.ErrConfigMissing
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) newRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	q.Set("client_id", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", httpx.UserAgent)
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, endpoint, params)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog API error (status %d)", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
