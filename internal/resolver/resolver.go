// Package resolver turns an opaque track id into a playable stream URL by
// walking an ordered chain of provider-specific strategies. A strategy error
// skips to the next strategy; only exhaustion surfaces to the caller, as
// ErrStreamUnavailable.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/tunefetch/internal/catalog"
	"github.com/user/tunefetch/internal/fetcher"
	"github.com/user/tunefetch/internal/types"
)

// Strategy is one resolution method. Returning an error means "skip to the
// next strategy", never "abort the chain".
type Strategy struct {
	Name    string
	Resolve func(ctx context.Context, trackID string) (*types.ResolvedStream, error)
}

// Resolver evaluates strategies in order until one yields a stream.
type Resolver struct {
	strategies []Strategy
}

// New creates a Resolver with the default chain: the v2 transcodings
// endpoint first, the legacy stream API as fallback.
func New(c *catalog.Client) *Resolver {
	return &Resolver{
		strategies: []Strategy{
			{Name: "transcodings", Resolve: transcodingStrategy(c)},
			{Name: "legacy", Resolve: legacyStrategy(c)},
		},
	}
}

// NewWithStrategies creates a Resolver with an explicit chain. Used by tests
// and by callers that need a custom provider order.
func NewWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve walks the chain. All per-strategy failures are swallowed into the
// final ErrStreamUnavailable; a missing API key is the one failure reported
// as-is, since no later strategy can succeed without it either.
func (r *Resolver) Resolve(ctx context.Context, trackID string) (*types.ResolvedStream, error) {
	for _, s := range r.strategies {
		stream, err := s.Resolve(ctx, trackID)
		if err != nil {
			if errors.Is(err, types.ErrConfigMissing) {
				return nil, err
			}
			slog.Debug("resolution strategy failed", "strategy", s.Name, "track_id", trackID, "error", err)
			continue
		}
		slog.Debug("stream resolved", "strategy", s.Name, "track_id", trackID, "segmented", stream.Segmented)
		return stream, nil
	}
	return nil, fmt.Errorf("%w: track %s", types.ErrStreamUnavailable, trackID)
}

// transcodingStrategy inspects the track's available encodings, preferring a
// progressive (single file) encoding over an HLS playlist, and materializes
// the chosen encoding's indirection URL.
func transcodingStrategy(c *catalog.Client) func(context.Context, string) (*types.ResolvedStream, error) {
	return func(ctx context.Context, trackID string) (*types.ResolvedStream, error) {
		detail, err := c.Track(ctx, trackID)
		if err != nil {
			return nil, err
		}
		chosen, segmented, ok := pickTranscoding(detail.Transcodings)
		if !ok {
			return nil, fmt.Errorf("no usable transcoding for track %s", trackID)
		}
		streamURL, err := c.Materialize(ctx, chosen.URL)
		if err != nil {
			return nil, err
		}
		return &types.ResolvedStream{URL: streamURL, Segmented: segmented}, nil
	}
}

// pickTranscoding selects the first progressive encoding in provider order,
// falling back to the first HLS one.
func pickTranscoding(ts []catalog.Transcoding) (catalog.Transcoding, bool, bool) {
	var hls *catalog.Transcoding
	for i, t := range ts {
		if t.URL == "" {
			continue
		}
		switch strings.ToLower(t.Format.Protocol) {
		case catalog.ProtocolProgressive:
			return t, false, true
		case catalog.ProtocolHLS:
			if hls == nil {
				hls = &ts[i]
			}
		}
	}
	if hls != nil {
		return *hls, true, true
	}
	return catalog.Transcoding{}, false, false
}

// legacyStrategy resolves through the legacy API, which hands back a direct
// or redirect-based URL. Segmentation is classified from the URL itself.
func legacyStrategy(c *catalog.Client) func(context.Context, string) (*types.ResolvedStream, error) {
	return func(ctx context.Context, trackID string) (*types.ResolvedStream, error) {
		streamURL, err := c.LegacyStream(ctx, trackID)
		if err != nil {
			return nil, err
		}
		return &types.ResolvedStream{URL: streamURL, Segmented: fetcher.IsPlaylistURL(streamURL)}, nil
	}
}
