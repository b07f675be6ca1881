package extractor

import (
	"context"
	"log/slog"

	"MediaTrends/internal/domain"
	"MediaTrends/internal/ports"
)

// Fallback tries the primary extractor and falls back to the secondary when
// the primary errors. It keeps the pipeline alive through reader-proxy
// outages at the cost of degraded extraction quality.
type Fallback struct {
	primary   ports.Extractor
	secondary ports.Extractor
	logger    *slog.Logger
}

var _ ports.Extractor = (*Fallback)(nil)

// NewFallback composes two extractors.
func NewFallback(primary, secondary ports.Extractor, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Extract delegates to the primary; on error it retries the secondary with
// the same mode.
func (f *Fallback) Extract(ctx context.Context, url string, mode ports.ExtractMode) (domain.RawDocument, error) {
	doc, err := f.primary.Extract(ctx, url, mode)
	if err == nil {
		return doc, nil
	}
	if ctx.Err() != nil {
		return domain.RawDocument{}, err
	}
	if f.logger != nil {
		f.logger.Warn("primary extractor failed, trying direct fetch", "url", url, "error", err)
	}
	return f.secondary.Extract(ctx, url, mode)
}
