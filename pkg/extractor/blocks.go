package extractor

import (
	"context"
	"fmt"

	"github.com/Sternrassler/rise-explorer-client/pkg/manifest"
	"github.com/Sternrassler/rise-explorer-client/pkg/output"
)

// Blocks writes block reward data for start..end inclusive. Blocks the
// explorer cannot serve are left out; nothing is written if none remain.
func (e *Extractor) Blocks(ctx context.Context, start, end int64) (*manifest.Manifest, error) {
	e.logger.Info().Int64("start", start).Int64("end", end).Msg("Extracting blocks")
	m := e.begin("blocks", fmt.Sprintf("%d-%d", start, end))

	result, err := e.api.Blocks(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("get blocks: %w", err)
	}
	m.SetCount("blocks", len(result.Blocks))
	m.SetCount("skipped", len(result.Skipped))

	if len(result.Blocks) > 0 {
		name := output.FileName(m.Timestamp, fmt.Sprintf("blocks_%d_to_%d", start, end))
		if err := e.writeBoth(m, "blocks", name, result.Blocks, result.Blocks); err != nil {
			return nil, err
		}
	}

	e.logger.Info().Int("records", len(result.Blocks)).Msg("Extracted blocks")
	return e.finish(ctx, m), nil
}
