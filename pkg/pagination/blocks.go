package pagination

import (
	"context"
	"fmt"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
)

// BlockFetcher fetches the data of a single block.
type BlockFetcher func(ctx context.Context, block int64) (*client.Envelope, error)

// BlockResult is the outcome of a block range walk.
type BlockResult struct {
	Blocks  []client.Record
	Skipped []int64
}

// AccumulateBlocks fetches start..end inclusive, one request per block, in
// ascending order. Blocks answered with a failure status are skipped. A
// transport error ends the walk and is returned with the blocks collected so far.
func (a *Accumulator) AccumulateBlocks(ctx context.Context, start, end int64, fetch BlockFetcher) (*BlockResult, error) {
	result := &BlockResult{Blocks: []client.Record{}}
	if end < start {
		return result, nil
	}

	for n := start; n <= end; n++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		env, err := fetch(ctx, n)
		if err != nil {
			return result, fmt.Errorf("fetch block %d: %w", n, err)
		}

		if env.OK() {
			rec, err := env.Record()
			if err != nil || rec == nil {
				a.skip(result, n, "block result is not an object")
			} else {
				result.Blocks = append(result.Blocks, rec)
			}
		} else {
			a.skip(result, n, env.Message)
		}

		if processed := n - start + 1; processed%int64(a.config.ProgressEvery) == 0 {
			a.logger.Info().
				Int64("processed", processed).
				Int64("block", n).
				Msgf("Processed %d blocks...", processed)
		}
	}

	recordsAccumulatedTotal.WithLabelValues("block.getblockreward").Add(float64(len(result.Blocks)))
	return result, nil
}

func (a *Accumulator) skip(result *BlockResult, n int64, reason string) {
	result.Skipped = append(result.Skipped, n)
	event := a.logger.Debug()
	if a.config.Strict {
		event = a.logger.Warn()
	}
	event.Int64("block", n).Str("reason", reason).Msg("Skipping block")
}
