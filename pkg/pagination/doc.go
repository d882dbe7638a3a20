// Package pagination accumulates records from page-numbered explorer endpoints.
//
// Explorer list endpoints take page (1-based) and offset (page size) fields
// and answer with an envelope whose result is a list. The accumulator walks
// pages sequentially and stops on the first of:
//   - the cap being reached (the overshooting page is truncated)
//   - an empty page
//   - a failure status (partial data is returned)
//
// Example usage:
//
//	acc := pagination.NewAccumulator(explorerClient, pagination.DefaultConfig())
//	txs, err := acc.Accumulate(ctx, client.Params{
//		"module":  "account",
//		"action":  "txlist",
//		"address": addr,
//		"sort":    "desc",
//	}, 100, 1000)
//
// Block ranges have no paging; AccumulateBlocks issues one request per block
// and skips blocks the explorer reports as failed.
//
// With Config.Strict set, a failure status that is not a plain "nothing
// found" answer is returned as *client.APIError next to the partial data.
package pagination
