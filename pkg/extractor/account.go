package extractor

import (
	"context"
	"fmt"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
	"github.com/Sternrassler/rise-explorer-client/pkg/explorer"
	"github.com/Sternrassler/rise-explorer-client/pkg/manifest"
	"github.com/Sternrassler/rise-explorer-client/pkg/output"
)

// AccountOptions selects what Account extracts.
type AccountOptions struct {
	Address      string
	Transactions bool
	Tokens       bool
	MaxTx        int
}

// Account writes the balance of an address and, when requested, its most
// recent transactions and its token list into account_<addr[:10]>/.
func (e *Extractor) Account(ctx context.Context, opts AccountOptions) (*manifest.Manifest, error) {
	if opts.MaxTx <= 0 {
		opts.MaxTx = DefaultMaxTransactions
	}

	e.logger.Info().Str("address", opts.Address).Msg("Extracting account data")
	m := e.begin("account", opts.Address)
	dir := "account_" + shortAddress(opts.Address)

	balance, err := e.api.Balance(ctx, opts.Address)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	path, err := e.layout.WriteJSON(dir, output.FileName(m.Timestamp, "balance"), balance)
	if err != nil {
		return nil, err
	}
	m.AddFile("balance", path)

	if opts.Transactions {
		txs, err := e.api.AllTransactions(ctx, opts.Address, explorer.ListOptions{Sort: explorer.SortDesc}, opts.MaxTx)
		if err != nil {
			return nil, fmt.Errorf("get transactions: %w", err)
		}
		m.SetCount("transactions", len(txs))

		name := output.FileName(m.Timestamp, "transactions")
		path, err := e.layout.WriteJSON(dir, name, txs)
		if err != nil {
			return nil, err
		}
		m.AddFile("transactions_json", path)

		if len(txs) > 0 {
			path, err := e.layout.WriteCSV(dir, name, txs)
			if err != nil {
				return nil, err
			}
			m.AddFile("transactions_csv", path)
		}
	}

	if opts.Tokens {
		if err := e.accountTokens(ctx, opts.Address, dir, m); err != nil {
			return nil, err
		}
	}

	e.logger.Info().Int("files", len(m.Files)).Msg("Account data extraction complete")
	return e.finish(ctx, m), nil
}

func (e *Extractor) accountTokens(ctx context.Context, addr, dir string, m *manifest.Manifest) error {
	env, err := e.api.TokenList(ctx, addr)
	if err != nil {
		return fmt.Errorf("get token list: %w", err)
	}
	if !env.OK() {
		if e.api.Accumulator().Strict() && !env.IsEmptyList() {
			return client.NewAPIError("account.tokenlist", env)
		}
		return nil
	}

	tokens, err := env.Value()
	if err != nil {
		return fmt.Errorf("decode token list: %w", err)
	}
	if tokens == nil {
		tokens = []any{}
	}

	name := output.FileName(m.Timestamp, "tokens")
	path, err := e.layout.WriteJSON(dir, name, tokens)
	if err != nil {
		return err
	}
	m.AddFile("tokens_json", path)

	records, err := env.Records()
	if err != nil {
		e.logger.Warn().Err(err).Msg("Token list is not a record list, skipping CSV")
		return nil
	}
	m.SetCount("tokens", len(records))
	if len(records) > 0 {
		path, err := e.layout.WriteCSV(dir, name, records)
		if err != nil {
			return err
		}
		m.AddFile("tokens_csv", path)
	}
	return nil
}

// Transactions extracts the balance and up to limit transactions of an address.
func (e *Extractor) Transactions(ctx context.Context, addr string, limit int) (*manifest.Manifest, error) {
	return e.Account(ctx, AccountOptions{
		Address:      addr,
		Transactions: true,
		Tokens:       false,
		MaxTx:        limit,
	})
}
