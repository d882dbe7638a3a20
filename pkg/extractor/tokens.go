package extractor

import (
	"context"
	"fmt"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
	"github.com/Sternrassler/rise-explorer-client/pkg/explorer"
	"github.com/Sternrassler/rise-explorer-client/pkg/manifest"
	"github.com/Sternrassler/rise-explorer-client/pkg/output"
)

// TokenTransfers writes up to limit token transfers of addr, optionally
// filtered by token contract. Nothing is written when none are found.
func (e *Extractor) TokenTransfers(ctx context.Context, addr, contract string, limit int) (*manifest.Manifest, error) {
	if limit <= 0 {
		limit = DefaultMaxTransfers
	}

	e.logger.Info().Str("address", addr).Str("contract", contract).Msg("Extracting token transfers")
	m := e.begin("token_transfers", addr)

	transfers, err := e.api.AllTokenTransfers(ctx, addr, contract, explorer.ListOptions{Sort: explorer.SortDesc}, limit)
	if err != nil {
		return nil, fmt.Errorf("get token transfers: %w", err)
	}
	m.SetCount("token_transfers", len(transfers))

	if len(transfers) > 0 {
		name := output.FileName(m.Timestamp, "token_transfers_"+shortAddress(addr))
		if err := e.writeBoth(m, "token_transfers", name, transfers, transfers); err != nil {
			return nil, err
		}
	}

	e.logger.Info().Int("records", len(transfers)).Msg("Extracted token transfers")
	return e.finish(ctx, m), nil
}

type tokenHoldersFile struct {
	TokenInfo           any             `json:"token_info"`
	Holders             []client.Record `json:"holders"`
	TotalHoldersFetched int             `json:"total_holders_fetched"`
}

// TokenHolders writes token metadata together with up to limit holders.
// Nothing is written when the token has no holders.
func (e *Extractor) TokenHolders(ctx context.Context, contract string, limit int) (*manifest.Manifest, error) {
	if limit <= 0 {
		limit = DefaultMaxHolders
	}

	e.logger.Info().Str("contract", contract).Msg("Extracting token holders")
	m := e.begin("token_holders", contract)

	var info any = map[string]any{}
	infoEnv, err := e.api.TokenInfo(ctx, contract)
	if err != nil {
		return nil, fmt.Errorf("get token info: %w", err)
	}
	if infoEnv.OK() {
		if v, err := infoEnv.Value(); err != nil {
			e.logger.Warn().Err(err).Msg("Could not decode token info")
		} else if v != nil {
			info = v
		}
	}

	holders, err := e.api.AllTokenHolders(ctx, contract, limit)
	if err != nil {
		return nil, fmt.Errorf("get token holders: %w", err)
	}
	m.SetCount("holders", len(holders))

	if len(holders) > 0 {
		name := output.FileName(m.Timestamp, "token_holders_"+shortAddress(contract))
		doc := tokenHoldersFile{
			TokenInfo:           info,
			Holders:             holders,
			TotalHoldersFetched: len(holders),
		}
		if err := e.writeBoth(m, "token_holders", name, doc, holders); err != nil {
			return nil, err
		}
	}

	e.logger.Info().Int("records", len(holders)).Msg("Extracted token holders")
	return e.finish(ctx, m), nil
}

// writeBoth writes doc as JSON and records as CSV under the same name.
func (e *Extractor) writeBoth(m *manifest.Manifest, subdir, name string, doc any, records []client.Record) error {
	path, err := e.layout.WriteJSON(subdir, name, doc)
	if err != nil {
		return err
	}
	m.AddFile("json", path)

	path, err = e.layout.WriteCSV(subdir, name, records)
	if err != nil {
		return err
	}
	m.AddFile("csv", path)
	return nil
}
