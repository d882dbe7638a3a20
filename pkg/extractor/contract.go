package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/rise-explorer-client/pkg/manifest"
	"github.com/Sternrassler/rise-explorer-client/pkg/output"
)

// Contract writes the verified source metadata, the Solidity source and the
// ABI of a contract. Unverified contracts produce no files.
func (e *Extractor) Contract(ctx context.Context, addr string) (*manifest.Manifest, error) {
	e.logger.Info().Str("address", addr).Msg("Extracting contract data")
	m := e.begin("contract", addr)
	dir := "contract_" + shortAddress(addr)

	env, err := e.api.ContractSource(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("get source code: %w", err)
	}
	if !env.OK() {
		e.logger.Warn().Str("address", addr).Msg("Contract not verified or not found")
		return e.finish(ctx, m), nil
	}

	contracts, err := env.Records()
	if err != nil {
		return nil, fmt.Errorf("decode source code: %w", err)
	}
	if len(contracts) == 0 {
		return e.finish(ctx, m), nil
	}
	contract := contracts[0]

	path, err := e.layout.WriteJSON(dir, output.FileName(m.Timestamp, "contract_full"), contract)
	if err != nil {
		return nil, err
	}
	m.AddFile("full_data", path)

	source, _ := contract["SourceCode"].(string)
	path, err = e.layout.WriteText(dir, output.FileName(m.Timestamp, "source.sol"), source)
	if err != nil {
		return nil, err
	}
	m.AddFile("source_code", path)

	abi, _ := contract["ABI"].(string)
	if !json.Valid([]byte(abi)) {
		e.logger.Warn().Str("address", addr).Msg("Could not parse ABI as JSON")
		return e.finish(ctx, m), nil
	}
	path, err = e.layout.WriteRawJSON(dir, output.FileName(m.Timestamp, "abi.json"), []byte(abi))
	if err != nil {
		return nil, err
	}
	m.AddFile("abi", path)

	return e.finish(ctx, m), nil
}
