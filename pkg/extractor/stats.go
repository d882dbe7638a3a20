package extractor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Sternrassler/rise-explorer-client/pkg/manifest"
	"github.com/Sternrassler/rise-explorer-client/pkg/output"
)

// isoFormat matches a naive ISO 8601 timestamp with microseconds.
const isoFormat = "2006-01-02T15:04:05.000000"

var weiPerEth = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

type networkStats struct {
	Timestamp    string   `json:"timestamp"`
	Date         string   `json:"date"`
	EthSupplyWei *string  `json:"eth_supply_wei,omitempty"`
	EthSupplyEth *float64 `json:"eth_supply_eth,omitempty"`
	Price        any      `json:"price,omitempty"`
}

// weiToEth converts a decimal wei amount to ether.
func weiToEth(wei string) (float64, error) {
	n, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return 0, fmt.Errorf("invalid wei amount %q", wei)
	}
	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(n), weiPerEth).Float64()
	return eth, nil
}

// NetworkStats writes the native supply and coin price to stats/.
func (e *Extractor) NetworkStats(ctx context.Context) (*manifest.Manifest, error) {
	e.logger.Info().Msg("Extracting network statistics")
	now := e.now()
	m := manifest.New("stats", "", output.Timestamp(now))

	stats := networkStats{
		Timestamp: m.Timestamp,
		Date:      now.Format(isoFormat),
	}

	supply, err := e.api.EthSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("get eth supply: %w", err)
	}
	if supply.OK() {
		wei, err := supply.Text()
		if err != nil {
			return nil, fmt.Errorf("decode eth supply: %w", err)
		}
		stats.EthSupplyWei = &wei
		if eth, err := weiToEth(wei); err != nil {
			e.logger.Warn().Err(err).Msg("Could not convert supply to ether")
		} else {
			stats.EthSupplyEth = &eth
		}
	}

	price, err := e.api.CoinPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get coin price: %w", err)
	}
	if price.OK() {
		v, err := price.Value()
		if err != nil {
			return nil, fmt.Errorf("decode coin price: %w", err)
		}
		if v == nil {
			v = map[string]any{}
		}
		stats.Price = v
	}

	path, err := e.layout.WriteJSON("stats", output.FileName(m.Timestamp, "network_stats"), stats)
	if err != nil {
		return nil, err
	}
	m.AddFile("json", path)

	e.logger.Info().Msg("Network statistics extracted")
	return e.finish(ctx, m), nil
}
