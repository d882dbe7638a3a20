// Package extractor runs one extraction per entity and writes the results
// through the output layout.
package extractor

import (
	"context"
	"time"

	"github.com/Sternrassler/rise-explorer-client/pkg/explorer"
	"github.com/Sternrassler/rise-explorer-client/pkg/manifest"
	"github.com/Sternrassler/rise-explorer-client/pkg/output"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default limits.
const (
	DefaultMaxTransactions = 100
	DefaultMaxTransfers    = 1000
	DefaultMaxHolders      = 100

	addressPrefixLen = 10
)

// Extractor orchestrates explorer calls and file output.
type Extractor struct {
	api       *explorer.API
	layout    *output.Layout
	manifests manifest.Store
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithManifestStore records a manifest of every extraction in store.
func WithManifestStore(store manifest.Store) Option {
	return func(e *Extractor) {
		if store != nil {
			e.manifests = store
		}
	}
}

// WithClock overrides the time source used for file timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an extractor. The layout must already be initialized.
func New(api *explorer.API, layout *output.Layout, opts ...Option) *Extractor {
	e := &Extractor{
		api:       api,
		layout:    layout,
		manifests: manifest.NopStore{},
		now:       time.Now,
		logger:    log.With().Str("component", "extractor").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// shortAddress returns the first ten characters of addr, used in directory
// and file names.
func shortAddress(addr string) string {
	if len(addr) <= addressPrefixLen {
		return addr
	}
	return addr[:addressPrefixLen]
}

func (e *Extractor) begin(entity, subject string) *manifest.Manifest {
	return manifest.New(entity, subject, output.Timestamp(e.now()))
}

// finish stores the manifest. A store failure is logged, the files are
// already on disk.
func (e *Extractor) finish(ctx context.Context, m *manifest.Manifest) *manifest.Manifest {
	if err := e.manifests.Save(ctx, m); err != nil {
		e.logger.Error().Err(err).Str("entity", m.Entity).Msg("Failed to save manifest")
	}
	return m
}
