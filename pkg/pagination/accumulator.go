package pagination

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxPageSize is the largest offset the explorer honours per page.
const MaxPageSize = 100

// Prometheus metrics for accumulation.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_pages_fetched_total",
		Help: "Pages requested by the accumulator by action",
	}, []string{"action"})

	recordsAccumulatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_records_accumulated_total",
		Help: "Records returned by the accumulator by action",
	}, []string{"action"})

	recordsDiscardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_records_discarded_total",
		Help: "Records dropped from the final page to honour the cap",
	}, []string{"action"})
)

// Executor is the subset of *client.Client the accumulator needs.
type Executor interface {
	Execute(ctx context.Context, params client.Params, method string) (*client.Envelope, error)
}

// Config holds accumulator configuration.
type Config struct {
	// PageSize is used when a call passes a non-positive page size.
	PageSize int

	// Method is the HTTP method for page requests.
	Method string

	// Strict surfaces failure statuses other than "nothing found" as errors.
	Strict bool

	// ProgressEvery logs block progress after this many blocks.
	ProgressEvery int
}

// DefaultConfig returns the default accumulator configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:      MaxPageSize,
		Method:        http.MethodGet,
		Strict:        false,
		ProgressEvery: 10,
	}
}

// Accumulator walks paged endpoints through an Executor.
type Accumulator struct {
	exec   Executor
	config Config
	logger zerolog.Logger
}

// NewAccumulator creates a new accumulator.
func NewAccumulator(exec Executor, config Config) *Accumulator {
	if config.PageSize <= 0 || config.PageSize > MaxPageSize {
		config.PageSize = MaxPageSize
	}
	if config.Method == "" {
		config.Method = http.MethodGet
	}
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = 10
	}

	return &Accumulator{
		exec:   exec,
		config: config,
		logger: log.With().Str("component", "pagination").Logger(),
	}
}

// Strict reports whether strict failure handling is enabled.
func (a *Accumulator) Strict() bool {
	return a.config.Strict
}

// Accumulate requests pages 1, 2, ... of base until limit records are
// collected, a page is empty or the explorer reports failure. The result
// never holds more than limit records. Records collected before an error
// are returned together with it.
func (a *Accumulator) Accumulate(ctx context.Context, base client.Params, pageSize, limit int) ([]client.Record, error) {
	if limit <= 0 {
		return []client.Record{}, nil
	}
	if pageSize <= 0 {
		pageSize = a.config.PageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	action := base.Action()
	records := make([]client.Record, 0, min(limit, pageSize))
	page := 1

	for len(records) < limit {
		params := base.Clone()
		params["page"] = strconv.Itoa(page)
		params["offset"] = strconv.Itoa(pageSize)

		env, err := a.exec.Execute(ctx, params, a.config.Method)
		if err != nil {
			return records, fmt.Errorf("fetch %s page %d: %w", action, page, err)
		}
		pagesFetchedTotal.WithLabelValues(action).Inc()

		if !env.OK() {
			a.logger.Debug().
				Str("action", action).
				Int("page", page).
				Str("message", env.Message).
				Msg("Stopping on failure status")
			if a.config.Strict && !env.IsEmptyList() {
				return records, client.NewAPIError(action, env)
			}
			break
		}

		batch, err := env.Records()
		if err != nil {
			a.logger.Warn().Err(err).Str("action", action).Int("page", page).Msg("Page result is not a record list")
			if a.config.Strict {
				return records, fmt.Errorf("decode %s page %d: %w", action, page, err)
			}
			break
		}
		if len(batch) == 0 {
			break
		}

		records = append(records, batch...)
		a.logger.Debug().
			Str("action", action).
			Int("page", page).
			Int("records", len(records)).
			Msg("Page accumulated")
		page++
	}

	if len(records) > limit {
		recordsDiscardedTotal.WithLabelValues(action).Add(float64(len(records) - limit))
		records = records[:limit]
	}
	recordsAccumulatedTotal.WithLabelValues(action).Add(float64(len(records)))

	return records, nil
}
