package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	explorerRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	explorerRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "explorer_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 3, 5, 10, 30},
	}, []string{"error_class"})

	explorerRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// backoffFor returns the wait after the given failed attempt (1-based).
func backoffFor(delay time.Duration, attempt int) time.Duration {
	return delay * time.Duration(attempt)
}

// retryLinear runs fn up to attempts times. After failed attempt n it waits
// delay*n, except after the last attempt, whose error is returned inside a
// *TransportError. Cancellation during a wait aborts immediately.
func retryLinear(ctx context.Context, attempts int, delay time.Duration, sleep Sleeper, fn func(attempt int) error) error {
	if sleep == nil {
		sleep = contextSleep
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		errorClass := classifyError(err)

		if attempt >= attempts {
			explorerRetryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
			log.Warn().
				Str("error_class", string(errorClass)).
				Int("max_attempts", attempts).
				Msg("Retry attempts exhausted")
			return &TransportError{Attempts: attempt, ErrorClass: errorClass, Err: err}
		}

		backoff := backoffFor(delay, attempt)
		explorerRetriesTotal.WithLabelValues(string(errorClass)).Inc()
		explorerRetryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(backoff.Seconds())

		log.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		if err := sleep(ctx, backoff); err != nil {
			log.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
	}

	return &TransportError{Err: ErrMaxRetriesExceeded}
}
