package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

const namespace = "usersupplement"

var (
	// JobRuns counts job executions by outcome ("success" or "error").
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Reconciliation job executions.",
	}, []string{"job", "outcome"})

	// Rows counts rows touched by jobs; kind is "created", "updated" or "skipped".
	Rows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_rows_total",
		Help:      "Rows written or skipped by reconciliation jobs.",
	}, []string{"job", "kind"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Wall time of a single job execution.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"job"})
)

// Serve exposes /metrics on addr in the background and returns a shutdown function.
func Serve(addr string) func(context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echoprometheus.NewHandler())
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("component", "metrics").Msg("metrics server stopped")
		}
	}()
	return e.Shutdown
}
