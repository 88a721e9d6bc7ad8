// Package jobs implements the three reconciliation jobs that copy upstream
// users, addresses and credit cards into the store.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"userSupplement/internal/metrics"
	"userSupplement/internal/upstream"
)

// Job names, as registered with the scheduler.
const (
	FetchUsers       = "fetch-users"
	FetchAddresses   = "fetch-addresses"
	FetchCreditCards = "fetch-credit-cards"
)

const (
	StatusSuccess  = "success"
	NoUsersMessage = "No users found"
)

// Source is the upstream the jobs read from. *upstream.Client implements it.
type Source interface {
	FetchUsers(ctx context.Context) ([]json.RawMessage, error)
	FetchAddress(ctx context.Context) (*upstream.Address, error)
	FetchCreditCard(ctx context.Context) (*upstream.CreditCard, error)
}

// RetryableError marks a job failure the scheduler should retry.
type RetryableError struct {
	Job string
	Err error
}

func (e *RetryableError) Error() string { return e.Job + ": " + e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err, or anything it wraps, is a *RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retryable wraps err in a *RetryableError unless ctx is already done.
func retryable(ctx context.Context, job string, err error) error {
	if ctx.Err() != nil {
		return err
	}
	return &RetryableError{Job: job, Err: err}
}

// Job is a named unit of work taking no arguments and returning a small result value.
type Job struct {
	Name string
	Run  func(ctx context.Context) (any, error)
}

// Jobs holds the dependencies shared by every job. It keeps no state between runs.
type Jobs struct {
	db     *sqlx.DB
	source Source
	tracer trace.Tracer
}

func New(db *sqlx.DB, source Source) *Jobs {
	return &Jobs{db: db, source: source, tracer: otel.Tracer("userSupplement/jobs")}
}

// All returns the jobs in the order they should run when executed back to back.
func (j *Jobs) All() []Job {
	return []Job{
		{Name: FetchUsers, Run: func(ctx context.Context) (any, error) { return j.FetchUsers(ctx) }},
		{Name: FetchAddresses, Run: func(ctx context.Context) (any, error) { return j.FetchAddresses(ctx) }},
		{Name: FetchCreditCards, Run: func(ctx context.Context) (any, error) { return j.FetchCreditCards(ctx) }},
	}
}

// Lookup finds a job by name.
func (j *Jobs) Lookup(name string) (Job, bool) {
	for _, job := range j.All() {
		if job.Name == name {
			return job, true
		}
	}
	return Job{}, false
}

// instrument gives one execution a run id, a span, a scoped logger and metrics.
func (j *Jobs) instrument(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	runID := uuid.NewString()
	ctx, span := j.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("job.run_id", runID)))
	defer span.End()

	logger := log.With().Str("component", "jobs").Str("job", name).Str("run_id", runID).Logger()
	start := time.Now()
	logger.Info().Msg("job started")

	err := fn(logger.WithContext(ctx))
	metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.JobRuns.WithLabelValues(name, "error").Inc()
		logger.Error().Err(err).Bool("retryable", IsRetryable(err)).Msg("job failed")
		return err
	}
	metrics.JobRuns.WithLabelValues(name, "success").Inc()
	return nil
}

// logSkip records a per-user failure. Request failures are expected noise from
// the random data source and log at warn level.
func logSkip(logger *zerolog.Logger, err error, userID int64, what string) {
	var reqErr *upstream.RequestError
	if errors.As(err, &reqErr) {
		logger.Warn().Err(err).Int64("user_id", userID).Msgf("request error fetching %s", what)
		return
	}
	logger.Error().Err(err).Int64("user_id", userID).Msgf("error processing %s", what)
}
