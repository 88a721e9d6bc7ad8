// Package scheduler runs the reconciliation jobs on fixed intervals and
// retries the failures they mark as retryable.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"userSupplement/internal/jobs"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 60 * time.Second
)

var ErrUnknownJob = errors.New("unknown job")

// Runner executes jobs with a constant-delay retry policy. Only errors
// wrapping *jobs.RetryableError are retried.
type Runner struct {
	jobs       []jobs.Job
	maxRetries uint64
	retryDelay time.Duration
}

func NewRunner(js []jobs.Job, maxRetries int, retryDelay time.Duration) *Runner {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Runner{jobs: js, maxRetries: uint64(maxRetries), retryDelay: retryDelay}
}

// Jobs returns the registered jobs.
func (r *Runner) Jobs() []jobs.Job { return r.jobs }

// RunOnce runs the named job synchronously, retrying as configured.
func (r *Runner) RunOnce(ctx context.Context, name string) (any, error) {
	for _, j := range r.jobs {
		if j.Name == name {
			return r.run(ctx, j)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

func (r *Runner) run(ctx context.Context, j jobs.Job) (any, error) {
	logger := log.With().Str("component", "scheduler").Str("job", j.Name).Logger()
	attempt := 0
	op := func() (any, error) {
		attempt++
		res, err := j.Run(ctx)
		if err != nil && !jobs.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return res, err
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.retryDelay), r.maxRetries),
		ctx,
	)
	res, err := backoff.RetryNotifyWithData(op, b, func(err error, next time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("job failed, retrying")
	})
	if err != nil {
		logger.Error().Err(err).Int("attempts", attempt).Msg("job gave up")
		return nil, err
	}
	logger.Info().Interface("result", res).Msg("job finished")
	return res, nil
}
