package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"userSupplement/internal/jobs"
)

// DefaultIntervals are the periods between runs of each job.
var DefaultIntervals = map[string]time.Duration{
	jobs.FetchUsers:       300 * time.Second,
	jobs.FetchAddresses:   600 * time.Second,
	jobs.FetchCreditCards: 900 * time.Second,
}

// Scheduler triggers every job of a Runner on its own interval. A job never
// overlaps itself: a tick that arrives while the previous run is still going
// is rescheduled.
type Scheduler struct {
	s      gocron.Scheduler
	runner *Runner
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers each job of runner. Jobs missing from intervals use DefaultIntervals.
func New(runner *Runner, intervals map[string]time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	sch := &Scheduler{s: s, runner: runner, ctx: ctx, cancel: cancel}

	for _, j := range runner.Jobs() {
		every, ok := intervals[j.Name]
		if !ok || every <= 0 {
			every = DefaultIntervals[j.Name]
		}
		if every <= 0 {
			cancel()
			_ = s.Shutdown()
			return nil, fmt.Errorf("no interval for job %s", j.Name)
		}
		_, err := s.NewJob(
			gocron.DurationJob(every),
			gocron.NewTask(sch.trigger, j),
			gocron.WithName(j.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			_ = s.Shutdown()
			return nil, fmt.Errorf("register %s: %w", j.Name, err)
		}
		log.Info().Str("component", "scheduler").Str("job", j.Name).Dur("every", every).Msg("job registered")
	}
	return sch, nil
}

func (s *Scheduler) trigger(j jobs.Job) {
	// The runner logs the outcome.
	_, _ = s.runner.run(s.ctx, j)
}

func (s *Scheduler) Start() {
	s.s.Start()
}

// Shutdown cancels running jobs, including any pending retry delay, and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.s.Shutdown()
}
