// Package app wires the store, the upstream client, the jobs and the
// services together for the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"userSupplement/internal/config"
	"userSupplement/internal/db"
	"userSupplement/internal/dto"
	grpcserver "userSupplement/internal/grpc"
	"userSupplement/internal/jobs"
	"userSupplement/internal/metrics"
	"userSupplement/internal/scheduler"
	"userSupplement/internal/service"
	"userSupplement/internal/tracing"
	"userSupplement/internal/upstream"
	"userSupplement/repository"
)

const serviceName = "usersupplement"

// App owns the store handle for the lifetime of the process.
type App struct {
	cfg    *config.Config
	db     *sqlx.DB
	jobs   *jobs.Jobs
	runner *scheduler.Runner
	users  *service.UserService
	stats  *service.StatsService
}

// New opens the store, applying pending migrations, and builds every component.
func New(cfg *config.Config) (*App, error) {
	d, err := db.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return NewWithDB(cfg, d), nil
}

// NewWithDB is New over an already opened store.
func NewWithDB(cfg *config.Config, d *sqlx.DB) *App {
	client := upstream.NewClient(upstream.Config{
		UsersURL:      cfg.Source.UsersURL,
		AddressURL:    cfg.Source.AddressURL,
		CreditCardURL: cfg.Source.CreditCardURL,
		Timeout:       cfg.Source.Timeout,
	})
	j := jobs.New(d, client)
	return &App{
		cfg:    cfg,
		db:     d,
		jobs:   j,
		runner: scheduler.NewRunner(j.All(), cfg.Schedule.MaxRetries, cfg.Schedule.RetryDelay),
		users: service.NewUserService(
			repository.NewUserRepository(d),
			repository.NewAddressRepository(d),
			repository.NewCreditCardRepository(d),
		),
		stats: service.NewStatsService(repository.NewStatsRepository(d)),
	}
}

func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) Stats() *service.StatsService { return a.stats }

// RunAll runs every job once, in order, then reports the totals.
// It stops at the first job that still fails after its retries.
func (a *App) RunAll(ctx context.Context) (*dto.UserStats, error) {
	logger := log.With().Str("component", "app").Logger()
	for _, j := range a.runner.Jobs() {
		logger.Info().Str("job", j.Name).Msg("running job")
		res, err := a.runner.RunOnce(ctx, j.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", j.Name, err)
		}
		logger.Info().Str("job", j.Name).Interface("result", res).Msg("job result")
	}
	st, err := a.stats.UserStats(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info().Interface("stats", st).Msg("user stats")
	return st, nil
}

func (a *App) intervals() map[string]time.Duration {
	return map[string]time.Duration{
		jobs.FetchUsers:       a.cfg.Schedule.FetchUsersInterval,
		jobs.FetchAddresses:   a.cfg.Schedule.FetchAddressesInterval,
		jobs.FetchCreditCards: a.cfg.Schedule.FetchCreditCardsInterval,
	}
}

// Worker runs the scheduler, the query API and the metrics endpoint until ctx is done.
func (a *App) Worker(ctx context.Context) error {
	logger := log.With().Str("component", "app").Logger()

	tp, err := tracing.InitTracing(a.cfg.Tracing.CollectorHost, serviceName)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(a.runner, a.intervals())
	if err != nil {
		return err
	}

	stopGRPC, err := grpcserver.StartGRPC(a.cfg, &grpcserver.Server{Users: a.users, Stats: a.stats, Runner: a.runner})
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("start grpc: %w", err)
	}
	stopMetrics := metrics.Serve(a.cfg.Metrics.Address)

	sched.Start()
	logger.Info().Str("config", a.cfg.String()).Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("worker stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(
		stopGRPC(shutdownCtx),
		sched.Shutdown(),
		stopMetrics(shutdownCtx),
		tp.Shutdown(shutdownCtx),
	)
}
