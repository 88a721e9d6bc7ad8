package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"userSupplement/internal/app"
	"userSupplement/internal/config"
	"userSupplement/internal/db"
)

const usage = `usersupplement - user data supplementation service

Usage:
    usersupplement init-db        Create or migrate the database schema
    usersupplement rollback-db    Revert the most recent migration
    usersupplement run-tasks      Run every fetch job once, then print user stats
    usersupplement stats          Show user statistics
    usersupplement worker         Run the scheduler, query API and metrics until interrupted
    usersupplement help           Show this help message
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(args) < 1 {
		fmt.Fprint(stdout, usage)
		return 1
	}

	var err error
	switch cmd := args[0]; cmd {
	case "init-db":
		err = initDB()
	case "rollback-db":
		err = rollbackDB()
	case "run-tasks":
		err = runTasks()
	case "stats":
		err = showStats(stdout)
	case "worker":
		err = worker()
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n", cmd)
		fmt.Fprint(stdout, usage)
		return 1
	}
	if err != nil {
		log.Error().Err(err).Str("command", args[0]).Msg("command failed")
		return 1
	}
	return 0
}

// loadConfig loads the configuration and applies its log level. Only the
// worker serves authenticated requests, so only it insists on JWT_SECRET.
func loadConfig(strict bool) (*config.Config, error) {
	load := config.LoadWithDefaults
	if strict {
		load = config.Load
	}
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

func initDB() error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	d, err := db.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer d.Close()
	versions, err := db.AppliedVersions(d)
	if err != nil {
		return err
	}
	log.Info().Ints("migrations", versions).Msg("database tables created successfully")
	return nil
}

func rollbackDB() error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	d, err := db.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := db.RollbackLast(d); err != nil {
		return err
	}
	log.Info().Msg("rolled back last migration")
	return nil
}

func runTasks() error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info().Msg("running manual tasks")
	_, err = a.RunAll(ctx)
	return err
}

func showStats(stdout io.Writer) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Stats().UserStats(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nUser Statistics:\n- Total Users: %d\n- Total Addresses: %d\n- Total Credit Cards: %d\n",
		st.TotalUsers, st.TotalAddresses, st.TotalCreditCards)
	return nil
}

func worker() error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Worker(ctx)
}
