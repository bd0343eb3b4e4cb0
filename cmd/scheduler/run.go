package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/crawlsched/internal/broker"
	"github.com/jonesrussell/crawlsched/internal/config"
	"github.com/jonesrussell/crawlsched/internal/logger"
	"github.com/jonesrussell/crawlsched/internal/scheduler"
	"github.com/jonesrussell/crawlsched/internal/store"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the cron dispatch loops and the lease reaper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScheduler(cmd.Context())
		},
	}
}

func runScheduler(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:       logger.Level(cfg.Log.Level),
		Development: cfg.App.Debug,
		Encoding:    cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	log = log.WithComponent("scheduler").WithEnvironment(cfg.App.Environment)

	db, err := cfg.Database.OpenDB()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	conn, err := broker.Dial(cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	workStore := store.NewWorkStore(db)
	publisher := broker.NewChannelPublisher(conn.Channel(), log)

	dispatcher := scheduler.NewDispatcher(workStore, publisher, log)
	sched := scheduler.NewScheduler(dispatcher, log)

	leaseTTL := cfg.Scheduler.LeaseTTL
	if leaseTTL <= 0 {
		leaseTTL = scheduler.DefaultLeaseTTL
	}
	reaper := scheduler.NewReaperWithTTL(workStore, log, leaseTTL, scheduler.DefaultReapInterval)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if startErr := sched.Start(ctx); startErr != nil {
		return fmt.Errorf("start scheduler: %w", startErr)
	}
	log.Info("scheduler core started", "lease_ttl", leaseTTL)

	go reaper.Run(ctx)

	<-ctx.Done()
	log.Info("shutdown signal received, stopping scheduler")
	sched.Stop()
	return nil
}
