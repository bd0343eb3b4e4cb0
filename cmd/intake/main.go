// Command intake runs the HTTP Intake API, which enqueues new URLs into the
// scheduler's scheduled-item pool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonesrussell/crawlsched/internal/broker"
	"github.com/jonesrussell/crawlsched/internal/config"
	"github.com/jonesrussell/crawlsched/internal/intake"
	"github.com/jonesrussell/crawlsched/internal/logger"
	"github.com/jonesrussell/crawlsched/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
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
	log = log.WithComponent("intake").WithEnvironment(cfg.App.Environment)

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
	svc := intake.NewService(workStore, log)

	ping := func(ctx context.Context) error {
		return db.PingContext(ctx)
	}

	serverCfg := &intake.Config{Address: cfg.Intake.Address}
	server, err := intake.NewServer(serverCfg, log, svc, ping)
	if err != nil {
		return fmt.Errorf("build intake server: %w", err)
	}

	return server.RunWithGracefulShutdown(context.Background())
}
