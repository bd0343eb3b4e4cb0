// Command discovery runs the discovery worker pool: consumes
// check_sub_url_by_date messages, fetches the dated index page, extracts
// anchors, and schedules each discovered URL in-process via the intake
// service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/crawlsched/internal/breaker"
	"github.com/jonesrussell/crawlsched/internal/broker"
	"github.com/jonesrussell/crawlsched/internal/config"
	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/fetch"
	"github.com/jonesrussell/crawlsched/internal/intake"
	"github.com/jonesrussell/crawlsched/internal/logger"
	"github.com/jonesrussell/crawlsched/internal/retry"
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
	log = log.WithComponent("discovery").WithEnvironment(cfg.App.Environment)

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
	scheduler := intake.NewService(workStore, log)

	httpTimeout := cfg.Discovery.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = fetch.DefaultHTTPTimeout
	}
	fetcher := fetch.NewHTTPFetcherWithTimeout(httpTimeout)
	worker := fetch.NewDiscoveryWorkerWithPolicy(fetcher, scheduler, log, breaker.DefaultConfig(), retry.HTTPConfig())

	queue := domain.Topics[domain.EventCheckSubURLByDate].Queue
	deliveries, err := conn.Channel().Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("discovery worker pool started", "queue", queue)
	fetch.ConsumeByDateFetchURL(ctx, deliveries, worker, log, fetch.DefaultWorkerCount)
	log.Info("discovery worker pool stopped")
	return nil
}
