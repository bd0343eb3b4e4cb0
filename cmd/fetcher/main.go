// Command fetcher runs the fetcher worker pool: consumes fetch_url
// messages, fetches each URL's body, stores it, and publishes
// content_fetched.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/crawlsched/internal/broker"
	"github.com/jonesrussell/crawlsched/internal/config"
	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/fetch"
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
	log = log.WithComponent("fetcher").WithEnvironment(cfg.App.Environment)

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

	urlStore := store.NewURLStore(db)
	publisher := broker.NewChannelPublisher(conn.Channel(), log)
	fetcher := fetch.NewHTTPFetcher()
	worker := fetch.NewWorker(fetcher, urlStore, publisher, log)

	queue := domain.Topics[domain.EventFetchURL].Queue
	deliveries, err := conn.Channel().Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("fetcher worker pool started", "queue", queue)
	fetch.ConsumeFetchURL(ctx, deliveries, worker, log, fetch.DefaultWorkerCount)
	log.Info("fetcher worker pool stopped")
	return nil
}
