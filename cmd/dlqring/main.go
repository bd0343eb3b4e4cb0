// Command dlqring runs the dead-letter ring: one consumer per event's
// dead-letter queue, republishing messages back onto their main queue until
// a message has died too many times, at which point it's dropped.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/crawlsched/internal/broker"
	"github.com/jonesrussell/crawlsched/internal/config"
	"github.com/jonesrussell/crawlsched/internal/dlq"
	"github.com/jonesrussell/crawlsched/internal/logger"
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
	log = log.WithComponent("dlqring").WithEnvironment(cfg.App.Environment)

	conn, err := broker.Dial(cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	publisher := broker.NewChannelPublisher(conn.Channel(), log)
	ring := dlq.NewRing(conn.Channel(), publisher, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("dead-letter ring started")
	if runErr := ring.Run(ctx); runErr != nil {
		return fmt.Errorf("dead-letter ring: %w", runErr)
	}
	return nil
}
