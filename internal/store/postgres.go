// Package store implements the transactional Postgres persistence layer
// backing the scheduler's work queues and the URL graph.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections.
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime.
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout bounds the connect-time readiness check.
	DefaultPingTimeout = 5 * time.Second

	// lockTimeout and statementTimeout are applied SET LOCAL at the start of
	// every lease transaction, bounding worst-case contention so a stuck lock
	// cannot wedge a dispatch tick indefinitely. Transitions, inserts and
	// reaper sweeps run as single statements without these timeouts.
	lockTimeout      = "4s"
	statementTimeout = "8s"
)

// Config holds database connection parameters.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Connect opens a pooled connection to Postgres and verifies it with a ping.
func Connect(cfg Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	return db, nil
}

// setSessionTimeouts applies the lock/statement timeout budget to the
// current transaction only (SET LOCAL), so it never leaks to other
// connections drawn from the pool.
func setSessionTimeouts(ctx context.Context, tx *sqlx.Tx) error {
	// SET takes no bind parameters, so the constant values are inlined.
	if _, err := tx.ExecContext(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "SET LOCAL statement_timeout = '"+statementTimeout+"'"); err != nil {
		return fmt.Errorf("set statement_timeout: %w", err)
	}
	return nil
}
