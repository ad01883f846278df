package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ConnectOptions struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Connect opens a pool to dbURL, retrying while the server comes up, and makes
// sure the vector extension is installed.
func Connect(ctx context.Context, dbURL string, opts ConnectOptions, logger *slog.Logger) (*pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 10
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 10 * time.Second
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}

	var pool *pgxpool.Pool
	for i := 0; i < opts.MaxRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				logger.Info("Successfully connected to the database")
				break
			}
			pool.Close()
		}

		logger.Warn("Failed to connect to the database",
			slog.Int("attempt", i+1),
			slog.Int("max_retries", opts.MaxRetries),
			slog.String("error", err.Error()))
		if i < opts.MaxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database after %d attempts: %w", opts.MaxRetries, err)
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to create vector extension: %w", err)
	}

	return pool, nil
}
