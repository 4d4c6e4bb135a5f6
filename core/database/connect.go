package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/menubot/core/logger"
)

const (
	defaultConnectTimeout = 30 * time.Second
	connectRetryEvery     = 2 * time.Second
)

// Connect opens the menu store pool. It retries until the server answers,
// cfg.ConnectTimeout passes or ctx is done.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}
	start := time.Now()
	attempts := 0
	for {
		attempts++
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
		if err == nil {
			db.SetMaxOpenConns(cfg.MaxConnections)
			db.SetMaxIdleConns(cfg.MaxConnections)
			logger.Info(ctx, "db", "db.connect", append(target,
				slog.String("status", "ok"),
				slog.Int("pool_open", cfg.MaxConnections),
				slog.Int("attempts", attempts),
				slog.Duration("duration", time.Since(start)),
			)...)
			return db, nil
		}

		select {
		case <-ctx.Done():
			logger.Error(ctx, "db", "db.connect", append(target,
				slog.String("status", "fail"),
				slog.Int("attempts", attempts),
				slog.Duration("duration", time.Since(start)),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)...)
			return nil, fmt.Errorf("db connect after %d attempts: %w", attempts, err)
		case <-time.After(connectRetryEvery):
			logger.Debug(ctx, "db", "db.connect_retry", append(target,
				slog.Int("attempts", attempts),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)...)
		}
	}
}
