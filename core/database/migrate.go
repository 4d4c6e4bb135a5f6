package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/menubot/core/logger"
)

// RunMigrations applies every pending up migration of the menu schema.
// The server must already accept connections; Connect waits for that.
func RunMigrations(ctx context.Context, cfg Config) error {
	dir, err := resolveMigrationsPath(cfg.MigrationsPath)
	if err != nil {
		return fmt.Errorf("migrations path: %w", err)
	}
	files := listMigrationFiles(dir)
	logger.Debug(ctx, "db.migrate", "resolve", migrationFiles(dir, files)...)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), cfg.DSN())
	if err != nil {
		logger.Error(ctx, "db.migrate", "init", slog.String("err", err.Error()))
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "apply",
			slog.String("status", "fail"),
			slog.Uint64("from_ver", uint64(from)),
			slog.Duration("duration", took),
			slog.String("err", upErr.Error()),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	to, _, _ := m.Version()
	applied := selectApplied(files, uint64(from), uint64(to))
	if len(applied) > 0 {
		logger.Debug(ctx, "db.migrate", "apply", migrationFiles("", applied)...)
	}
	logger.Info(ctx, "db.migrate", "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

func migrationFiles(dir string, files []string) []slog.Attr {
	attrs := []slog.Attr{slog.Int("files_total", len(files))}
	if dir != "" {
		attrs = append(attrs, slog.String("path", dir))
	}
	if preview, cut := logger.SummarizeStrings(files, 6); preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
		if cut {
			attrs = append(attrs, slog.Bool("files_truncated", true))
		}
	}
	return attrs
}

func resolveMigrationsPath(path string) (string, error) {
	if path == "" {
		path = "migrations"
	}
	return filepath.Abs(path)
}

func listMigrationFiles(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			names = append(names, filepath.Base(m))
		}
	}
	sort.Strings(names)
	return names
}

// parseVersion reads the numeric prefix of NNN_name.up.sql.
func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
