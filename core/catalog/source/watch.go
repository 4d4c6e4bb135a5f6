package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/m3rciful/menubot/core/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Watch calls reload after the file at path changes, until ctx is done.
// The parent directory is watched so atomic replace-by-rename saves are seen.
// Reload errors are logged and watching continues.
func Watch(ctx context.Context, path string, debounce time.Duration, reload func(context.Context) error) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	logger.Info(ctx, "catalog", "watch.start", slog.String("path", abs))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "catalog", "watch.stop", slog.String("path", abs))
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !relevant(ev.Op) {
				continue
			}
			logger.Debug(ctx, "catalog", "watch.event",
				slog.String("path", abs),
				slog.String("op", ev.Op.String()),
			)
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn(ctx, "catalog", "watch.error", slog.String("err", err.Error()))
		case <-timer.C:
			if err := reload(ctx); err != nil {
				logger.Warn(ctx, "catalog", "watch.reload_failed",
					slog.String("path", abs),
					slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				)
			}
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}
