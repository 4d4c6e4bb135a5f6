package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adhocore/gronx"

	"github.com/m3rciful/menubot/core/logger"
)

// ValidSchedule reports whether expr is a cron expression Schedule accepts.
func ValidSchedule(expr string) bool {
	return gronx.New().IsValid(strings.TrimSpace(expr))
}

// Schedule calls reload at every tick of the cron expression expr until ctx
// is done. Reload errors are logged and the next tick still fires.
func Schedule(ctx context.Context, expr string, reload func(context.Context) error) error {
	expr = strings.TrimSpace(expr)
	if !ValidSchedule(expr) {
		return fmt.Errorf("schedule: invalid cron expression %q", expr)
	}
	logger.Info(ctx, "catalog", "schedule.start", slog.String("cron", expr))
	for {
		next, err := gronx.NextTickAfter(expr, time.Now(), false)
		if err != nil {
			return fmt.Errorf("schedule %q: %w", expr, err)
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info(ctx, "catalog", "schedule.stop", slog.String("cron", expr))
			return nil
		case <-timer.C:
		}
		if err := reload(ctx); err != nil {
			logger.Warn(ctx, "catalog", "schedule.reload_failed",
				slog.String("cron", expr),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}
}
