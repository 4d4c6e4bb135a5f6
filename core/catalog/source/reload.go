package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/menubot/core/catalog"
	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/menu"
)

// Reloader loads a fresh catalog and swaps it into the router. A catalog that
// fails to load or validate is rejected and the current one stays active.
type Reloader struct {
	src    Source
	router *menu.Router
	mu     sync.Mutex
}

// NewReloader binds src to router.
func NewReloader(src Source, router *menu.Router) (*Reloader, error) {
	if src == nil || router == nil {
		return nil, errors.New("source: reloader needs a source and a router")
	}
	return &Reloader{src: src, router: router}, nil
}

// Reload installs the current content of the source and returns the new catalog.
func (r *Reloader) Reload(ctx context.Context) (*catalog.Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	cat, err := r.src.Load(ctx)
	if err != nil {
		logger.Warn(ctx, "catalog", "reload.failed",
			slog.String("menu_source", r.src.Name()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return nil, fmt.Errorf("reload %s catalog: %w", r.src.Name(), err)
	}
	if _, err := r.router.Swap(cat); err != nil {
		return nil, err
	}
	logger.Info(ctx, "catalog", "reload.applied",
		slog.String("menu_source", r.src.Name()),
		slog.Int("categories", len(cat.Categories())),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return cat, nil
}
