// Package app wires configuration, catalog source, and Telegram transport
// into the runnable menu bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/menubot/core/bootstrap"
	"github.com/m3rciful/menubot/core/catalog"
	"github.com/m3rciful/menubot/core/catalog/source"
	coredatabase "github.com/m3rciful/menubot/core/database"
	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/menu"
	coretelegram "github.com/m3rciful/menubot/core/telegram"
	"github.com/m3rciful/menubot/core/telegram/commands"
	tgmenu "github.com/m3rciful/menubot/core/telegram/menu"
	"github.com/m3rciful/menubot/core/telegram/router"
)

// App owns the long-lived pieces of a running bot.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	source   source.Source
	router   *menu.Router
	reloader *source.Reloader
}

// Bootstrap initializes logging and, for the postgres source, the database
// (migrated and seeded with the built-in menu when empty), then loads the catalog.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:      &cfg.Config,
		Database:    cfg.Database,
		UseDatabase: cfg.UsesDatabase(),
		Modules: bootstrap.Modules{
			Seeders: []bootstrap.Seeder{bootstrap.SeederFunc(seedDefaultMenu)},
		},
	})
	if err != nil {
		return nil, err
	}
	a, err := New(ctx, cfg, res.DB)
	if err != nil {
		if res.DB != nil {
			_ = res.DB.Close()
		}
		return nil, err
	}
	return a, nil
}

// New builds the app around an already initialized database (nil unless the
// menu source is postgres).
func New(ctx context.Context, cfg *Config, db *sqlx.DB) (*App, error) {
	src, err := source.New(cfg.Menu, db)
	if err != nil {
		return nil, err
	}
	cat, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load %s catalog: %w", src.Name(), err)
	}
	r, err := menu.NewRouter(cat)
	if err != nil {
		return nil, err
	}
	reloader, err := source.NewReloader(src, r)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "catalog", "loaded",
		slog.String("menu_source", src.Name()),
		slog.Int("categories", len(cat.Categories())),
	)
	return &App{cfg: cfg, db: db, source: src, router: r, reloader: reloader}, nil
}

// Router returns the menu router serving updates.
func (a *App) Router() *menu.Router { return a.router }

// Reload re-reads the catalog from its source.
func (a *App) Reload(ctx context.Context) (*catalog.Catalog, error) {
	return a.reloader.Reload(ctx)
}

// TelegramRunOptions describes the bot: middleware chain, commands and routes.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	cfg := &a.cfg.Config
	return coretelegram.RunOptions{
		Config:      cfg,
		Registry:    coretelegram.NewRegistry(),
		Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
		BuildRoutes: a.routes,
	}, nil
}

func (a *App) routes(rt coretelegram.Runtime) ([]coretelegram.Route, error) {
	if rt.Bot == nil {
		return nil, errors.New("app: runtime without bot")
	}
	h, err := tgmenu.NewHandler(a.router, rt.Bot, rt.Dispatcher)
	if err != nil {
		return nil, err
	}

	reg := rt.Registry
	if err := registerCommands(reg, h, a.Reload); err != nil {
		return nil, err
	}
	reg.SetTextFallback(h.Handle)

	access := router.CommandRouteOptions{AdminID: a.cfg.Telegram.AdminID}
	routes := router.CommandRoutes(reg, access)
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{UnknownDocument: h.Handle, Commands: access})...)
	routes = append(routes, router.CallbackRoute(h.Handle))
	return routes, nil
}

func registerCommands(reg *coretelegram.Registry, h *tgmenu.Handler, reload tgmenu.ReloadFunc) error {
	return errors.Join(
		reg.RegisterCommand("/start", commands.Command{
			Handler:     h.Handle,
			Description: "Главное меню",
			Aliases:     []string{"menu"},
		}),
		reg.RegisterCommand("/help", commands.Command{
			Handler:     tgmenu.HelpHandler(""),
			Description: "Как пользоваться ботом",
		}),
		reg.RegisterCommand("/reload", commands.Command{
			Handler:     tgmenu.ReloadHandler(reload),
			Description: "Перечитать меню",
			AdminOnly:   true,
		}),
		reg.RegisterCommand("/version", commands.Command{
			Handler:     tgmenu.VersionHandler(),
			Description: "Версия сборки",
			AdminOnly:   true,
		}),
	)
}

// BackgroundTasks returns jobs that run next to the bot: the content file
// watcher and the cron reload, when configured.
func (a *App) BackgroundTasks() []func(context.Context) error {
	reload := func(ctx context.Context) error {
		_, err := a.reloader.Reload(ctx)
		return err
	}
	var tasks []func(context.Context) error
	if m := a.cfg.Menu; m.Watch {
		tasks = append(tasks, func(ctx context.Context) error {
			return source.Watch(ctx, m.ContentPath, source.DefaultDebounce, reload)
		})
	}
	if expr := a.cfg.Menu.ReloadSchedule; expr != "" {
		tasks = append(tasks, func(ctx context.Context) error {
			return source.Schedule(ctx, expr, reload)
		})
	}
	return tasks
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Check loads the configured catalog without starting the bot. The postgres
// source connects but does not migrate.
func Check(ctx context.Context, cfg *Config) (*catalog.Catalog, error) {
	var db *sqlx.DB
	if cfg.UsesDatabase() {
		conn, err := coredatabase.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		db = conn
	}
	src, err := source.New(cfg.Menu, db)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}

func seedDefaultMenu(ctx context.Context, db *sqlx.DB) error {
	content, err := catalog.DefaultContent()
	if err != nil {
		return err
	}
	_, err = coredatabase.SeedMenuContent(ctx, db, content)
	return err
}
