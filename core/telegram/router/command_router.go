package router

import (
	"log/slog"
	"sort"

	"github.com/m3rciful/menubot/core/logger"
	tg "github.com/m3rciful/menubot/core/telegram"
	"github.com/m3rciful/menubot/core/telegram/commands"
	"github.com/m3rciful/menubot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures access control for admin-only commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered command, and each of its aliases, to
// one wrapped handler. Routes come out sorted by command name.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	defs := reg.Commands()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	var routes []tg.Route
	for _, name := range names {
		h := middleware.LoggerMiddleware(middleware.RecoverMiddleware(gated(name, defs[name], opts)))
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range reg.Aliases(name) {
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.Info(logger.Background(), "tg.wire", "commands.bound",
		slog.Int("commands", len(names)),
		slog.Int("routes", len(routes)),
	)
	return routes
}

// gated wraps a command with its handler summary and, for admin-only
// commands, the admin gate. Every path that runs a command goes through it.
func gated(name string, def commands.Command, opts CommandRouteOptions) tele.HandlerFunc {
	s := summary{name: normalizeHandlerName(name)}
	h := func(c tele.Context) error { return s.run(c, def.Handler) }
	if !def.AdminOnly {
		return h
	}
	return middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})(h)
}
