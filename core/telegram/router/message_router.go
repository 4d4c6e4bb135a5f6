package router

import (
	tg "github.com/m3rciful/menubot/core/telegram"
	"github.com/m3rciful/menubot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions sets the handlers for text and documents nothing else claimed.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	// Commands gates admin-only commands typed in a form the command
	// routes do not match, such as "/RELOAD".
	Commands CommandRouteOptions
}

// TextRoutes routes plain text and documents. Text naming a registered
// command or alias runs that command. Other text goes to the registry
// fallback, then to opts.UnknownText.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	onText := func(c tele.Context) error {
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return gated(key, cmd, opts.Commands)(c)
			}
			if fb := reg.TextFallback(); fb != nil {
				return summary{name: "fallback"}.run(c, fb)
			}
		}
		return summary{name: "unknown_text"}.run(c, opts.UnknownText)
	}
	onDocument := func(c tele.Context) error {
		return summary{name: "unexpected_document"}.run(c, opts.UnknownDocument)
	}
	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(onText)},
		{Endpoint: tele.OnDocument, Handler: wrap(onDocument)},
	}
}
