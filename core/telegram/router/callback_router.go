package router

import (
	"log/slog"

	"github.com/m3rciful/menubot/core/logger"
	tg "github.com/m3rciful/menubot/core/telegram"
	"github.com/m3rciful/menubot/core/telegram/callbacks"
	"github.com/m3rciful/menubot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute returns the route serving every inline button press.
// Button data is an action identifier, so all callbacks share one handler.
func CallbackRoute(handler tele.HandlerFunc) tg.Route {
	h := func(c tele.Context) error {
		if c.Callback() == nil || handler == nil {
			return nil
		}
		key := callbacks.CallbackKey(c)
		s := summary{
			name:   "callback." + normalizeHandlerName(key),
			extras: []slog.Attr{slog.String("cb_key", logger.SanitizeLimit(key, 128))},
		}
		return s.run(c, handler)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h)),
	}
}
