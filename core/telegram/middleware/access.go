package middleware

import (
	"log/slog"

	"github.com/m3rciful/menubot/core/logger"
	tghelpers "github.com/m3rciful/menubot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions restricts a handler to the operator account.
type AdminOptions struct {
	AdminID int64
	// OnReject answers callers that are not the admin. Nil drops them silently.
	OnReject tele.HandlerFunc
}

func (o AdminOptions) admits(u *tele.User) bool {
	return o.AdminID != 0 && u != nil && u.ID == o.AdminID
}

// AdminOnlyMiddleware lets only AdminID through. Without an AdminID nobody is.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.admits(c.Sender()) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg.access", "access.denied",
				slog.Bool("admin_configured", opts.AdminID != 0))
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
