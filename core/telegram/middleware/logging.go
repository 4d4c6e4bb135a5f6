package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/menubot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers the last few update ids so a receipt is logged once
// even when the middleware sits on several route chains.
type seenUpdates struct {
	mu   sync.Mutex
	ring [128]int
	next int
	set  map[int]struct{}
}

var receipts = &seenUpdates{set: make(map[int]struct{})}

// firstSight reports whether id was not seen recently and remembers it.
func (s *seenUpdates) firstSight(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[id]; ok {
		return false
	}
	if len(s.set) == len(s.ring) {
		delete(s.set, s.ring[s.next])
	}
	s.ring[s.next] = id
	s.next = (s.next + 1) % len(s.ring)
	s.set[id] = struct{}{}
	return true
}

// updateKind names the update for the receipt line.
func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message == nil:
		return "other"
	case upd.Message.Document != nil:
		return "document"
	case len(upd.Message.Text) > 0 && upd.Message.Text[0] == '/':
		return "command"
	}
	return "text"
}

// LoggerMiddleware sets the update rid and logging context, then writes a
// sampled debug receipt for each update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		updateID, chatID, userID := tghelpers.Identity(c)
		rid := logger.BuildRID(updateID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())
		ctx := tghelpers.NewContext(c)

		if !logger.ShouldSampleDebug() || !receipts.firstSight(upd.ID) {
			return next(c)
		}
		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.String("kind", updateKind(upd)),
		}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if user := c.Sender(); user != nil {
			if user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
		}
		if upd.Callback != nil {
			key, payload := callbacks.ParseCallbackData(upd.Callback)
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
			if payload != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
			}
		} else if text := c.Text(); text != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(text, 256)))
		}
		logger.Debug(ctx, "tg", "update.received", attrs...)
		return next(c)
	}
}
