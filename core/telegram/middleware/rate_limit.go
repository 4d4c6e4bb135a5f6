package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/menubot/core/logger"
	tghelpers "github.com/m3rciful/menubot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware. Exclude holds update
// classes ("callback", "message", "inline_query") that bypass the limit.
type RateLimitOptions struct {
	Interval time.Duration
	Exclude  map[string]struct{}
	// OnLimited answers a dropped update. Nil means AckLimited.
	OnLimited tele.HandlerFunc
}

// AckLimited answers a dropped callback with an empty response so the
// client stops its button spinner. Other updates need no answer.
func AckLimited(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond(&tele.CallbackResponse{})
}

func updateClass(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// senderClock tracks the last accepted update per sender. Entries older than
// the interval are swept at most once per interval.
type senderClock struct {
	mu    sync.Mutex
	every time.Duration
	last  map[int64]time.Time
	swept time.Time
}

func (s *senderClock) admit(id int64, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.swept) >= s.every {
		for k, t := range s.last {
			if now.Sub(t) >= s.every {
				delete(s.last, k)
			}
		}
		s.swept = now
	}
	if t, ok := s.last[id]; ok && now.Sub(t) < s.every {
		return false
	}
	s.last[id] = now
	return true
}

// RateLimitMiddleware drops updates arriving from the same sender faster
// than opts.Interval.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	onLimited := opts.OnLimited
	if onLimited == nil {
		onLimited = AckLimited
	}
	clock := &senderClock{every: opts.Interval, last: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			class := updateClass(c.Update())
			if _, skip := opts.Exclude[class]; skip {
				return next(c)
			}
			if clock.admit(user.ID, time.Now()) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", class),
			)
			if err := onLimited(c); err != nil {
				logger.Debug(tghelpers.BuildContext(c), "tg", "tg.rate_limit_ack",
					slog.String("err", err.Error()),
				)
			}
			return nil
		}
	}
}
