package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type ctxKey int

const (
	keyLogger ctxKey = iota
	keyRID
	keyUpdate
	keyChat
	keyUser
	keyHandler
	keyAction
)

func withValue(ctx context.Context, key ctxKey, val any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, val)
}

func valueOf[T any](ctx context.Context, key ctxKey) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// WithLogger binds log to ctx. A nil logger leaves ctx untouched.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, keyLogger, log)
}

// FromContext returns the logger bound to ctx, falling back to L.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := valueOf[*slog.Logger](ctx, keyLogger); ok && l != nil {
		return l
	}
	return L
}

// WithRID attaches the update correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withValue(ctx, keyRID, rid)
}

// RIDFrom returns the correlation id stored by WithRID.
func RIDFrom(ctx context.Context) string {
	rid, _ := valueOf[string](ctx, keyRID)
	return rid
}

// WithUpdateMeta attaches the Telegram update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	ctx = withValue(ctx, keyUpdate, updateID)
	ctx = withValue(ctx, keyUser, userID)
	return withValue(ctx, keyChat, chatID)
}

// UpdateIDFrom returns the update id stored by WithUpdateMeta.
func UpdateIDFrom(ctx context.Context) int {
	id, _ := valueOf[int](ctx, keyUpdate)
	return id
}

// UserIDFrom returns the sender id stored by WithUpdateMeta.
func UserIDFrom(ctx context.Context) int64 {
	id, _ := valueOf[int64](ctx, keyUser)
	return id
}

// ChatIDFrom returns the chat id stored by WithUpdateMeta.
func ChatIDFrom(ctx context.Context) int64 {
	id, _ := valueOf[int64](ctx, keyChat)
	return id
}

// WithHandler names the handler serving the update. Empty names are ignored.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, keyHandler, handler)
}

// HandlerFrom returns the handler name stored by WithHandler.
func HandlerFrom(ctx context.Context) string {
	h, _ := valueOf[string](ctx, keyHandler)
	return h
}

// WithAction tags every log line of a menu request with the decoded action.
func WithAction(ctx context.Context, action string) context.Context {
	if action == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, keyAction, action)
}

// ActionFrom returns the action stored by WithAction.
func ActionFrom(ctx context.Context) string {
	a, _ := valueOf[string](ctx, keyAction)
	return a
}

// contextFields lists the request attributes copied from ctx into every record.
// Attributes set explicitly on the record win.
func contextFields(ctx context.Context) []field {
	if ctx == nil {
		return nil
	}
	var out []field
	if rid := RIDFrom(ctx); rid != "" {
		out = append(out, field{"rid", rid})
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		out = append(out, field{"update_id", id})
	}
	if id := UserIDFrom(ctx); id != 0 {
		out = append(out, field{"user_id", id})
	}
	if id := ChatIDFrom(ctx); id != 0 {
		out = append(out, field{"chat_id", id})
	}
	if h := HandlerFrom(ctx); h != "" {
		out = append(out, field{"handler", h})
	}
	if a := ActionFrom(ctx); a != "" {
		out = append(out, field{"action", a})
	}
	return out
}

// Sanitize drops control and format runes except newline and tab.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit sanitizes s and cuts it to at most max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(Sanitize(s))
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}

// BuildRID formats the correlation id as update:chat:user.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID renders an update:chat:user id as dot separated base36 parts.
// Anything else is returned trimmed but otherwise unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
