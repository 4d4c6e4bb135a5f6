// Package callbacks decodes inline button payloads.
package callbacks

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"
)

// MaxDataLen is the Bot API limit for callback_data, in bytes.
const MaxDataLen = 64

// ParseCallbackData splits Telebot's \f<unique>|<payload> encoding.
// Plain callback data (no \f prefix) is returned as the key with an empty payload.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	parts := strings.SplitN(raw, "|", 2)
	key := strings.TrimSpace(parts[0])
	payload := ""
	if len(parts) == 2 {
		payload = parts[1]
	}
	return key, payload
}

// CallbackKey returns the routing key of the current callback, if any.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// ValidKey reports whether key can be used as a routable identifier:
// non-empty, within the Bot API size limit, and free of spaces and control runes.
func ValidKey(key string) bool {
	if key == "" || len(key) > MaxDataLen || !utf8.ValidString(key) {
		return false
	}
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '|' {
			return false
		}
	}
	return true
}
