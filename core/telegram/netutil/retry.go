package netutil

import (
	"errors"
	"net"
	"path"
	"strings"
)

// idempotentMethods are the Bot API calls that may be repeated after they
// possibly reached Telegram. Sends, edits and callback answers are not listed.
var idempotentMethods = map[string]struct{}{
	"getupdates":     {},
	"getme":          {},
	"getwebhookinfo": {},
	"deletewebhook":  {},
	"setwebhook":     {},
	"setmycommands":  {},
	"getmycommands":  {},
}

// APIMethod extracts the Bot API method name from a request path such as
// /bot<token>/editMessageText.
func APIMethod(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}

// SafeToRepeat reports whether the Bot API method at path p may be retried
// after the request possibly reached the server.
func SafeToRepeat(p string) bool {
	_, ok := idempotentMethods[strings.ToLower(APIMethod(p))]
	return ok
}

// NotSent reports whether err happened before any request bytes were written,
// which makes a retry safe for every method.
func NotSent(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// ShouldRetry reports whether a transport error is transient: a failed dial
// or a timeout anywhere in the wrapped chain.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if NotSent(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
