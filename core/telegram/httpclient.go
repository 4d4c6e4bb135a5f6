package telegram

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/telegram/netutil"
)

const (
	apiClientTimeout = 30 * time.Second
	apiRetries       = 3
	apiRetryBackoff  = 2 * time.Second
)

// BuildHTTPClient returns the client used for Bot API calls. Failed calls
// are repeated only when repeating cannot edit or send a message twice.
func BuildHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
		// getUpdates holds the response open for the long-poll timeout, so
		// there is no ResponseHeaderTimeout.
	}
	return &http.Client{
		Timeout:   apiClientTimeout,
		Transport: &retryTransport{next: transport, retries: apiRetries, backoff: apiRetryBackoff},
	}
}

var errNoReplay = errors.New("telegram: request body cannot be replayed")

// retryTransport repeats failed round trips with a linear backoff.
type retryTransport struct {
	next    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	ctx := req.Context()
	attempt := req
	for n := 0; ; n++ {
		resp, err := next.RoundTrip(attempt)
		if err == nil || n == t.retries || !retryable(req, err) {
			return resp, err
		}
		again, rerr := replay(req)
		if rerr != nil {
			return nil, err
		}
		attempt = again
		logger.Debug(ctx, "tg.http", "retry",
			slog.String("op", netutil.APIMethod(req.URL.Path)),
			slog.Int("attempts", n+1),
			slog.Duration("backoff", t.backoff*time.Duration(n+1)),
		)
		if wait := t.backoff * time.Duration(n+1); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// replay clones req with a fresh body for another attempt.
func replay(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errNoReplay
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func retryable(req *http.Request, err error) bool {
	if netutil.NotSent(err) {
		return true
	}
	return req.URL != nil && netutil.SafeToRepeat(req.URL.Path) && netutil.ShouldRetry(err)
}
