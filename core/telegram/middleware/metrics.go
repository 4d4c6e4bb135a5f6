package middleware

import tele "gopkg.in/telebot.v4"

const countersKey = "menubot.delivered"

// delivered counts the messages a handler produced for one update.
type delivered struct {
	messages int
	keyboard bool
}

func countersOf(c tele.Context) *delivered {
	if d, ok := c.Get(countersKey).(*delivered); ok {
		return d
	}
	d := &delivered{}
	c.Set(countersKey, d)
	return d
}

// CountMessage records a message sent or edited outside tele.Context, for
// example through the bot API directly, so the handler summary reports it.
func CountMessage(c tele.Context, withKeyboard bool) {
	d := countersOf(c)
	d.messages++
	d.keyboard = d.keyboard || withKeyboard
}

// GetCounters returns how many messages were delivered for the update and
// whether any of them carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	d, _ := c.Get(countersKey).(*delivered)
	if d == nil {
		return 0, false
	}
	return d.messages, d.keyboard
}

func carriesKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		}
	}
	return false
}

// countingContext counts successful Send, Reply and Edit calls.
type countingContext struct{ tele.Context }

func (cc countingContext) count(err error, opts []interface{}) error {
	if err == nil {
		CountMessage(cc.Context, carriesKeyboard(opts))
	}
	return err
}

func (cc countingContext) Send(what interface{}, opts ...interface{}) error {
	return cc.count(cc.Context.Send(what, opts...), opts)
}

func (cc countingContext) Reply(what interface{}, opts ...interface{}) error {
	return cc.count(cc.Context.Reply(what, opts...), opts)
}

func (cc countingContext) Edit(what interface{}, opts ...interface{}) error {
	return cc.count(cc.Context.Edit(what, opts...), opts)
}

func (cc countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return cc.count(cc.Context.EditOrSend(what, opts...), opts)
}

// MessageMetricsMiddleware resets the per-update counters and hands the
// handler a context that counts what it sends.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(countersKey, &delivered{})
		return next(countingContext{Context: c})
	}
}
