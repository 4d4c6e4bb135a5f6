package menu

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/menubot/core/logger"
	coremenu "github.com/m3rciful/menubot/core/menu"
	tghelpers "github.com/m3rciful/menubot/core/telegram/helpers"
	"github.com/m3rciful/menubot/core/telegram/middleware"
	tgsender "github.com/m3rciful/menubot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Handler serves menu interactions: acknowledge, resolve, render.
type Handler struct {
	router     *coremenu.Router
	api        API
	dispatcher *tgsender.Dispatcher
}

// NewHandler wires a handler. A nil dispatcher renders on the caller's goroutine.
func NewHandler(router *coremenu.Router, api API, dispatcher *tgsender.Dispatcher) (*Handler, error) {
	if router == nil {
		return nil, errors.New("menu: nil router")
	}
	if api == nil {
		return nil, errors.New("menu: nil api")
	}
	return &Handler{router: router, api: api, dispatcher: dispatcher}, nil
}

// Handle is a tele.HandlerFunc for commands, callbacks and plain text.
func (h *Handler) Handle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if err := h.Process(ctx, DecodeAction(c), c.Callback()); err != nil {
		return err
	}
	middleware.CountMessage(c, true)
	return nil
}

// Process runs one decoded action. cb is the callback to acknowledge, nil for
// messages. When the acknowledgement fails nothing is rendered. Failed
// Telegram calls are reported once and never retried.
func (h *Handler) Process(ctx context.Context, action coremenu.Action, cb *tele.Callback) error {
	ctx = logger.WithAction(ctx, logger.SanitizeLimit(action.String(), 128))
	if cb != nil {
		if err := h.api.Respond(cb, &tele.CallbackResponse{}); err != nil {
			derr := &DeliveryError{Op: OpAck, Err: err}
			logDeliveryFailure(ctx, derr)
			return derr
		}
	}

	state, out := h.router.ResolveState(action)
	logger.Info(ctx, "menu", "menu.resolved",
		slog.String("state", string(state)),
		slog.Bool("edit", action.MessageRef.Editable()),
	)

	ref := action.MessageRef
	err := h.dispatcher.Do(ctx, ref.ChatID, "render", string(state), func() error {
		return render(h.api, ref, out)
	})
	if err != nil {
		var derr *DeliveryError
		if !errors.As(err, &derr) {
			derr = &DeliveryError{Op: OpSend, Err: err}
			if ref.Editable() {
				derr.Op = OpEdit
			}
		}
		logDeliveryFailure(ctx, derr)
		return derr
	}
	return nil
}

func logDeliveryFailure(ctx context.Context, err *DeliveryError) {
	logger.Error(ctx, "menu", "menu.delivery_failed",
		slog.String("op", err.Op),
		slog.String("err", logger.SanitizeLimit(err.Err.Error(), 256)),
		slog.String("err_code", err.Code()),
	)
}
