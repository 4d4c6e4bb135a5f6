package menu

import (
	"errors"
	"strconv"
	"strings"

	coremenu "github.com/m3rciful/menubot/core/menu"
	"github.com/m3rciful/menubot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// API is the subset of *tele.Bot used to acknowledge and render.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

var errNoChat = errors.New("no chat to render into")

// render edits the referenced message in place, or sends a new one when the
// action came without a message to edit.
func render(api API, ref coremenu.MessageRef, out coremenu.ViewOutput) error {
	opts := &tele.SendOptions{
		ReplyMarkup:           keyboard.FromView(out),
		DisableWebPagePreview: true,
	}

	if ref.Editable() {
		msg := tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
		if _, err := api.Edit(msg, out.Text, opts); err != nil && !notModified(err) {
			return &DeliveryError{Op: OpEdit, Err: err}
		}
		return nil
	}

	if ref.ChatID == 0 {
		return &DeliveryError{Op: OpSend, Err: errNoChat}
	}
	if _, err := api.Send(tele.ChatID(ref.ChatID), out.Text, opts); err != nil {
		return &DeliveryError{Op: OpSend, Err: err}
	}
	return nil
}

// notModified reports Telegram's answer to an edit that changes nothing,
// e.g. a second tap on the button that rendered the current view.
func notModified(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}
