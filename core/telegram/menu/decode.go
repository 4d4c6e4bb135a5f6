// Package menu connects Telegram updates to the menu router: it decodes an
// update into an action, acknowledges callbacks, and renders the resolved view.
package menu

import (
	"github.com/m3rciful/menubot/core/catalog"
	coremenu "github.com/m3rciful/menubot/core/menu"
	"github.com/m3rciful/menubot/core/telegram/callbacks"
	"github.com/m3rciful/menubot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// StartCommands are the commands that open the main menu.
var StartCommands = []string{"/start", "/menu"}

// DecodeAction turns one Telegram update into a router action. It never
// fails: anything it cannot interpret becomes an unrecognized action bound
// to the chat it came from.
func DecodeAction(c tele.Context) coremenu.Action {
	if c == nil {
		return coremenu.Unrecognized("")
	}
	if cb := c.Callback(); cb != nil {
		return decodeCallback(c, cb)
	}

	ref := coremenu.MessageRef{ChatID: chatID(c)}
	text := c.Text()
	if isStartCommand(text) {
		return coremenu.Start().WithMessage(ref)
	}
	return coremenu.Unrecognized(text).WithMessage(ref)
}

func decodeCallback(c tele.Context, cb *tele.Callback) coremenu.Action {
	ref := coremenu.MessageRef{ChatID: chatID(c)}
	if cb.Message != nil && cb.Message.Chat != nil {
		ref = coremenu.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.ID}
	}

	key, payload := callbacks.ParseCallbackData(cb)
	raw := cb.Data
	if cb.Unique != "" {
		raw = cb.Unique
		if cb.Data != "" {
			raw += "|" + cb.Data
		}
	}
	// Menu buttons carry a bare view id; unique-prefixed data belongs to
	// some other handler even without a payload.
	if cb.Unique != "" || payload != "" || !callbacks.ValidKey(key) {
		return coremenu.Unrecognized(raw).WithMessage(ref)
	}
	if key == catalog.BackID {
		return coremenu.Back().WithMessage(ref)
	}
	return coremenu.Navigate(key).WithMessage(ref)
}

func isStartCommand(text string) bool {
	name := commands.Name(text)
	if name == "" {
		return false
	}
	for _, cmd := range StartCommands {
		if name == cmd {
			return true
		}
	}
	return false
}

// chatID falls back to the sender: in private chats the two ids coincide.
func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if user := c.Sender(); user != nil {
		return user.ID
	}
	return 0
}
