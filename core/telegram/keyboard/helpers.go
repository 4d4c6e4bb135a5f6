// Package keyboard converts view layouts into Telegram inline keyboards.
package keyboard

import (
	"github.com/m3rciful/menubot/core/menu"

	tele "gopkg.in/telebot.v4"
)

// FromView builds an inline keyboard with one Telegram row per view row.
// Link targets become URL buttons; action targets become callback buttons
// whose data is the raw action identifier.
func FromView(out menu.ViewOutput) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(out.Buttons))
	for _, row := range out.Buttons {
		r := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			r = append(r, inlineButton(b))
		}
		if len(r) > 0 {
			inline = append(inline, r)
		}
	}
	markup.InlineKeyboard = inline
	return markup
}

func inlineButton(b menu.Button) tele.InlineButton {
	if b.Target.IsLink() {
		return tele.InlineButton{Text: b.Label, URL: b.Target.URL}
	}
	return tele.InlineButton{Text: b.Label, Data: b.Target.Action}
}
