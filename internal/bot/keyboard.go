package bot

import tele "gopkg.in/telebot.v4"

// Home reply keyboard labels. They double as text commands: the text router
// matches them after emoji stripping.
const (
	btnHomeOrder    = "🖨 Сделать заказ"
	btnHomeStatus   = "📦 Мои заказы"
	btnHomeOperator = "📞 Оператор"
	btnHomeHelp     = "ℹ️ Помощь"
)

// replyButtons builds a reply keyboard from rows of text.
func replyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	var keyboard []tele.Row
	for _, row := range rows {
		var buttons []tele.Btn
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}

// removeKeyboard hides any reply keyboard on the client.
func removeKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

func homeKeyboard() *tele.ReplyMarkup {
	return replyButtons(
		[]string{btnHomeOrder},
		[]string{btnHomeStatus, btnHomeOperator},
		[]string{btnHomeHelp},
	)
}

// inlineBtn is a convenience wrapper for inline button properties.
type inlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// inlineRows builds an inline keyboard from rows of inlineBtn.
func inlineRows(rows ...[]inlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}
