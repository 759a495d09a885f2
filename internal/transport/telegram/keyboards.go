package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Callback payloads carried by the inline buttons.
const (
	CallbackDeclareMale   = "gender_male"
	CallbackDeclareFemale = "gender_female"
	CallbackNext          = "action_next"
	CallbackStop          = "action_stop"
)

// AttributeKeyboard offers the gender declaration buttons.
func AttributeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧔 Male", CallbackDeclareMale),
			tgbotapi.NewInlineKeyboardButtonData("👩 Female", CallbackDeclareFemale),
		),
	)
}

// SessionKeyboard offers the in-conversation controls.
func SessionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Next", CallbackNext),
			tgbotapi.NewInlineKeyboardButtonData("🛑 Stop", CallbackStop),
		),
	)
}
