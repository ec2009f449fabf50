package telegram

import (
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"petprint-bot/internal/bot"
)

// render turns one prompt into the Telegram messages that display it.
// Carousels have no Telegram equivalent and become one message per card.
func (a *Adapter) render(chatID int64, p bot.Prompt) []tgbotapi.Chattable {
	switch p.Kind {
	case bot.PromptChoices:
		return []tgbotapi.Chattable{a.card(chatID, p.Title, p.Image, p.Choices)}
	case bot.PromptCarousel:
		out := make([]tgbotapi.Chattable, 0, len(p.Cards))
		for _, c := range p.Cards {
			out = append(out, a.card(chatID, c.Title, c.Image, c.Choices))
		}
		return out
	default:
		if p.Text == "" {
			return nil
		}
		return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, p.Text)}
	}
}

func (a *Adapter) card(chatID int64, title, image string, choices []bot.Choice) tgbotapi.Chattable {
	keyboard := inlineKeyboard(choices)

	if src := absoluteURL(a.baseURL, image); src != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(src))
		photo.Caption = title
		if keyboard != nil {
			photo.ReplyMarkup = *keyboard
		}
		return photo
	}

	msg := tgbotapi.NewMessage(chatID, title)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	return msg
}

// inlineKeyboard puts each choice on its own row.
func inlineKeyboard(choices []bot.Choice) *tgbotapi.InlineKeyboardMarkup {
	if len(choices) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// absoluteURL resolves a catalog image path against the public base URL.
// Absolute URLs pass through; without a base URL images are dropped.
func absoluteURL(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return path
	}
	if base == "" {
		return ""
	}
	joined, err := url.JoinPath(base, path)
	if err != nil {
		return ""
	}
	return joined
}
