// Package telegram adapts the matching engine to the Telegram Bot API:
// an outbound sink delivering texts, keyboards and forwarded media, plus
// long-polling and webhook inbound sources feeding a shared dispatcher.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"match-service/internal/model"
	"match-service/internal/transport"
)

// Sink delivers outbound messages through the Telegram Bot API.
type Sink struct {
	bot *tgbotapi.BotAPI
}

func NewSink(bot *tgbotapi.BotAPI) *Sink {
	return &Sink{bot: bot}
}

// SendText delivers text to userID, attaching the inline controls the
// engine asked for.
func (s *Sink) SendText(_ context.Context, userID int64, text string, controls transport.Controls) error {
	msg := tgbotapi.NewMessage(userID, text)
	switch controls {
	case transport.ControlsAttribute:
		msg.ReplyMarkup = AttributeKeyboard()
	case transport.ControlsSession:
		msg.ReplyMarkup = SessionKeyboard()
	}
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", userID, err)
	}
	return nil
}

// ForwardMedia re-sends media to userID by file reference; payload bytes
// never pass through this process.
func (s *Sink) ForwardMedia(_ context.Context, userID int64, media model.MediaRef, caption string) error {
	file := tgbotapi.FileID(media.FileID)

	var cfg tgbotapi.Chattable
	switch media.Kind {
	case model.MediaPhoto:
		c := tgbotapi.NewPhoto(userID, file)
		c.Caption = caption
		cfg = c
	case model.MediaSticker:
		cfg = tgbotapi.NewSticker(userID, file)
	case model.MediaVideo:
		c := tgbotapi.NewVideo(userID, file)
		c.Caption = caption
		cfg = c
	case model.MediaVoice:
		c := tgbotapi.NewVoice(userID, file)
		c.Caption = caption
		cfg = c
	case model.MediaDocument:
		c := tgbotapi.NewDocument(userID, file)
		c.Caption = caption
		cfg = c
	case model.MediaAnimation:
		c := tgbotapi.NewAnimation(userID, file)
		c.Caption = caption
		cfg = c
	default:
		return fmt.Errorf("unsupported media kind %q", media.Kind)
	}

	if _, err := s.bot.Send(cfg); err != nil {
		return fmt.Errorf("telegram forward %s to %d: %w", media.Kind, userID, err)
	}
	return nil
}
