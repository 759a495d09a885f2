package telegram

import (
	"context"
	"runtime/debug"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"match-service/internal/model"
	"match-service/internal/util"
)

// Engine is the slice of the matching service the dispatcher drives.
type Engine interface {
	Start(ctx context.Context, userID int64) error
	Declare(ctx context.Context, userID int64, attr model.Attribute) error
	Next(ctx context.Context, userID int64) error
	Stop(ctx context.Context, userID int64) error
	RelayText(ctx context.Context, userID int64, text string) error
	RelayMedia(ctx context.Context, userID int64, media model.MediaRef, caption string) error
}

// callbackAPI is the part of the bot client needed to acknowledge inline
// button presses.
type callbackAPI interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Dispatcher translates Telegram updates into engine calls. Each update is
// handled on its own goroutine by the sources; Dispatch itself is
// synchronous and safe for concurrent use.
type Dispatcher struct {
	engine Engine
	api    callbackAPI
	logger *zap.Logger
}

func NewDispatcher(engine Engine, api callbackAPI, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = util.Get()
	}
	return &Dispatcher{engine: engine, api: api, logger: logger}
}

// Dispatch routes one update. Engine errors are outcome sentinels already
// surfaced to the user by the service layer, so they are only logged here.
func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic while handling update",
				util.Int("update_id", update.UpdateID),
				util.Any("panic", rec),
				util.String("stack", string(debug.Stack())))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		d.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		d.handleMessage(ctx, update.Message)
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Acknowledge first so the client stops its spinner regardless of outcome.
	if _, err := d.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		d.logger.Warn("answer callback", util.ErrorField(err))
	}

	userID := cq.From.ID
	var err error
	switch cq.Data {
	case CallbackDeclareMale:
		err = d.engine.Declare(ctx, userID, model.AttributeMale)
	case CallbackDeclareFemale:
		err = d.engine.Declare(ctx, userID, model.AttributeFemale)
	case CallbackNext:
		err = d.engine.Next(ctx, userID)
	case CallbackStop:
		err = d.engine.Stop(ctx, userID)
	default:
		d.logger.Warn("unknown callback data", util.String("data", cq.Data))
		return
	}
	if err != nil {
		d.logger.Debug("callback outcome",
			util.Int64("user_id", userID),
			util.String("data", cq.Data),
			util.ErrorField(err))
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	// Sessions are keyed by the sender, not the chat: the two differ for
	// anything other than a private chat.
	userID := msg.From.ID

	if msg.IsCommand() {
		var err error
		switch msg.Command() {
		case "start":
			err = d.engine.Start(ctx, userID)
		case "next":
			err = d.engine.Next(ctx, userID)
		case "stop":
			err = d.engine.Stop(ctx, userID)
		default:
			return
		}
		if err != nil {
			d.logger.Debug("command outcome",
				util.Int64("user_id", userID),
				util.String("command", msg.Command()),
				util.ErrorField(err))
		}
		return
	}

	if media, ok := extractMedia(msg); ok {
		if err := d.engine.RelayMedia(ctx, userID, media, msg.Caption); err != nil {
			d.logger.Debug("media relay outcome",
				util.Int64("user_id", userID),
				util.String("kind", string(media.Kind)),
				util.ErrorField(err))
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if err := d.engine.RelayText(ctx, userID, text); err != nil {
		d.logger.Debug("text relay outcome",
			util.Int64("user_id", userID),
			util.ErrorField(err))
	}
}

// extractMedia pulls a forwardable media reference out of a message. For
// photos Telegram supplies every resolution; the last entry is the largest.
func extractMedia(msg *tgbotapi.Message) (model.MediaRef, bool) {
	switch {
	case len(msg.Photo) > 0:
		return model.MediaRef{Kind: model.MediaPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID}, true
	case msg.Sticker != nil:
		return model.MediaRef{Kind: model.MediaSticker, FileID: msg.Sticker.FileID}, true
	case msg.Video != nil:
		return model.MediaRef{Kind: model.MediaVideo, FileID: msg.Video.FileID}, true
	case msg.Voice != nil:
		return model.MediaRef{Kind: model.MediaVoice, FileID: msg.Voice.FileID}, true
	case msg.Animation != nil:
		return model.MediaRef{Kind: model.MediaAnimation, FileID: msg.Animation.FileID}, true
	case msg.Document != nil:
		return model.MediaRef{Kind: model.MediaDocument, FileID: msg.Document.FileID}, true
	}
	return model.MediaRef{}, false
}
