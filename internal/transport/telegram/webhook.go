package telegram

import (
	"context"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"match-service/internal/util"
)

// Webhook is the push-based inbound source: Telegram POSTs each update to
// Handler after Register points the bot at the public URL.
type Webhook struct {
	bot        *tgbotapi.BotAPI
	dispatcher *Dispatcher
	publicURL  string
	logger     *zap.Logger
}

func NewWebhook(bot *tgbotapi.BotAPI, dispatcher *Dispatcher, publicURL string, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = util.Get()
	}
	return &Webhook{bot: bot, dispatcher: dispatcher, publicURL: publicURL, logger: logger}
}

// Register installs the webhook with Telegram and verifies it took.
func (w *Webhook) Register() error {
	wh, err := tgbotapi.NewWebhook(w.publicURL)
	if err != nil {
		return err
	}
	if _, err := w.bot.Request(wh); err != nil {
		return err
	}
	info, err := w.bot.GetWebhookInfo()
	if err != nil {
		return err
	}
	if info.LastErrorDate != 0 {
		w.logger.Warn("webhook reported a delivery error",
			util.String("message", info.LastErrorMessage))
	}
	w.logger.Info("telegram webhook registered", util.String("url", w.publicURL))
	return nil
}

// Deregister removes the webhook so a polling deployment can take over.
func (w *Webhook) Deregister() error {
	_, err := w.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false})
	return err
}

// Handler decodes one pushed update and dispatches it. Telegram retries on
// non-2xx, so malformed payloads are acknowledged and dropped.
func (w *Webhook) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			w.logger.Warn("malformed webhook payload", util.ErrorField(err))
			rw.WriteHeader(http.StatusOK)
			return
		}
		// The request context dies when this handler returns; detach so the
		// engine call can finish.
		go w.dispatcher.Dispatch(context.WithoutCancel(r.Context()), update)
		rw.WriteHeader(http.StatusOK)
	}
}
