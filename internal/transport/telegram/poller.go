package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"match-service/internal/util"
)

// Poller feeds updates from the Bot API long-polling endpoint into the
// dispatcher. It is the default inbound source.
type Poller struct {
	bot        *tgbotapi.BotAPI
	dispatcher *Dispatcher
	timeout    int
	logger     *zap.Logger
}

func NewPoller(bot *tgbotapi.BotAPI, dispatcher *Dispatcher, timeoutSeconds int, logger *zap.Logger) *Poller {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	if logger == nil {
		logger = util.Get()
	}
	return &Poller{bot: bot, dispatcher: dispatcher, timeout: timeoutSeconds, logger: logger}
}

// Run polls until ctx is cancelled. Each update is dispatched on its own
// goroutine so one slow store round trip never stalls the feed.
func (p *Poller) Run(ctx context.Context) error {
	// A lingering webhook blocks getUpdates; drop it before polling.
	if _, err := p.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}); err != nil {
		p.logger.Warn("delete webhook before polling", util.ErrorField(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout
	updates := p.bot.GetUpdatesChan(u)

	p.logger.Info("telegram poller started", util.Int("timeout_seconds", p.timeout))
	for {
		select {
		case <-ctx.Done():
			p.bot.StopReceivingUpdates()
			p.logger.Info("telegram poller stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go p.dispatcher.Dispatch(ctx, update)
		}
	}
}
