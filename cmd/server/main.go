package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"match-service/internal/config"
	"match-service/internal/factory"
	"match-service/internal/handler"
	"match-service/internal/transport/telegram"
	"match-service/internal/util"
)

func main() {
	// Initialize factory (which loads config and initializes all clients)
	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	cfg := f.Config()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		util.Fatal("Failed to connect to Telegram", util.ErrorField(err))
	}
	util.Info("Telegram bot authorized", util.String("username", bot.Self.UserName))

	serviceFactory := f.ServiceFactory()
	matchmaker := serviceFactory.Matchmaker(telegram.NewSink(bot))
	dispatcher := telegram.NewDispatcher(matchmaker, bot, util.Get())
	reaper := serviceFactory.Reaper()

	var webhook *telegram.Webhook
	var webhookHandler http.HandlerFunc
	if cfg.Telegram.Mode == config.TelegramModeWebhook {
		webhook = telegram.NewWebhook(bot, dispatcher, cfg.Telegram.WebhookURL, util.Get())
		webhookHandler = webhook.Handler()
	}

	opsHandler := handler.NewOpsHandler(
		f.RedisClient(),
		f.WaitingPool(),
		f.SessionStore(),
		f.HistoryArchive(),
		util.Get(),
	)
	router := handler.NewRouter(opsHandler, webhookHandler, cfg.Telegram.WebhookPath, util.Get())

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		util.Info("HTTP server started",
			util.String("environment", cfg.Environment),
			util.String("address", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		return reaper.Run(ctx)
	})

	if webhook != nil {
		if err := webhook.Register(); err != nil {
			util.Fatal("Failed to register webhook", util.ErrorField(err))
		}
	} else {
		poller := telegram.NewPoller(bot, dispatcher, cfg.Telegram.PollTimeout, util.Get())
		group.Go(func() error {
			return poller.Run(ctx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		util.Error("Service exited with error", util.ErrorField(err))
	}
	util.Info("Shutdown completed")
}
