package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nejkit/telegram-drive-bridge/bridge"
	"github.com/nejkit/telegram-drive-bridge/client"
	"github.com/nejkit/telegram-drive-bridge/config"
	"github.com/nejkit/telegram-drive-bridge/locale"
	"github.com/nejkit/telegram-drive-bridge/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		cfgPath   string
		authorize bool
	)

	flag.StringVar(&cfgPath, "config", "", "path to config yaml")
	flag.BoolVar(&authorize, "authorize", false, "wait for the drive authorization callback and exit")
	flag.Parse()

	cfg, err := config.Load(cfgPath)

	if err != nil {
		logrus.WithError(err).Fatal("failed load config")
	}

	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if authorize {
		if _, err := bridge.AwaitAuthorization(ctx, cfg.Auth.CallbackAddr, cfg.Auth.CallbackPath, cfg.Auth.Timeout); err != nil {
			logrus.WithError(err).Fatal("authorization failed")
		}

		logrus.Info("authorization code received")
		return
	}

	store, err := storage.Open(ctx, cfg.Storage)

	if err != nil {
		logrus.WithError(err).Fatal("failed open task storage")
	}

	defer func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Error("failed close task storage")
		}
	}()

	locales, err := locale.NewLocalizationProvider(cfg.Telegram.LocalizationFilePath)

	if err != nil {
		logrus.WithError(err).Fatal("failed load localization")
	}

	telegramClient, err := client.NewTelegramClient(cfg.Telegram)

	if err != nil {
		logrus.WithError(err).Fatal("failed create telegram client")
	}

	telegramClient.RunChatRatesCleanup(ctx)

	deps := bridge.Deps{
		Messenger: telegramClient,
		Store:     store,
		Locales:   locales,
	}

	var sessions []*client.Session

	if cfg.Bot.APIID != 0 {
		botSession := client.NewSession("bot", cfg.Bot)
		deps.StatusSource = botSession
		sessions = append(sessions, botSession)
	}

	if cfg.Admin.APIID != 0 {
		adminSession := client.NewSession("admin", cfg.Admin)
		deps.OriginSource = adminSession
		deps.Deleter = adminSession
		sessions = append(sessions, adminSession)
	}

	var wg sync.WaitGroup

	for _, session := range sessions {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := session.Run(ctx); err != nil {
				logrus.WithError(err).Error("mtproto session stopped")
				cancel()
			}
		}()
	}

	logrus.WithField("bot", telegramClient.BotUserName()).Info("starting drive bridge")

	bridge.New(ctx, cfg, deps).Run(ctx)

	wg.Wait()
}

func setupLogger(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)

	if err != nil {
		logrus.WithError(err).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
