package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/examwatch/noticebot/internal/bot"
	"github.com/examwatch/noticebot/internal/config"
	"github.com/examwatch/noticebot/internal/eventbus"
	"github.com/examwatch/noticebot/internal/gateway"
	"github.com/examwatch/noticebot/internal/logger"
	"github.com/examwatch/noticebot/internal/metrics"
	"github.com/examwatch/noticebot/internal/notification"
	"github.com/examwatch/noticebot/internal/pipeline"
	"github.com/examwatch/noticebot/internal/scraper"
	"github.com/examwatch/noticebot/internal/server"
	"github.com/examwatch/noticebot/internal/storage"
	"github.com/examwatch/noticebot/internal/summarizer"
	"github.com/examwatch/noticebot/internal/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the notice bot",
	Long:  "Start the polling pipeline, the Telegram command listener, and the health check server.",
	RunE:  runBot,
}

func runBot(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slogger := logger.New(cfg.SlogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, fresh, err := storage.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Printf("failed to close database: %v", cerr)
		}
	}()
	if fresh {
		slogger.Info("created new database", "path", cfg.DBPath)
	}

	gw := gateway.New(
		storage.NewSQLiteNoticeStore(db),
		storage.NewSQLiteSubscriberStore(db),
		slogger,
		cfg.CacheTTL(),
	)

	tgClient := telegram.New(cfg.TelegramBotToken)
	dispatcher := bot.NewDispatcher(tgClient, slogger)
	listener := bot.NewListener(tgClient, gw, slogger)

	gemini := summarizer.NewGemini(
		cfg.GeminiAPIKey, cfg.TempDir(), summarizer.PopplerRasterizer{}, slogger,
	)

	fetcher := scraper.New(cfg.SourceURL, slogger)
	m := metrics.New()

	processor := pipeline.NewProcessor(
		fetcher, gw, gemini, dispatcher, m, slogger, cfg.TempDir(),
	)

	bus := eventbus.New(slogger)
	defer bus.Close()
	processor.SetEventPublisher(bus)

	smtpCfg := notification.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		FromAddr:   cfg.SMTPFrom,
		ToAddrs:    cfg.SMTPTo,
		Encryption: cfg.SMTPEncryption,
	}
	if smtpCfg.Configured() {
		handler := notification.NewHandler(notification.NewSMTPProvider(smtpCfg), slogger)
		bus.Subscribe(handler.Handle)
		slogger.Info("operator notifications enabled", "provider", "smtp")
	}

	poller, err := pipeline.NewPoller(processor, cfg.PollMin(), cfg.PollMax(), slogger)
	if err != nil {
		return err
	}

	// Three tasks share only the gateway: the polling loop, the command
	// listener, and the health server.
	go listener.Run(ctx)

	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if serr := poller.Stop(); serr != nil {
			slogger.Error("failed to stop poller", "error", serr)
		}
	}()

	slogger.Info("noticebot started",
		"source_url", cfg.SourceURL, "health_port", cfg.HealthPort)

	return server.New(cfg.HealthPort, m, slogger).Run(ctx)
}
