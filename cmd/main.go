// Command alerter watches an asset for red days and emails bounded
// dollar-cost-averaging buy alerts until the sequence completes.
//
// Usage:
//
//	alerter --config config.yaml
//	alerter --setup (interactive configuration wizard)
//	alerter (uses CLI arguments)
//
// Required environment variables for email delivery:
//
//	SENDER_EMAIL, SENDER_PASSWORD (and optionally SMTP_SERVER, SMTP_PORT)
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/adshao/go-binance/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LewisWJackson/RedDayDCAAlerter/config"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/services/notifier"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/services/pricer"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/services/trigger"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/setup"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/storage/triggerstate"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/web"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Setup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	store, err := triggerstate.NewWALStore(cfg.StateDir, cfg.Pair)
	if err != nil {
		logger.Fatal("failed to open state store", zap.Error(err))
	}

	// public market data only, no API keys needed
	source := pricer.NewBinancePriceSource(binance.NewClient("", ""), cfg.Pair)

	mailer := notifier.NewEmailNotifier(logger, notifier.Config{
		SMTPHost:      cfg.SMTP.Server,
		SMTPPort:      cfg.SMTP.Port,
		Sender:        cfg.SMTP.Sender,
		Password:      cfg.SMTP.Password,
		BrokerEmail:   cfg.BrokerEmail,
		PersonalEmail: cfg.PersonalEmail,
	}, cfg.Allocations)

	executor := trigger.NewExecutor(logger, store, mailer, cfg.Thresholds.MaxTriggers)

	alerter, err := internal.NewAlerter(logger, cfg, source, store, executor)
	if err != nil {
		logger.Fatal("failed to build alerter", zap.Error(err))
	}
	defer alerter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// completion or failure of the monitor loop shuts everything down
		defer stop()
		return alerter.Run(ctx)
	})
	if cfg.HTTPAddr != "" {
		srv := web.NewServer(logger, cfg.HTTPAddr, alerter)
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	logger.Info("started",
		zap.String("pair", cfg.Pair.String()),
		zap.Int("max_triggers", cfg.Thresholds.MaxTriggers))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(err.Error())
	}
}
