package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	cron "github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gdbrns/go-whatsapp-multibot/internal"
	"github.com/gdbrns/go-whatsapp-multibot/internal/bot"
	"github.com/gdbrns/go-whatsapp-multibot/internal/config"
	"github.com/gdbrns/go-whatsapp-multibot/internal/metrics"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the WhatsApp plugin bot",
	Long:  "Restores SESSION_ID, connects the linked device and dispatches chat commands to the bundled plugins.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(config.LoadBot())
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(cfg config.Bot) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, device, err := internal.Startup(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	m := metrics.New()
	if cfg.MetricsAddress != "" {
		app := fiber.New(fiber.Config{DisableStartupMessage: true})
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
		go func() {
			if err := app.Listen(cfg.MetricsAddress); err != nil {
				log.Bot().WithError(err).Error("Metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = app.ShutdownWithContext(shutdownCtx)
		}()
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())
	b := bot.New(cfg, device, m)
	internal.Routines(c, pkgWhatsApp.NewVersionRefresher(), internal.Routine{
		Name: "outbound limiter eviction",
		Spec: cfg.LimiterSweepSpec,
		Run: func() {
			if removed := b.EvictIdleLimiters(); removed > 0 {
				log.Bot().WithField("removed", removed).Debug("Idle send limiters released")
			}
		},
	})
	defer c.Stop()

	log.Bot().WithField("name", cfg.Name).WithField("prefix", cfg.Prefix).Info("🚀 Starting bot")
	return b.Run(ctx)
}
