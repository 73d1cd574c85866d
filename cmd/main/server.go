package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	cron "github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gdbrns/go-whatsapp-multibot/internal"
	"github.com/gdbrns/go-whatsapp-multibot/internal/admin"
	"github.com/gdbrns/go-whatsapp-multibot/internal/config"
	"github.com/gdbrns/go-whatsapp-multibot/internal/metrics"
	"github.com/gdbrns/go-whatsapp-multibot/internal/provision"
	"github.com/gdbrns/go-whatsapp-multibot/internal/sessionserver"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/router"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the session generator web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(config.LoadServer())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cfg config.Server) error {
	m := metrics.New()

	// Intialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	manager := sessionserver.NewManager(cfg, func(dir string) provision.Transport {
		return provision.NewWhatsmeowTransport(dir)
	}, m)

	// Initialize Fiber
	app := fiber.New(fiber.Config{
		ErrorHandler: router.HttpErrorHandler,
		BodyLimit:    router.BodyLimitBytes(),
	})

	// Request ID + panic recovery (structured JSON)
	app.Use(requestid.New())
	app.Use(router.RecoveryMiddleware())

	// Router Compression
	app.Use(compress.New(compress.Config{
		Level: compress.Level(router.GZipLevel),
		Next: func(c *fiber.Ctx) bool {
			return strings.Contains(c.Path(), "docs")
		},
	}))

	// Router CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: router.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, X-Admin-Secret",
		AllowMethods: "GET,POST,DELETE",
	}))

	// Router Security
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	// Router Cache, never for polled or live endpoints
	app.Use(router.HttpCacheInMemory(router.CacheTTLSeconds, "/api", "/admin", "/health", "/metrics"))

	// Router RealIP + request context enrichment
	app.Use(router.HttpRealIP())

	refresher := pkgWhatsApp.NewVersionRefresher()

	// Load Internal Routes
	internal.Routes(app, sessionserver.NewHandler(manager, cfg), admin.NewHandler(refresher, manager), m)

	// Running Routines Tasks
	internal.Routines(c, refresher, internal.Routine{
		Name: "session sweep",
		Spec: cfg.SweepSpec,
		Run: func() {
			if removed := manager.Sweep(time.Now()); removed > 0 {
				log.Print(nil).WithField("removed", removed).Info("Expired sessions cleaned up")
			}
		},
	})

	// Start Server
	go func() {
		if err := app.Listen(cfg.Address + ":" + cfg.Port); err != nil {
			log.Print(nil).Fatal(err.Error())
		}
	}()
	log.Print(nil).WithField("service", cfg.Name).Info("🚀 Session generator listening on " + cfg.Address + ":" + cfg.Port)

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown

	log.Print(nil).WithField("sessions", manager.Len()).Info("Shutting down, cancelling active sessions")
	manager.Shutdown()

	// Wait 5 Seconds Before Graceful Shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Try To Shutdown Server
	if err := app.ShutdownWithContext(ctxShutdown); err != nil {
		return err
	}

	// Try To Shutdown Cron
	c.Stop()
	return nil
}
