package internal

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	swagger "github.com/gofiber/swagger"

	"github.com/gdbrns/go-whatsapp-multibot/pkg/auth"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/router"

	ctlAdmin "github.com/gdbrns/go-whatsapp-multibot/internal/admin"
	ctlIndex "github.com/gdbrns/go-whatsapp-multibot/internal/index"
	"github.com/gdbrns/go-whatsapp-multibot/internal/metrics"
	ctlSession "github.com/gdbrns/go-whatsapp-multibot/internal/sessionserver"
)

func Routes(app *fiber.App, sessions *ctlSession.Handler, admin *ctlAdmin.Handler, m *metrics.Metrics) {
	// Configure OpenAPI / Swagger
	specURL := router.BaseURL + "/docs/swagger.json"
	swaggerHandler := swagger.New(swagger.Config{
		URL: specURL,
	})

	// Route for Index
	// ---------------------------------------------
	if router.BaseURL == "" {
		app.Get("/", ctlIndex.Index)
	} else {
		app.Get(router.BaseURL, ctlIndex.Index)
		app.Get(router.BaseURL+"/", ctlIndex.Index)
	}

	// Route for OpenAPI / Swagger
	// ---------------------------------------------
	app.Get(router.BaseURL+"/docs/swagger.json", func(c *fiber.Ctx) error {
		return c.SendFile("docs/swagger.json")
	})
	app.Get(router.BaseURL+"/docs/*", swaggerHandler)

	// Route for Health and Metrics
	// ---------------------------------------------
	app.Get(router.BaseURL+"/health", sessions.Health)
	app.Get(router.BaseURL+"/metrics", adaptor.HTTPHandler(m.Handler()))

	// Route for Session Generator
	// ---------------------------------------------
	app.Post(router.BaseURL+"/api/generate-session", sessions.GenerateSession)
	app.Get(router.BaseURL+"/api/check-session/:id", sessions.CheckSession)
	app.Get(router.BaseURL+"/api/session-qr/:id", sessions.SessionQR)

	// Route for Admin (X-Admin-Secret authentication)
	// ---------------------------------------------
	adminMiddleware := auth.AdminAuth()

	app.Get(router.BaseURL+"/api/sessions", adminMiddleware, sessions.ListSessions)
	app.Delete(router.BaseURL+"/admin/sessions/:id", adminMiddleware, admin.DeleteSession)
	app.Get(router.BaseURL+"/admin/whatsapp/version", adminMiddleware, admin.GetWhatsAppWebVersion)
	app.Post(router.BaseURL+"/admin/whatsapp/version/refresh", adminMiddleware, admin.RefreshWhatsAppWebVersion)
}
