package admin

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-multibot/internal/sessionserver"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/router"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

// Handler serves the X-Admin-Secret protected maintenance endpoints.
type Handler struct {
	refresher *pkgWhatsApp.VersionRefresher
	sessions  *sessionserver.Manager
}

func NewHandler(refresher *pkgWhatsApp.VersionRefresher, sessions *sessionserver.Manager) *Handler {
	return &Handler{refresher: refresher, sessions: sessions}
}

// @Summary     Get WhatsApp Web Version
// @Description Show the WhatsApp Web version advertised when linking devices (Admin only)
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret key"
// @Success     200
// @Failure     401
// @Router      /admin/whatsapp/version [get]
func (h *Handler) GetWhatsAppWebVersion(c *fiber.Ctx) error {
	return router.ResponseSuccessWithData(c, "WhatsApp Web version", h.refresher.Status())
}

// @Summary     Refresh WhatsApp Web Version
// @Description Fetch the latest WhatsApp Web version now. Use force=true to skip the minimum interval (Admin only)
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret key"
// @Param       force query bool false "Ignore the minimum refresh interval"
// @Success     200
// @Failure     401
// @Failure     500
// @Router      /admin/whatsapp/version/refresh [post]
func (h *Handler) RefreshWhatsAppWebVersion(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	status, refreshed, err := h.refresher.Refresh(ctx, c.QueryBool("force", false))
	if err != nil {
		return router.ResponseInternalError(c, "Failed to refresh WhatsApp Web version: "+err.Error())
	}

	return router.ResponseSuccessWithData(c, "WhatsApp Web version refresh completed", fiber.Map{
		"refreshed": refreshed,
		"status":    status,
	})
}

// @Summary     Cancel Session Generator
// @Description Stop an in-flight session generator and delete its temporary files (Admin only)
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret key"
// @Param       id path string true "Session ID"
// @Success     200
// @Failure     401
// @Failure     404
// @Router      /admin/sessions/{id} [delete]
func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	if !h.sessions.Remove(c.Params("id")) {
		return router.ResponseNotFound(c, "Session not found")
	}
	return router.ResponseSuccess(c, "Session cancelled")
}
