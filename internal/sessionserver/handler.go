package sessionserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-multibot/internal/config"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/router"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/validation"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

type generateRequest struct {
	Phone string `json:"phone"`
}

type Handler struct {
	manager *Manager
	cfg     config.Server
}

func NewHandler(manager *Manager, cfg config.Server) *Handler {
	return &Handler{manager: manager, cfg: cfg}
}

func errorBody(err, message string) fiber.Map {
	return fiber.Map{"error": err, "message": message}
}

// GenerateSession
// @Summary     Start a session generator
// @Description Starts linking a new device. Send a phone number to receive a pairing code instead of a QR code.
// @Tags        Session
// @Accept      json
// @Produce     json
// @Param       request body generateRequest false "Pairing phone number"
// @Success     200
// @Failure     400
// @Failure     500
// @Router      /api/generate-session [post]
func (h *Handler) GenerateSession(c *fiber.Ctx) error {
	var req generateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return router.ResponseJSON(c, http.StatusBadRequest, errorBody("Invalid request body", err.Error()))
		}
	}

	phone := ""
	if strings.TrimSpace(req.Phone) != "" {
		phone = validation.NormalizePhone(req.Phone)
		if err := validation.ValidatePhone(phone); err != nil {
			return router.ResponseJSON(c, http.StatusBadRequest, errorBody("Invalid phone number", err.Error()))
		}
	}

	session, err := h.manager.Start(c.UserContext(), phone)
	if err != nil {
		log.Print(c).WithError(err).Error("Error generating session")
		if phone != "" {
			return router.ResponseJSON(c, http.StatusInternalServerError, errorBody("Failed to generate pairing code", "Please try again"))
		}
		return router.ResponseJSON(c, http.StatusInternalServerError, errorBody("Failed to generate QR code", "Please try again"))
	}

	if session.Code != "" {
		return router.ResponseJSON(c, http.StatusOK, fiber.Map{
			"success":   true,
			"code":      session.Code,
			"sessionId": session.ID,
			"message":   "Pairing code generated successfully",
		})
	}

	qrImage, err := whatsapp.QRDataURL(session.QR)
	if err != nil {
		log.Print(c).WithError(err).Warn("Failed to render QR image")
	}
	return router.ResponseJSON(c, http.StatusOK, fiber.Map{
		"success":   true,
		"qr":        session.QR,
		"qrImage":   qrImage,
		"sessionId": session.ID,
		"message":   "QR code generated successfully",
	})
}

// CheckSession
// @Summary     Poll a session generator
// @Description Returns the session token once the device is linked. Finished entries are removed shortly after.
// @Tags        Session
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     200
// @Failure     404
// @Router      /api/check-session/{id} [get]
func (h *Handler) CheckSession(c *fiber.Ctx) error {
	session, ok := h.manager.Get(c.Params("id"))
	if !ok {
		return router.ResponseJSON(c, http.StatusNotFound, errorBody("Session not found", "Session may have expired or been cleaned up"))
	}

	switch session.Status {
	case StatusCompleted:
		h.manager.RemoveAfter(session.ID, h.cfg.CleanupDelay)
		return router.ResponseJSON(c, http.StatusOK, fiber.Map{
			"session": session.Token,
			"message": "Session generated successfully",
		})
	case StatusFailed:
		return router.ResponseJSON(c, http.StatusOK, fiber.Map{
			"session": nil,
			"status":  string(StatusFailed),
			"message": "Session generation failed, please start again",
		})
	}

	return router.ResponseJSON(c, http.StatusOK, fiber.Map{
		"session": nil,
		"status":  string(StatusPending),
		"message": "Waiting for WhatsApp connection",
	})
}

// SessionQR
// @Summary     Latest linking code of a session generator
// @Tags        Session
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     200
// @Failure     404
// @Router      /api/session-qr/{id} [get]
func (h *Handler) SessionQR(c *fiber.Ctx) error {
	session, ok := h.manager.Get(c.Params("id"))
	if !ok {
		return router.ResponseJSON(c, http.StatusNotFound, fiber.Map{"error": "Session not found"})
	}

	if session.Code != "" {
		return router.ResponseJSON(c, http.StatusOK, fiber.Map{"code": session.Code, "message": "Pairing code available"})
	}
	if session.QR == "" {
		return router.ResponseJSON(c, http.StatusOK, fiber.Map{"qr": nil, "message": "QR code not yet available"})
	}

	body := fiber.Map{"qr": session.QR, "message": "QR code available"}
	if qrImage, err := whatsapp.QRDataURL(session.QR); err == nil {
		body["qrImage"] = qrImage
	}
	return router.ResponseJSON(c, http.StatusOK, body)
}

// Health
// @Summary     Service health
// @Tags        Root
// @Produce     json
// @Success     200
// @Router      /health [get]
func (h *Handler) Health(c *fiber.Ctx) error {
	return router.ResponseJSON(c, http.StatusOK, fiber.Map{
		"status":         "healthy",
		"service":        h.cfg.Name,
		"timestamp":      time.Now().UTC().Format(time.RFC3339Nano),
		"activeSessions": h.manager.Len(),
	})
}

// ListSessions
// @Summary     List active session generators
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret"
// @Success     200
// @Failure     401
// @Router      /api/sessions [get]
func (h *Handler) ListSessions(c *fiber.Ctx) error {
	return router.ResponseSuccessWithData(c, "Active sessions", h.manager.List())
}
