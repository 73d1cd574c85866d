package log

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/gdbrns/go-whatsapp-multibot/pkg/env"
)

var logger = logrus.New()

func init() {
	logger.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     env.GetEnvBoolOrDefault("LOG_FORCE_COLORS", true),
	}

	level, err := logrus.ParseLevel(env.GetEnvStringOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func Print(c *fiber.Ctx) *logrus.Entry {
	if c == nil {
		return logger.WithFields(logrus.Fields{})
	}

	remoteIP := c.IP()
	if v := c.Locals("remote_ip"); v != nil {
		if ip, ok := v.(string); ok && ip != "" {
			remoteIP = ip
		}
	}
	return logger.WithFields(logrus.Fields{
		"remote_ip": remoteIP,
		"method":    c.Method(),
		"uri":       c.OriginalURL(),
	})
}

// Bot returns an entry for the live bot lifecycle
func Bot() *logrus.Entry {
	return logger.WithField("component", "bot")
}

// Command returns an entry scoped to a command invocation
func Command(name, chat string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"component": "command",
		"command":   name,
		"chat":      chat,
	})
}

// Plugin returns an entry scoped to a plugin unit
func Plugin(unit string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"component": "plugin",
		"unit":      unit,
	})
}

// Session returns an entry scoped to a provisioning session
func Session(id string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"component":  "session",
		"session_id": id,
	})
}
