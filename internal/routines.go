package internal

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gdbrns/go-whatsapp-multibot/pkg/env"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

// Routine is a cron job registered next to the built-in ones.
type Routine struct {
	Name string
	Spec string
	Run  func()
}

// Routines registers the WA Web version refresh (when enabled) and extra,
// then starts the scheduler.
func Routines(c *cron.Cron, refresher *pkgWhatsApp.VersionRefresher, extra ...Routine) {
	log.Print(nil).Info("Running Routine Tasks")

	if refresher != nil && env.GetEnvBoolOrDefault("WHATSAPP_ENABLE_WAVERSION_REFRESH_CRON", false) {
		spec := env.GetEnvStringOrDefault("WHATSAPP_WAVERSION_REFRESH_CRON_SPEC", "0 0 3 * * *")
		force := env.GetEnvBoolOrDefault("WHATSAPP_WAVERSION_REFRESH_CRON_FORCE", false)
		extra = append(extra, Routine{
			Name: "WA Web version refresh",
			Spec: spec,
			Run: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				status, refreshed, err := refresher.Refresh(ctx, force)
				entry := log.Print(nil).WithField("version", versionString(status.CurrentVersion)).WithField("force", force)
				if err != nil {
					entry.WithError(err).Error("WA Web version refresh failed")
					return
				}
				entry.WithField("refreshed", refreshed).Info("WA Web version refresh completed")
			},
		})
	}

	for _, r := range extra {
		if _, err := c.AddFunc(r.Spec, r.Run); err != nil {
			log.Print(nil).WithError(err).WithField("routine", r.Name).Error("Failed to add cron job")
			continue
		}
		log.Print(nil).WithField("routine", r.Name).WithField("spec", r.Spec).Info("Cron job enabled")
	}

	c.Start()
}

func versionString(v [3]uint32) string {
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, strconv.FormatUint(uint64(n), 10))
	}
	return strings.Join(parts, ".")
}
