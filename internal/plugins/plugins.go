// Package plugins holds the bundled command units.
package plugins

import (
	"fmt"
	"runtime"
	"time"

	"github.com/gdbrns/go-whatsapp-multibot/internal/plugin"
)

// Deps are the collaborators the bundled units share.
type Deps struct {
	BotName    string
	Started    time.Time
	Downloader *Downloader
	News       *NewsSource
	// Reload re-runs the plugin loader. It is resolved at call time so the
	// loader can be built from the table this package returns.
	Reload func() (plugin.Result, error)
}

// Units returns the static plugin table in load order.
func Units(deps Deps) []plugin.Unit {
	if deps.BotName == "" {
		deps.BotName = "KENTECH MULTIBOT"
	}
	if deps.Started.IsZero() {
		deps.Started = time.Now()
	}

	return []plugin.Unit{
		{Name: "alive", Register: aliveUnit(deps)},
		{Name: "menu", Register: menuUnit(deps)},
		{Name: "ping", Register: pingUnit},
		{Name: "reload", Register: reloadUnit(deps)},
		{Name: "insta", Register: downloadUnit(deps, instagram)},
		{Name: "tiktok", Register: downloadUnit(deps, tiktok)},
		{Name: "mediafire", Register: downloadUnit(deps, mediafire)},
		{Name: "news", Register: newsUnit(deps)},
	}
}

func formatUptime(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
}

func ramUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return fmt.Sprintf("%dMB", m.Sys/1024/1024)
}
