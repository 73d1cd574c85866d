package plugins

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gdbrns/go-whatsapp-multibot/internal/command"
)

func aliveUnit(deps Deps) func(command.Definer) error {
	return func(d command.Definer) error {
		return d.Define(command.Spec{
			Pattern:     "alive ?(.*)",
			Description: "Check if bot is alive",
			Category:    "misc",
		}, func(ctx context.Context, ev *command.Event, _ string, cc *command.Context) error {
			return ev.Reply(ctx, aliveCard(deps.BotName, cc.Version, cc.Prefix, time.Since(deps.Started)))
		})
	}
}

func aliveCard(name, version, prefix string, uptime time.Duration) string {
	if version == "" {
		version = "1.0.0"
	}
	return fmt.Sprintf(`🤖 *%[1]s IS ALIVE!*

🔥 *Status:* Online & Active
⚡ *Version:* %[2]s
⏰ *Uptime:* %[3]s
📱 *Bot Name:* %[1]s
🌐 *Runtime:* Go (%[4]s)

🚀 *Features:*
• Multi-Platform Downloads
• Latest News Headlines
• Hot-Reloadable Plugins

💬 *Commands:* Send %[5]smenu for command list`, name, version, formatUptime(uptime), runtime.Version(), prefix)
}
