package plugins

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gdbrns/go-whatsapp-multibot/internal/command"
)

func menuUnit(deps Deps) func(command.Definer) error {
	return func(d command.Definer) error {
		handler := func(ctx context.Context, ev *command.Event, match string, cc *command.Context) error {
			if name := strings.TrimSpace(match); name != "" {
				return ev.Reply(ctx, commandHelp(cc, name))
			}
			return ev.Reply(ctx, menu(ev.PushName, cc, time.Now(), time.Since(deps.Started)))
		}

		if err := d.Define(command.Spec{
			Pattern:     "menu ?(.*)",
			Description: "Show all commands",
			Category:    "misc",
		}, handler); err != nil {
			return err
		}
		return d.Define(command.Spec{
			Pattern:     "help ?(.*)",
			Description: "Show all commands or details of one",
			Category:    "misc",
			Hidden:      true,
		}, handler)
	}
}

func menu(user string, cc *command.Context, now time.Time, uptime time.Duration) string {
	if user == "" {
		user = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `╭────────────────
│ *👋 Hello %s!*
│ *🕒 Time:* %s
│ *📅 Day:* %s
│ *📆 Date:* %s
│ *🤖 Version:* %s
│ *📦 Plugins:* %d
│ *💾 RAM:* %s
│ *⏰ Uptime:* %s
│ *💻 Platform:* %s
│ *🔧 Prefix:* %s
╰────────────────`,
		user, now.Format("15:04:05"), now.Format("Monday"), now.Format("02/01/2006"),
		cc.Version, cc.PluginCount, ramUsage(), formatUptime(uptime), runtime.GOOS, cc.Prefix)

	groups := map[string][]string{}
	for _, cmd := range cc.Commands {
		if cmd.Hidden {
			continue
		}
		groups[cmd.Category] = append(groups[cmd.Category], cmd.Name)
	}
	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		fmt.Fprintf(&b, "\n\n╭─❏ *%s*", strings.ToUpper(category))
		for _, name := range groups[category] {
			fmt.Fprintf(&b, "\n│ %s%s", cc.Prefix, name)
		}
		b.WriteString("\n╰─────────────")
	}
	return b.String()
}

func commandHelp(cc *command.Context, name string) string {
	name = strings.TrimPrefix(strings.ToLower(name), cc.Prefix)
	for _, cmd := range cc.Commands {
		if cmd.Hidden || cmd.Name != name {
			continue
		}
		return fmt.Sprintf("*%s%s*\n%s\n\n_Category:_ %s", cc.Prefix, cmd.Name, cmd.Description, cmd.Category)
	}
	return fmt.Sprintf("_Command %q not found. Send %smenu for the list._", name, cc.Prefix)
}
