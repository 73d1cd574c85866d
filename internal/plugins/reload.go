package plugins

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/gdbrns/go-whatsapp-multibot/internal/command"
	"github.com/gdbrns/go-whatsapp-multibot/internal/plugin"
)

func reloadUnit(deps Deps) func(command.Definer) error {
	return func(d command.Definer) error {
		return d.Define(command.Spec{
			Pattern:     "reload",
			Description: "Reload plugins from the manifest",
			Category:    "owner",
			AdminOnly:   true,
			Hidden:      true,
		}, func(ctx context.Context, ev *command.Event, _ string, _ *command.Context) error {
			if deps.Reload == nil {
				return errors.New("plugin reload is not wired")
			}
			res, err := deps.Reload()
			if err != nil {
				return errors.Wrap(err, "reload plugins")
			}
			return ev.Reply(ctx, reloadSummary(res))
		})
	}
}

func reloadSummary(res plugin.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "♻️ *Reloaded %d plugins*", len(res.Loaded))
	if len(res.Disabled) > 0 {
		fmt.Fprintf(&b, "\n⏸ Disabled: %s", strings.Join(res.Disabled, ", "))
	}
	if len(res.Failed) > 0 {
		failed := make([]string, 0, len(res.Failed))
		for name := range res.Failed {
			failed = append(failed, name)
		}
		sort.Strings(failed)
		fmt.Fprintf(&b, "\n❌ Failed: %s", strings.Join(failed, ", "))
	}
	return b.String()
}
