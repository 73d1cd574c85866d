package plugins

import (
	"context"
	"fmt"
	"time"

	"github.com/gdbrns/go-whatsapp-multibot/internal/command"
)

func pingUnit(d command.Definer) error {
	return d.Define(command.Spec{
		Pattern:     "ping ?(.*)",
		Description: "Measure bot response time",
		Category:    "misc",
	}, func(ctx context.Context, ev *command.Event, _ string, _ *command.Context) error {
		started := time.Now()
		if err := ev.Send(ctx, "```Ping!```"); err != nil {
			return err
		}
		return ev.Reply(ctx, fmt.Sprintf("*Pong!*\n```%d ms```", time.Since(started).Milliseconds()))
	})
}
