package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/gdbrns/go-whatsapp-multibot/internal/command"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/validation"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

// source describes one share-link download command.
type source struct {
	platform    string
	pattern     string
	description string
	usage       string
	caption     string
	// limit caps how many resolved items are sent.
	limit int
}

var (
	instagram = source{
		platform:    "instagram",
		pattern:     "insta ?(.*)",
		description: "Download Instagram posts, reels and stories",
		usage:       "_Example : insta url_",
		caption:     "📸 *Downloaded by %s*\n\n🔗 *Source:* Instagram\n\n_Enjoy your content! 🎉_",
		limit:       10,
	}
	tiktok = source{
		platform:    "tiktok",
		pattern:     "tiktok ?(.*)",
		description: "Download TikTok video",
		usage:       "_Example : tiktok url_",
		caption:     "🎵 *Downloaded by %s*\n\n🔗 *Source:* TikTok\n\n_Enjoy your TikTok! 🎭_",
		limit:       1,
	}
	mediafire = source{
		platform:    "mediafire",
		pattern:     "mediafire ?(.*)",
		description: "Download mediafire file",
		usage:       "_Example : mediafire url_",
		caption:     "📁 *Downloaded by %s*\n\n🔗 *Source:* MediaFire\n\n_File downloaded successfully! 📥_",
		limit:       1,
	}
)

const (
	notFoundText      = "*Not found*"
	notConfiguredText = "⚠️ Downloads are not configured. Set *DOWNLOADER_API_URL* and restart the bot."
)

func downloadUnit(deps Deps, src source) func(command.Definer) error {
	return func(d command.Definer) error {
		return d.Define(command.Spec{
			Pattern:     src.pattern,
			Description: src.description,
			Category:    "download",
		}, func(ctx context.Context, ev *command.Event, match string, _ *command.Context) error {
			link := linkArgument(ev, match)
			if !validation.IsURL(link) {
				return ev.Send(ctx, src.usage)
			}

			urls, err := deps.Downloader.Resolve(ctx, src.platform, link)
			if errors.Is(err, ErrNothingFound) {
				return ev.Reply(ctx, notFoundText)
			}
			if errors.Is(err, ErrDownloaderNotConfigured) {
				return ev.Reply(ctx, notConfiguredText)
			}
			if err != nil {
				return err
			}
			if len(urls) > src.limit {
				urls = urls[:src.limit]
			}

			caption := fmt.Sprintf(src.caption, deps.BotName)
			for _, u := range urls {
				remote, err := deps.Downloader.Fetch(ctx, u)
				if err != nil {
					return err
				}
				media := whatsapp.Media{
					Kind:     whatsapp.MediaKindFromMime(remote.Mimetype),
					Data:     remote.Data,
					Mimetype: remote.Mimetype,
					Caption:  caption,
					FileName: remote.FileName,
				}
				if err := ev.SendMedia(ctx, media, false); err != nil {
					return errors.Wrapf(err, "send %s media", src.platform)
				}
			}
			return nil
		})
	}
}

// linkArgument is the command argument, or the replied-to text when empty.
func linkArgument(ev *command.Event, match string) string {
	link := strings.TrimSpace(match)
	if link == "" && ev.Quoted != nil {
		link = strings.TrimSpace(ev.Quoted.Text)
	}
	return link
}
