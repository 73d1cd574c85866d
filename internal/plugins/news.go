package plugins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"

	"github.com/gdbrns/go-whatsapp-multibot/internal/command"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
)

const (
	newsFailureText = "❌ Unable to fetch news at the moment. Please try again later."
	newsLimit       = 10
)

// NewsSource reads headlines from an RSS or Atom feed.
type NewsSource struct {
	feedURL string
	parser  *gofeed.Parser
}

func NewNewsSource(feedURL string) *NewsSource {
	parser := gofeed.NewParser()
	parser.UserAgent = browserUserAgent
	return &NewsSource{feedURL: feedURL, parser: parser}
}

// Headlines returns at most limit items, optionally filtered by a case
// insensitive title query.
func (s *NewsSource) Headlines(ctx context.Context, query string, limit int) ([]*gofeed.Item, error) {
	if s == nil || s.feedURL == "" {
		return nil, errors.New("news feed is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	feed, err := s.parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch news feed")
	}

	query = strings.ToLower(strings.TrimSpace(query))
	items := make([]*gofeed.Item, 0, limit)
	for _, item := range feed.Items {
		if query != "" && !strings.Contains(strings.ToLower(item.Title), query) {
			continue
		}
		items = append(items, item)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func newsUnit(deps Deps) func(command.Definer) error {
	return func(d command.Definer) error {
		return d.Define(command.Spec{
			Pattern:     "news ?(.*)",
			Description: "Get latest news",
			Category:    "misc",
		}, func(ctx context.Context, ev *command.Event, match string, _ *command.Context) error {
			match = strings.TrimSpace(match)
			if strings.HasPrefix(match, "http") {
				return ev.Reply(ctx, "📰 *News Article*\n\n🔗 "+match)
			}

			items, err := deps.News.Headlines(ctx, match, newsLimit)
			if err != nil {
				log.Command("news", ev.Chat.String()).WithError(err).Warn("News fetch failed")
				return ev.Send(ctx, newsFailureText)
			}
			if len(items) == 0 {
				return ev.Reply(ctx, fmt.Sprintf("_No news found for %q_", match))
			}
			return ev.Send(ctx, headlineList(items))
		})
	}
}

func headlineList(items []*gofeed.Item) string {
	var b strings.Builder
	b.WriteString("📰 *Latest News*")
	for i, item := range items {
		fmt.Fprintf(&b, "\n\n🆔 %d\n🗞 %s", i+1, strings.TrimSpace(item.Title))
		if item.PublishedParsed != nil {
			fmt.Fprintf(&b, "\n📅 %s", item.PublishedParsed.Format(time.DateOnly))
		}
		if item.Link != "" {
			fmt.Fprintf(&b, "\n🔗 %s", item.Link)
		}
	}
	return b.String()
}
