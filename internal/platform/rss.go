package platform

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"socialpilot/internal/models"
)

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// RSS reads a publication history from an RSS or Atom feed. It carries no
// engagement signals. A "{account}" placeholder in the URL is replaced with
// the requested account.
type RSS struct {
	url    string
	parser *gofeed.Parser
	now    func() time.Time
}

// NewRSS creates a feed-backed timeline source.
func NewRSS(feedURL string) *RSS {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: 30 * time.Second}
	return &RSS{url: feedURL, parser: p, now: time.Now}
}

// FetchRecent parses the feed and returns up to limit entries in feed order.
func (r *RSS) FetchRecent(ctx context.Context, account string, limit int) ([]models.HistoricalDraft, error) {
	u := strings.ReplaceAll(r.url, "{account}", strings.TrimPrefix(account, "@"))
	feed, err := r.parser.ParseURLWithContext(u, ctx)
	if err != nil {
		return nil, fmt.Errorf("rss fetch %s: %w", u, err)
	}

	var out []models.HistoricalDraft
	for _, item := range feed.Items {
		if len(out) >= limit {
			break
		}
		text := plainText(item.Description)
		if text == "" {
			text = plainText(item.Content)
		}
		if text == "" {
			text = plainText(item.Title)
		}
		id := item.GUID
		if id == "" {
			id = item.Link
		}
		if id == "" || text == "" {
			continue
		}

		posted := r.now().UTC()
		switch {
		case item.PublishedParsed != nil:
			posted = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			posted = *item.UpdatedParsed
		}
		out = append(out, models.HistoricalDraft{
			ExternalID: id,
			Content:    text,
			PostedAt:   posted,
			Engagement: models.Engagement{},
		})
	}
	return out, nil
}

func plainText(s string) string {
	s = htmlTag.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}
