package feeds

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"notesmith/internal/services"
)

// Entry is one feed item reduced to what intake needs.
type Entry struct {
	Title     string
	Ref       string
	Summary   string
	Published *time.Time
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	parser   *gofeed.Parser
	maxItems int
}

// NewFetcher builds a fetcher with a per-request timeout. maxItems caps the
// number of entries returned when the caller passes no limit.
func NewFetcher(timeout time.Duration, maxItems int) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "notesmith/1.0"
	parser.Client = &http.Client{Timeout: timeout}
	return &Fetcher{parser: parser, maxItems: maxItems}
}

// Fetch returns up to limit entries of the feed at feedURL in feed order.
// A limit of zero or less falls back to the fetcher's maximum.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, limit int) ([]Entry, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, services.Wrap(services.ErrValidation, "feeds", "fetch", "feed url required", nil)
	}
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		switch {
		case errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound:
			return nil, services.Wrap(services.ErrNotFound, "feeds", "fetch", "feed not found", err)
		case errors.Is(err, gofeed.ErrFeedTypeNotDetected):
			return nil, services.Wrap(services.ErrValidation, "feeds", "fetch", "not a feed", err)
		default:
			return nil, services.Wrap(services.ErrTransient, "feeds", "fetch", "download feed", err)
		}
	}
	return Entries(feed, f.limit(limit)), nil
}

func (f *Fetcher) limit(requested int) int {
	if requested > 0 && (f.maxItems <= 0 || requested < f.maxItems) {
		return requested
	}
	return f.maxItems
}

// Entries converts parsed feed items, skipping items with no usable
// reference. A limit of zero or less keeps every item.
func Entries(feed *gofeed.Feed, limit int) []Entry {
	if feed == nil {
		return nil
	}
	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		ref := itemRef(item)
		if ref == "" {
			continue
		}
		entries = append(entries, Entry{
			Title:     strings.TrimSpace(item.Title),
			Ref:       ref,
			Summary:   PlainText(firstNonEmpty(item.Description, item.Content)),
			Published: item.PublishedParsed,
		})
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries
}

// itemRef prefers the first audio or video enclosure and falls back to the
// item link.
func itemRef(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		kind := strings.ToLower(enclosure.Type)
		if strings.HasPrefix(kind, "audio/") || strings.HasPrefix(kind, "video/") {
			if url := strings.TrimSpace(enclosure.URL); url != "" {
				return url
			}
		}
	}
	return strings.TrimSpace(item.Link)
}

// PlainText strips markup from an HTML fragment and collapses whitespace.
func PlainText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
