package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/RivalWatch/internal/types"
)

// DefaultNewsSearchURL is the Google News RSS search endpoint.
const DefaultNewsSearchURL = "https://news.google.com/rss/search"

// NewsEntry is one item from a news-search feed.
type NewsEntry struct {
	Title     string
	Link      string
	Published time.Time
	Publisher string
}

// Date returns the publication date as YYYY-MM-DD, or "" when unknown.
func (n NewsEntry) Date() string {
	if n.Published.IsZero() {
		return ""
	}
	return n.Published.Format(types.DateLayout)
}

// NewsSearch queries a news-search RSS feed. It stands in for sites whose
// newsroom cannot be scraped directly.
type NewsSearch struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    *slog.Logger
}

// NewNewsSearch creates a news-search client. An empty baseURL selects
// Google News.
func NewNewsSearch(client *http.Client, baseURL, userAgent string, logger *slog.Logger) *NewsSearch {
	if baseURL == "" {
		baseURL = DefaultNewsSearchURL
	}
	return &NewsSearch{
		client:    client,
		baseURL:   baseURL,
		userAgent: userAgent,
		logger:    logger.With("component", "news_search"),
	}
}

// SearchURL builds the feed URL for query.
func (n *NewsSearch) SearchURL(query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("hl", "en")
	v.Set("gl", "US")
	v.Set("ceid", "US:en")
	return n.baseURL + "?" + v.Encode()
}

// Search returns up to limit entries for query, in feed order.
func (n *NewsSearch) Search(ctx context.Context, query string, limit int) ([]NewsEntry, error) {
	feedURL := n.SearchURL(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, &types.FetchError{URL: feedURL, Tier: "news", Err: err, Retryable: isRetryableError(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &types.FetchError{URL: feedURL, StatusCode: resp.StatusCode, Tier: "news", Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, &types.ParseError{URL: feedURL, Err: err}
	}

	var out []NewsEntry
	for _, item := range feed.Items {
		if limit > 0 && len(out) >= limit {
			break
		}
		title, publisher := splitPublisher(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		entry := NewsEntry{Title: title, Link: item.Link, Publisher: publisher}
		if item.PublishedParsed != nil {
			entry.Published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			entry.Published = item.UpdatedParsed.UTC()
		}
		out = append(out, entry)
	}

	n.logger.Debug("news search", "query", query, "entries", len(out))
	return out, nil
}

// splitPublisher removes the trailing " - Publisher" that news aggregators
// append to headlines.
func splitPublisher(title string) (string, string) {
	title = strings.TrimSpace(title)
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}
