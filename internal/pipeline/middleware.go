package pipeline

import (
	"html"
	"regexp"
	"strings"

	"github.com/IshaanNene/RivalWatch/internal/sites"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

// --- Built-in Middleware ---

// TrimMiddleware trims whitespace from every text field.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(item *types.ContentItem) (*types.ContentItem, error) {
	item.Title = strings.TrimSpace(item.Title)
	item.Summary = strings.TrimSpace(item.Summary)
	item.URL = strings.TrimSpace(item.URL)
	item.Source = strings.TrimSpace(item.Source)
	return item, nil
}

// HTMLSanitizeMiddleware strips tags and entities from title and summary.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(item *types.ContentItem) (*types.ContentItem, error) {
	item.Title = m.clean(item.Title)
	item.Summary = m.clean(item.Summary)
	return item, nil
}

func (m *HTMLSanitizeMiddleware) clean(s string) string {
	if s == "" {
		return s
	}
	s = m.stripRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// RequiredFieldsMiddleware drops items missing any of the named fields
// (title, summary, date, url, source).
type RequiredFieldsMiddleware struct {
	Fields []string
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(item *types.ContentItem) (*types.ContentItem, error) {
	for _, field := range m.Fields {
		var v string
		switch field {
		case "title":
			v = item.Title
		case "summary":
			v = item.Summary
		case "date":
			v = item.Date
		case "url":
			v = item.URL
		case "source":
			v = item.Source
		default:
			continue
		}
		if v == "" {
			return nil, nil
		}
	}
	return item, nil
}

// DateRange is satisfied by the reporting window.
type DateRange interface {
	Contains(date string) bool
}

// WindowFilterMiddleware drops items dated outside the window. Undated
// items are dropped as well.
type WindowFilterMiddleware struct {
	Window DateRange
}

func (m *WindowFilterMiddleware) Name() string { return "window_filter" }

func (m *WindowFilterMiddleware) Process(item *types.ContentItem) (*types.ContentItem, error) {
	if !m.Window.Contains(item.Date) {
		return nil, nil
	}
	return item, nil
}

// RelevanceMiddleware drops items rejected by any relevance filter.
type RelevanceMiddleware struct {
	Filters []sites.RelevanceFilter
}

func (m *RelevanceMiddleware) Name() string { return "relevance" }

func (m *RelevanceMiddleware) Process(item *types.ContentItem) (*types.ContentItem, error) {
	for _, f := range m.Filters {
		if !f.Allow(item) {
			return nil, nil
		}
	}
	return item, nil
}
