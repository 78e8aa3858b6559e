package types

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical publication date format.
const DateLayout = "2006-01-02"

var dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ContentItem is a single piece of scraped news.
type ContentItem struct {
	// Title is the headline, possibly prefixed with "[Category] ".
	Title string `json:"title" bson:"title"`

	// Summary starts as the extracted body prefix and is replaced after summarization.
	Summary string `json:"summary" bson:"summary"`

	// Date is the publication date as YYYY-MM-DD, or empty when unknown.
	Date string `json:"date" bson:"date"`

	// URL is the article link.
	URL string `json:"url" bson:"url"`

	// Source names the company or publication the item came from.
	Source string `json:"source" bson:"source"`
}

// NewContentItem builds an item, clearing date when it is not a real calendar date.
func NewContentItem(title, summary, date, url, source string) *ContentItem {
	return &ContentItem{
		Title:   strings.TrimSpace(title),
		Summary: strings.TrimSpace(summary),
		Date:    ValidDate(date),
		URL:     strings.TrimSpace(url),
		Source:  source,
	}
}

// ValidDate returns the date unchanged if it is a valid YYYY-MM-DD string, else "".
func ValidDate(date string) string {
	date = strings.TrimSpace(date)
	if !dateShape.MatchString(date) {
		return ""
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return ""
	}
	return date
}

// Time returns the parsed publication date. ok is false when Date is empty.
func (c *ContentItem) Time() (t time.Time, ok bool) {
	if c.Date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, c.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SetSummary replaces the summary after LLM processing.
func (c *ContentItem) SetSummary(summary string) {
	c.Summary = summary
}

// SetTranslation replaces title and summary after translation.
func (c *ContentItem) SetTranslation(title, summary string) {
	c.Title = title
	c.Summary = summary
}
