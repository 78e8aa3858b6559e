package parser

import (
	"bytes"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/IshaanNene/RivalWatch/internal/types"
)

// DefaultContentSelectors locate the article body on typical press pages.
var DefaultContentSelectors = []string{
	"div.entry-content",
	"div.post-content",
	"div.article-content",
	"article",
	"main",
	".content",
}

const (
	noiseSelector     = "script, style, noscript, nav, header, footer, aside, form, iframe"
	paragraphSelector = "p, h2, h3, h4"
)

// DefaultMaxParagraphs bounds how many blocks are joined into body text.
const DefaultMaxParagraphs = 10

var ldPublished = regexp.MustCompile(`"datePublished"\s*:\s*"([^"]+)"`)

// ArticleRules controls detail page text extraction.
type ArticleRules struct {
	Content       []string `yaml:"content"`
	MaxParagraphs int      `yaml:"max_paragraphs"`
}

// ArticleText returns the main body text of a detail page. Content selectors
// are tried first; readability is the fallback when none of them yield text.
func ArticleText(body []byte, pageURL string, rules ArticleRules, logger *slog.Logger) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", &types.ParseError{URL: pageURL, Err: err}
	}
	doc.Find(noiseSelector).Remove()

	selectors := rules.Content
	if len(selectors) == 0 {
		selectors = DefaultContentSelectors
	}
	limit := rules.MaxParagraphs
	if limit <= 0 {
		limit = DefaultMaxParagraphs
	}

	for _, sel := range selectors {
		container := Select(doc.Selection, sel, logger).First()
		if container.Length() == 0 {
			continue
		}
		var parts []string
		container.Find(paragraphSelector).EachWithBreak(func(_ int, p *goquery.Selection) bool {
			if t := CleanText(p.Text()); t != "" {
				parts = append(parts, t)
			}
			return len(parts) < limit
		})
		if text := strings.Join(parts, " "); text != "" {
			return text, nil
		}
	}

	u, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", &types.ParseError{URL: pageURL, Selector: "readability", Err: err}
	}
	if text := CleanText(article.TextContent); text != "" {
		return text, nil
	}
	return "", &types.ParseError{URL: pageURL, Err: types.ErrEmptyResponse}
}

// PublishedDate finds the publication date on a detail page from <time>,
// Open Graph article metadata, or JSON-LD.
func PublishedDate(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	metaSelectors := []string{
		`meta[property="article:published_time"]`,
		`meta[itemprop="datePublished"]`,
		`meta[name="publish-date"]`,
		`meta[name="date"]`,
	}
	for _, sel := range metaSelectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if d, ok := ParseDate(v); ok {
				return d, true
			}
		}
	}

	if d, ok := ExtractDate(doc.Find("time").First(), ""); ok {
		return d, true
	}

	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := ldPublished.FindStringSubmatch(s.Text()); m != nil {
			if d, ok := ParseDate(m[1]); ok {
				found = d
				return false
			}
		}
		return true
	})
	return found, found != ""
}
