package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/RivalWatch/internal/types"
)

// DefaultMinTitle is the shortest link text accepted as a title before
// falling back to image alt text or the URL slug.
const DefaultMinTitle = 10

const headingSelector = "h1, h2, h3, h4, h5"

// ListingRules describes how to pull articles out of a listing page. Every
// slice is an ordered candidate list; the first candidate matching anything wins.
type ListingRules struct {
	// Scope narrows the page to one section before Items are matched.
	Scope []string `yaml:"scope"`

	// Items select one container per article.
	Items []string `yaml:"items"`

	// Link selects the article anchor within a container. Defaults to a[href].
	Link []string `yaml:"link"`

	// Title selects the headline within a container. Defaults to the link text.
	Title []string `yaml:"title"`

	// Date selects the element holding the publication date.
	Date []string `yaml:"date"`

	// DateAttr is an extra attribute consulted on the date element.
	DateAttr string `yaml:"date_attr"`

	// Summary selects a teaser paragraph.
	Summary []string `yaml:"summary"`

	// Category selects a section label such as "Programmatic".
	Category []string `yaml:"category"`

	// LinkPattern, when set, must match the resolved article URL.
	LinkPattern string `yaml:"link_pattern"`

	MinTitle int `yaml:"min_title"`
}

// Candidate is one article found on a listing page.
type Candidate struct {
	Title    string
	URL      string
	RawDate  string
	Date     string
	Summary  string
	Category string
}

// Extractor applies ListingRules to listing pages.
type Extractor struct {
	rules  ListingRules
	linkRe *regexp.Regexp
	logger *slog.Logger
}

// NewExtractor compiles the rules.
func NewExtractor(rules ListingRules, logger *slog.Logger) (*Extractor, error) {
	if len(rules.Items) == 0 {
		return nil, fmt.Errorf("listing rules need at least one item selector")
	}
	if len(rules.Link) == 0 {
		rules.Link = []string{"a[href]"}
	}
	if rules.MinTitle <= 0 {
		rules.MinTitle = DefaultMinTitle
	}

	e := &Extractor{
		rules:  rules,
		logger: logger.With("component", "extractor"),
	}
	if rules.LinkPattern != "" {
		re, err := regexp.Compile(rules.LinkPattern)
		if err != nil {
			return nil, fmt.Errorf("compile link_pattern: %w", err)
		}
		e.linkRe = re
	}
	return e, nil
}

// Extract returns the article candidates found in body. An empty result with
// a nil error means the page parsed but no selector candidate matched.
func (e *Extractor) Extract(body []byte, pageURL string) ([]Candidate, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}

	root := doc.Selection
	if len(e.rules.Scope) > 0 {
		scope, _ := FirstMatch(root, e.rules.Scope, e.logger)
		if scope.Length() == 0 {
			e.logger.Debug("scope not found", "url", pageURL)
			return nil, nil
		}
		root = scope
	}

	containers, used := FirstMatch(root, e.rules.Items, e.logger)
	if containers.Length() == 0 {
		e.logger.Debug("no item selector matched", "url", pageURL, "tried", len(e.rules.Items))
		return nil, nil
	}

	seen := make(map[string]struct{})
	var out []Candidate
	containers.Each(func(_ int, c *goquery.Selection) {
		cand, ok := e.candidate(c, base)
		if !ok {
			return
		}
		key := strings.TrimRight(cand.URL, "/")
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, cand)
	})

	e.logger.Debug("listing extracted",
		"url", pageURL,
		"selector", used,
		"containers", containers.Length(),
		"candidates", len(out),
	)
	return out, nil
}

func (e *Extractor) candidate(c *goquery.Selection, base *url.URL) (Candidate, bool) {
	link := c
	if goquery.NodeName(c) != "a" {
		link, _ = FirstMatch(c, e.rules.Link, e.logger)
		link = link.First()
	}
	href, ok := link.Attr("href")
	if !ok {
		return Candidate{}, false
	}
	articleURL := resolveURL(base, href)
	if articleURL == "" {
		return Candidate{}, false
	}
	if e.linkRe != nil && !e.linkRe.MatchString(articleURL) {
		return Candidate{}, false
	}

	cand := Candidate{URL: articleURL}
	cand.Title = e.title(c, link, articleURL)
	if cand.Title == "" {
		return Candidate{}, false
	}

	var dateSel *goquery.Selection
	if len(e.rules.Date) > 0 {
		dateSel, _ = FirstMatch(c, e.rules.Date, e.logger)
		dateSel = dateSel.First()
	} else {
		dateSel = c
	}
	if dateSel.Length() > 0 {
		cand.RawDate = SpacedText(dateSel)
		if v, ok := dateSel.Attr("datetime"); ok {
			cand.RawDate = v
		}
		cand.Date, _ = ExtractDate(dateSel, e.rules.DateAttr)
	}
	if cand.Date == "" {
		cand.Date, _ = ParseURLDate(articleURL)
	}

	cand.Summary = FirstText(c, e.rules.Summary, e.logger)
	cand.Category = FirstText(c, e.rules.Category, e.logger)
	return cand, true
}

// title picks the headline: configured selector or link text, then a heading
// sibling, image alt text, and finally the humanized URL slug.
func (e *Extractor) title(c, link *goquery.Selection, articleURL string) string {
	var title string
	if len(e.rules.Title) > 0 {
		title = FirstText(c, e.rules.Title, e.logger)
	}
	if RuneLen(title) < e.rules.MinTitle {
		if t := CleanText(link.Text()); RuneLen(t) > RuneLen(title) {
			title = t
		}
	}
	if RuneLen(title) < e.rules.MinTitle {
		heading := link.Siblings().Filter(headingSelector).First()
		if heading.Length() == 0 {
			heading = c.Find(headingSelector).First()
		}
		if t := CleanText(heading.Text()); RuneLen(t) >= e.rules.MinTitle {
			title = t
		}
	}
	if RuneLen(title) < e.rules.MinTitle {
		if alt, ok := c.Find("img[alt]").First().Attr("alt"); ok && RuneLen(strings.TrimSpace(alt)) >= e.rules.MinTitle {
			title = CleanText(alt)
		}
	}
	if RuneLen(title) < e.rules.MinTitle {
		if slug := HumanizeSlug(articleURL); slug != "" {
			title = slug
		}
	}
	return title
}

// resolveURL resolves href against base, returning "" for non-navigational links.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
