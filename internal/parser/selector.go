package parser

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// XPathPrefix marks a selector candidate as an XPath expression instead of CSS.
const XPathPrefix = "xpath:"

// Select evaluates one selector candidate within sel. XPath candidates are
// run against each node of sel with htmlquery; matches outside sel's
// subtree are discarded.
func Select(sel *goquery.Selection, expr string, logger *slog.Logger) *goquery.Selection {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, XPathPrefix) {
		return sel.Find(expr)
	}

	query := strings.TrimSpace(strings.TrimPrefix(expr, XPathPrefix))
	var nodes []*html.Node
	for _, n := range sel.Nodes {
		found, err := htmlquery.QueryAll(n, query)
		if err != nil {
			if logger != nil {
				logger.Warn("invalid xpath", "selector", query, "error", err)
			}
			return sel.FindNodes()
		}
		nodes = append(nodes, found...)
	}
	return sel.FindNodes(nodes...)
}

// FirstMatch tries candidates in order and returns the first non-empty
// selection along with the candidate that produced it.
func FirstMatch(sel *goquery.Selection, candidates []string, logger *slog.Logger) (*goquery.Selection, string) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if found := Select(sel, c, logger); found.Length() > 0 {
			return found, c
		}
	}
	return sel.FindNodes(), ""
}

// FirstText returns the cleaned text of the first element matched by the
// first non-empty candidate.
func FirstText(sel *goquery.Selection, candidates []string, logger *slog.Logger) string {
	found, _ := FirstMatch(sel, candidates, logger)
	if found.Length() == 0 {
		return ""
	}
	return CleanText(found.First().Text())
}
