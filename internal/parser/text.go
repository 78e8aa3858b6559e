package parser

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	slugExt     = regexp.MustCompile(`\.(html?|aspx?|php)$`)
	slugTrailID = regexp.MustCompile(`[-_]\d{6,}$`)
)

// CleanText collapses runs of whitespace into single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// HumanizeSlug turns the last path segment of a URL into a readable title,
// e.g. ".../press/acme-launches-new-dsp-2026" -> "Acme Launches New Dsp 2026".
func HumanizeSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	seg := path.Base(strings.TrimRight(u.Path, "/"))
	if seg == "." || seg == "/" {
		return ""
	}
	seg = slugExt.ReplaceAllString(seg, "")
	seg = slugTrailID.ReplaceAllString(seg, "")
	seg = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(seg)

	words := strings.Fields(seg)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// SpacedText returns the text of sel with a space between adjacent text
// nodes, so "<a>Title</a><span>Feb 1, 2026</span>" does not fuse into
// "TitleFeb 1, 2026".
func SpacedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
