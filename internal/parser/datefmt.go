package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// monthAlt matches a whole English month name or its abbreviation, so words
// like "Marketing" or "Mayor" never read as a month.
const monthAlt = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)(?:\.|\b)`

// datePattern is one recognized date shape; year, month and day index its submatches.
type datePattern struct {
	name  string
	re    *regexp.Regexp
	year  int
	month int
	day   int
}

// datePatterns are tried in order; the first pattern producing a real
// calendar date wins.
var datePatterns = []datePattern{
	{"iso", regexp.MustCompile(`(?:^|\D)(\d{4})-(\d{1,2})-(\d{1,2})(?:\D|$)`), 1, 2, 3},
	{"ymd", regexp.MustCompile(`(?:^|\D)(\d{4})[/.](\d{1,2})[/.](\d{1,2})(?:\D|$)`), 1, 2, 3},
	{"us_slash", regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`), 3, 1, 2},
	{"us_dash", regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`), 3, 1, 2},
	{"month_day_year", regexp.MustCompile(`(?i)\b` + monthAlt + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`), 3, 1, 2},
	{"day_month_year", regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+` + monthAlt + `,?\s+(\d{4})\b`), 3, 2, 1},
}

var urlDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/(\d{4})/(\d{1,2})/(\d{1,2})(?:/|$|[^\d])`),
	regexp.MustCompile(`/(\d{4})-(\d{2})-(\d{2})(?:/|$|[^\d])`),
}

// ParseDate finds the first recognizable date in text and returns it as YYYY-MM-DD.
func ParseDate(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if d, ok := buildDate(m[p.year], m[p.month], m[p.day]); ok {
				return d, true
			}
		}
	}
	return "", false
}

// ParseURLDate extracts a YYYY/MM/DD or YYYY-MM-DD date embedded in a URL path.
func ParseURLDate(rawURL string) (string, bool) {
	for _, re := range urlDatePatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			if d, ok := buildDate(m[1], m[2], m[3]); ok {
				return d, true
			}
		}
	}
	return "", false
}

// ExtractDate reads a date from an element: its datetime attribute, the
// named fallback attribute, a nested <time>, then its text.
func ExtractDate(sel *goquery.Selection, attr string) (string, bool) {
	if sel == nil || sel.Length() == 0 {
		return "", false
	}
	var sources []string
	if v, ok := sel.Attr("datetime"); ok {
		sources = append(sources, v)
	}
	if attr != "" {
		if v, ok := sel.Attr(attr); ok {
			sources = append(sources, v)
		}
	}
	if t := sel.Find("time").First(); t.Length() > 0 {
		if v, ok := t.Attr("datetime"); ok {
			sources = append(sources, v)
		}
		sources = append(sources, t.Text())
	}
	sources = append(sources, SpacedText(sel))

	for _, s := range sources {
		if d, ok := ParseDate(s); ok {
			return d, true
		}
	}
	return "", false
}

func buildDate(ys, ms, ds string) (string, bool) {
	year, err := strconv.Atoi(ys)
	if err != nil || year < 1990 || year > 2100 {
		return "", false
	}
	var month time.Month
	if n, err := strconv.Atoi(ms); err == nil {
		month = time.Month(n)
	} else {
		key := strings.ToLower(ms)
		if len(key) > 3 {
			key = key[:3]
		}
		month = monthNames[key]
	}
	if month < time.January || month > time.December {
		return "", false
	}
	day, err := strconv.Atoi(ds)
	if err != nil || day < 1 || day > 31 {
		return "", false
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return "", false // e.g. February 30
	}
	return t.Format("2006-01-02"), true
}
