package sites

import (
	"regexp"
	"strings"

	"github.com/IshaanNene/RivalWatch/internal/types"
)

// RelevanceFilter decides whether an item belongs in the report.
type RelevanceFilter interface {
	Name() string
	Allow(item *types.ContentItem) bool
}

var filterFactories = map[string]func(*Site) RelevanceFilter{
	"ad_related":      func(*Site) RelevanceFilter { return NewAdRelated() },
	"company_subject": func(s *Site) RelevanceFilter { return NewCompanySubject(s.Name, s.Aliases...) },
}

// Filters builds the relevance filters configured for a site's listing items.
func Filters(s *Site) []RelevanceFilter {
	return build(s, s.Filters)
}

// NewsFilters builds the filters for news-search entries: the site filters
// followed by the news-specific ones.
func NewsFilters(s *Site) []RelevanceFilter {
	return build(s, append(append([]string(nil), s.Filters...), s.News.Filters...))
}

func build(s *Site, names []string) []RelevanceFilter {
	out := make([]RelevanceFilter, 0, len(names))
	for _, name := range names {
		if f, ok := filterFactories[name]; ok {
			out = append(out, f(s))
		}
	}
	return out
}

// wordSet compiles a case-insensitive alternation matched on word boundaries.
func wordSet(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(^|[^\pL\pN])(` + strings.Join(quoted, "|") + `)($|[^\pL\pN])`)
}

// --- Ad-related (Unity) ---

var adInclude = []string{
	"ad", "ads", "advertising", "advertiser", "advertisers", "monetization",
	"monetize", "monetisation", "programmatic", "dsp", "ssp", "exchange",
	"revenue", "campaign", "campaigns", "targeting", "attribution",
	"mediation", "bidding", "growth", "ua", "user acquisition", "app store",
	"aso", "levelplay", "ironsource", "unity grow", "vector",
}

var adExclude = []string{
	"game engine", "render", "rendering", "graphics", "shader", "shaders",
	"unity 6", "unity 5", "unity 3d", "unity3d", "tutorial", "asset store",
	"indie game", "game development", "unity learn", "unity forum",
}

// AdRelated keeps items about advertising and monetization, dropping engine
// and tooling news. Exclusions win over inclusions.
type AdRelated struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
}

// NewAdRelated builds the ad-related filter.
func NewAdRelated() *AdRelated {
	return &AdRelated{include: wordSet(adInclude), exclude: wordSet(adExclude)}
}

func (f *AdRelated) Name() string { return "ad_related" }

func (f *AdRelated) Allow(item *types.ContentItem) bool {
	text := item.Title + " " + item.Summary
	if f.exclude.MatchString(text) {
		return false
	}
	return f.include.MatchString(text)
}

// --- Company subject ---

var fundTradePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(acquires?|buys?|sells?|sold|trims?|boosts?|raises?|lifts?|lowers?|cuts?|reduces?|increases?|grows?|takes?|adds?|opens?|initiates?)\b.{0,40}\b(stake|position|holdings?)\b`),
	regexp.MustCompile(`(?i)\b(stake|position|holdings?)\s+in\b`),
	regexp.MustCompile(`(?i)\bshares\s+(of|in)\b`),
	regexp.MustCompile(`(?i)\b(13f|sec filing|institutional investor|hedge fund|asset management|wealth management|capital management|advisors?\s+llc)\b`),
	regexp.MustCompile(`(?i)\b(price target|analyst rating|rating (reiterated|upgraded|downgraded)|short interest)\b`),
}

// CompanySubject keeps headlines about the company itself and drops
// headlines about third parties trading its stock.
type CompanySubject struct {
	names *regexp.Regexp
}

// NewCompanySubject builds a filter for the named company and aliases.
func NewCompanySubject(name string, aliases ...string) *CompanySubject {
	return &CompanySubject{names: wordSet(append([]string{name}, aliases...))}
}

func (f *CompanySubject) Name() string { return "company_subject" }

func (f *CompanySubject) Allow(item *types.ContentItem) bool {
	if !f.names.MatchString(item.Title) {
		return false
	}
	for _, re := range fundTradePatterns {
		if re.MatchString(item.Title) {
			return false
		}
	}
	return true
}
