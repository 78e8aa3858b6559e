// Package sites holds the data-driven descriptors for every scraped source
// and the relevance policies applied to their items.
package sites

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/RivalWatch/internal/parser"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

//go:embed sites.yaml
var defaultCatalog []byte

// Kind separates competitor newsrooms from industry publications.
type Kind string

const (
	KindCompetitor Kind = "competitor"
	KindIndustry   Kind = "industry"
)

// Fetch tiers, cheapest first.
const (
	TierHTTP    = "http"
	TierBrowser = "browser"
	TierStealth = "stealth"
)

var tierRank = map[string]int{TierHTTP: 0, TierBrowser: 1, TierStealth: 2}

// Escalation bounds which fetch tiers a site may use.
type Escalation struct {
	Start string `yaml:"start"`
	Max   string `yaml:"max"`
}

// Detail controls per-article page fetches.
type Detail struct {
	Fetch          bool                `yaml:"fetch"`
	DateFromDetail bool                `yaml:"date_from_detail"`
	Article        parser.ArticleRules `yaml:"article"`
}

// News configures the news-search RSS fallback.
type News struct {
	Queries []string `yaml:"queries"`
	// Only skips the site listing entirely.
	Only  bool `yaml:"only"`
	Limit int  `yaml:"limit"`
	// Filters apply to news-search entries on top of the site filters.
	Filters []string `yaml:"filters"`
}

// Site is a single scraped source.
type Site struct {
	Name         string              `yaml:"name"`
	Kind         Kind                `yaml:"kind"`
	Module       string              `yaml:"module"`
	URL          string              `yaml:"url"`
	Aliases      []string            `yaml:"aliases"`
	Listing      parser.ListingRules `yaml:"listing"`
	Detail       Detail              `yaml:"detail"`
	Escalation   Escalation          `yaml:"escalation"`
	News         News                `yaml:"news"`
	Limit        int                 `yaml:"limit"`
	Filters      []string            `yaml:"filters"`
	SummaryChars int                 `yaml:"summary_chars"`
}

// Label returns the module label used in reports, defaulting to the site name.
func (s *Site) Label() string {
	if s.Module != "" {
		return s.Module
	}
	return s.Name
}

// HasListing reports whether the site has a scrapeable listing page.
func (s *Site) HasListing() bool {
	return !s.News.Only && len(s.Listing.Items) > 0
}

// HasNewsFallback reports whether a news-search query is configured.
func (s *Site) HasNewsFallback() bool {
	return len(s.News.Queries) > 0
}

// Validate checks a descriptor for missing or inconsistent fields.
func (s *Site) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("site name is required")
	}
	if s.Kind != KindCompetitor && s.Kind != KindIndustry {
		return fmt.Errorf("site %q: kind must be competitor or industry, got %q", s.Name, s.Kind)
	}
	if s.News.Only {
		if !s.HasNewsFallback() {
			return fmt.Errorf("site %q: news.only requires at least one query", s.Name)
		}
	} else {
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("site %q: invalid url %q", s.Name, s.URL)
		}
		if len(s.Listing.Items) == 0 {
			return fmt.Errorf("site %q: listing.items is required", s.Name)
		}
	}
	for _, tier := range []string{s.Escalation.Start, s.Escalation.Max} {
		if _, ok := tierRank[tier]; !ok {
			return fmt.Errorf("site %q: unknown fetch tier %q", s.Name, tier)
		}
	}
	if tierRank[s.Escalation.Start] > tierRank[s.Escalation.Max] {
		return fmt.Errorf("site %q: escalation.start %q is above max %q", s.Name, s.Escalation.Start, s.Escalation.Max)
	}
	for _, f := range append(append([]string(nil), s.Filters...), s.News.Filters...) {
		if _, ok := filterFactories[f]; !ok {
			return fmt.Errorf("site %q: unknown filter %q", s.Name, f)
		}
	}
	return nil
}

func (s *Site) applyDefaults() {
	if s.Escalation.Start == "" {
		s.Escalation.Start = TierHTTP
	}
	if s.Escalation.Max == "" {
		s.Escalation.Max = TierStealth
	}
	if s.Limit <= 0 {
		s.Limit = 10
	}
	if s.News.Limit <= 0 {
		s.News.Limit = s.Limit
	}
	if s.SummaryChars <= 0 {
		s.SummaryChars = 500
	}
}

// Catalog is an ordered, name-indexed set of sites.
type Catalog struct {
	sites  []*Site
	byName map[string]*Site
}

type catalogFile struct {
	Sites []*Site `yaml:"sites"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file, or the built-in catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates YAML site descriptors.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode sites: %w", err)
	}

	c := &Catalog{byName: make(map[string]*Site, len(file.Sites))}
	for _, s := range file.Sites {
		s.applyDefaults()
		if err := s.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(s.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("duplicate site %q", s.Name)
		}
		c.byName[key] = s
		c.sites = append(c.sites, s)
	}
	return c, nil
}

// All returns every site in catalog order.
func (c *Catalog) All() []*Site {
	return append([]*Site(nil), c.sites...)
}

// ByKind returns the sites of one kind in catalog order.
func (c *Catalog) ByKind(k Kind) []*Site {
	var out []*Site
	for _, s := range c.sites {
		if s.Kind == k {
			out = append(out, s)
		}
	}
	return out
}

// Get looks a site up by name, case-insensitively.
func (c *Catalog) Get(name string) (*Site, error) {
	s, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", types.ErrUnknownSite, name, strings.Join(c.Names(), ", "))
	}
	return s, nil
}

// Select resolves names to sites of the given kind; no names selects all of them.
func (c *Catalog) Select(k Kind, names []string) ([]*Site, error) {
	if len(names) == 0 {
		return c.ByKind(k), nil
	}
	out := make([]*Site, 0, len(names))
	for _, n := range names {
		s, err := c.Get(n)
		if err != nil {
			return nil, err
		}
		if s.Kind != k {
			return nil, fmt.Errorf("site %q is %s, not %s", s.Name, s.Kind, k)
		}
		out = append(out, s)
	}
	return out, nil
}

// Names returns all site names sorted alphabetically.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.sites))
	for _, s := range c.sites {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// TierAllowed reports whether tier lies within the escalation bounds.
func (e Escalation) TierAllowed(tier string) bool {
	r, ok := tierRank[tier]
	return ok && r >= tierRank[e.Start] && r <= tierRank[e.Max]
}
