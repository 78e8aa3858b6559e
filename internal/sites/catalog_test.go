package sites

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IshaanNene/RivalWatch/internal/types"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if got := len(c.ByKind(KindCompetitor)); got != 13 {
		t.Errorf("expected 13 competitors, got %d", got)
	}
	if got := len(c.ByKind(KindIndustry)); got != 2 {
		t.Errorf("expected 2 industry sites, got %d", got)
	}
	for _, s := range c.All() {
		if err := s.Validate(); err != nil {
			t.Errorf("site %s: %v", s.Name, err)
		}
		if s.Limit <= 0 || s.SummaryChars <= 0 {
			t.Errorf("site %s: defaults not applied", s.Name)
		}
	}
}

func TestCatalogGet(t *testing.T) {
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	s, err := c.Get("  pubmatic ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Name != "PubMatic" || !s.HasNewsFallback() {
		t.Errorf("unexpected site %+v", s)
	}

	_, err = c.Get("nonexistent")
	if !errors.Is(err, types.ErrUnknownSite) {
		t.Errorf("expected ErrUnknownSite, got %v", err)
	}
}

func TestCatalogSelect(t *testing.T) {
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	got, err := c.Select(KindCompetitor, []string{"magnite", "Unity"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Magnite" || got[1].Name != "Unity" {
		t.Errorf("unexpected selection %v", got)
	}
	if _, err := c.Select(KindCompetitor, []string{"AdExchanger"}); err == nil {
		t.Error("expected kind mismatch error")
	}
}

func TestAdExchangerLabel(t *testing.T) {
	c, _ := DefaultCatalog()
	s, err := c.Get("adexchanger")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Label() != "AdExchanger" || s.Limit != 5 {
		t.Errorf("unexpected AdExchanger descriptor: label=%q limit=%d", s.Label(), s.Limit)
	}
	if len(s.Listing.Category) == 0 || len(s.Listing.Scope) == 0 {
		t.Error("expected scope and category selectors")
	}
}

func TestParseCatalogRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad kind", "sites:\n  - {name: A, kind: other, url: 'https://a.com', listing: {items: [a]}}\n", "kind"},
		{"bad url", "sites:\n  - {name: A, kind: competitor, url: a.com, listing: {items: [a]}}\n", "invalid url"},
		{"no items", "sites:\n  - {name: A, kind: competitor, url: 'https://a.com'}\n", "listing.items"},
		{"bad tier", "sites:\n  - {name: A, kind: competitor, url: 'https://a.com', listing: {items: [a]}, escalation: {start: turbo}}\n", "tier"},
		{"inverted tiers", "sites:\n  - {name: A, kind: competitor, url: 'https://a.com', listing: {items: [a]}, escalation: {start: stealth, max: http}}\n", "above max"},
		{"bad filter", "sites:\n  - {name: A, kind: competitor, url: 'https://a.com', listing: {items: [a]}, filters: [nope]}\n", "unknown filter"},
		{"news only without query", "sites:\n  - {name: A, kind: competitor, news: {only: true}}\n", "news.only"},
		{"duplicate", "sites:\n  - {name: A, kind: competitor, url: 'https://a.com', listing: {items: [a]}}\n  - {name: a, kind: competitor, url: 'https://a.com', listing: {items: [a]}}\n", "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	data := "sites:\n  - name: Acme\n    kind: competitor\n    url: https://acme.example.com/news\n    listing:\n      items: [article]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s, err := c.Get("acme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Escalation.Start != TierHTTP || s.Escalation.Max != TierStealth {
		t.Errorf("unexpected default escalation %+v", s.Escalation)
	}
	if !s.Escalation.TierAllowed(TierBrowser) {
		t.Error("browser tier should be allowed")
	}
	if s.News.Limit != s.Limit {
		t.Errorf("news limit %d should default to site limit %d", s.News.Limit, s.Limit)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTierAllowed(t *testing.T) {
	e := Escalation{Start: TierHTTP, Max: TierBrowser}
	if !e.TierAllowed(TierHTTP) || !e.TierAllowed(TierBrowser) {
		t.Error("http and browser should be allowed")
	}
	if e.TierAllowed(TierStealth) || e.TierAllowed("bogus") {
		t.Error("stealth and unknown tiers should be rejected")
	}
}
