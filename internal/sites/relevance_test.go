package sites

import (
	"testing"

	"github.com/IshaanNene/RivalWatch/internal/types"
)

func TestAdRelated(t *testing.T) {
	f := NewAdRelated()
	tests := []struct {
		title, summary string
		want           bool
	}{
		{"Unity launches new ad mediation features", "", true},
		{"Unity Grow expands user acquisition tools", "", true},
		{"Unity 6 rendering tutorial", "", false},
		{"New shader graph features for game developers", "", false},
		{"Unity announces leadership update", "The company said monetization revenue rose.", true},
		{"Unity announces leadership update", "", false},
		{"Unity ads reach record revenue, game engine roadmap revealed", "", false},
	}
	for _, tt := range tests {
		item := &types.ContentItem{Title: tt.title, Summary: tt.summary}
		if got := f.Allow(item); got != tt.want {
			t.Errorf("AdRelated(%q, %q) = %v, want %v", tt.title, tt.summary, got, tt.want)
		}
	}
}

func TestCompanySubject(t *testing.T) {
	f := NewCompanySubject("Magnite")
	tests := []struct {
		title string
		want  bool
	}{
		{"Magnite reports Q4 revenue growth", true},
		{"Magnite and Netflix expand CTV partnership", true},
		{"XYZ Capital Management acquires stake in Magnite", false},
		{"Vanguard Group increases position in Magnite Inc", false},
		{"Shares of Magnite jump after earnings", false},
		{"Analyst lifts Magnite price target to $20", false},
		{"PubMatic launches new curation product", false},
	}
	for _, tt := range tests {
		if got := f.Allow(&types.ContentItem{Title: tt.title}); got != tt.want {
			t.Errorf("CompanySubject(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestCompanySubjectAliases(t *testing.T) {
	f := NewCompanySubject("TTD", "The Trade Desk")
	if !f.Allow(&types.ContentItem{Title: "The Trade Desk unveils Kokai upgrades"}) {
		t.Error("alias should match")
	}
}

func TestSiteFilters(t *testing.T) {
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	unity, _ := c.Get("Unity")
	if fs := Filters(unity); len(fs) != 1 || fs[0].Name() != "ad_related" {
		t.Errorf("unexpected unity filters %v", fs)
	}
	magnite, _ := c.Get("Magnite")
	if fs := Filters(magnite); len(fs) != 0 {
		t.Errorf("magnite listing should be unfiltered, got %v", fs)
	}
	if fs := NewsFilters(magnite); len(fs) != 1 || fs[0].Name() != "company_subject" {
		t.Errorf("unexpected magnite news filters %v", fs)
	}
}
