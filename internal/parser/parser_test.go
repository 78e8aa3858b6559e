package parser

import (
	"log/slog"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const listingHTML = `<!DOCTYPE html>
<html>
<body>
  <div class="news-list">
    <div class="item">
      <a href="/news/acme-launches-dsp">Acme launches new DSP for CTV</a>
      <span class="date">February 10, 2026</span>
    </div>
    <div class="item">
      <a href="https://example.com/news/2026/02/05/q4-results"><img src="x.png" alt="Acme reports record Q4 results"></a>
    </div>
    <div class="item">
      <a href="/news/partner-deal"><h3>Short</h3></a>
      <time datetime="2026-01-15T08:00:00Z">Jan 15</time>
    </div>
    <div class="item">
      <a href="#top">Back to top of the page</a>
    </div>
  </div>
</body>
</html>`

// --- Date Parser Tests ---

func TestParseDateFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-02-11", "2026-02-11"},
		{"02/11/2026", "2026-02-11"},
		{"February 11, 2026", "2026-02-11"},
		{"Feb. 11, 2026", "2026-02-11"},
		{"Feb 11 2026", "2026-02-11"},
		{"11 February 2026", "2026-02-11"},
		{"2026/2/11", "2026-02-11"},
		{"2026.02.11", "2026-02-11"},
		{"2-11-2026", "2026-02-11"},
		{"2026-02-11T09:30:00Z", "2026-02-11"},
		{"Posted on March 3rd, 2026 by PR", "2026-03-03"},
		{"2026-2-5", "2026-02-05"},
		{"Sept. 3, 2026", "2026-09-03"},
		{"Updated June 9 2026", "2026-06-09"},
		{"Marketing update, May 4, 2026", "2026-05-04"},
		{"(2026-02-11)", "2026-02-11"},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if !ok {
			t.Errorf("ParseDate(%q) failed, want %q", tt.in, tt.want)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDateEquivalentInputs(t *testing.T) {
	inputs := []string{"02/11/2026", "February 11, 2026", "2026-02-11"}
	for _, in := range inputs {
		if got, _ := ParseDate(in); got != "2026-02-11" {
			t.Errorf("ParseDate(%q) = %q, want 2026-02-11", in, got)
		}
	}
}

func TestParseDateFailures(t *testing.T) {
	for _, in := range []string{
		"", "no date here", "2026-02-30", "13/02/2026", "Q1 2026",
		"Marketing 10, 2026 outlook", "Mayor 3 2026", "Decision 5 2026",
		"Released 2026-02-115", "Build 12026-02-11", "Feb 11 20265",
	} {
		if got, ok := ParseDate(in); ok {
			t.Errorf("ParseDate(%q) = %q, expected failure", in, got)
		}
	}
}

func TestParseURLDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://example.com/2026/02/10/some-story", "2026-02-10", true},
		{"https://example.com/news/2026-02-09-launch", "2026-02-09", true},
		{"https://example.com/2026/02/", "", false},
		{"https://example.com/news/launch", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseURLDate(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseURLDate(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// --- Extractor Tests ---

func TestExtractorSelectorFallback(t *testing.T) {
	e, err := NewExtractor(ListingRules{Items: []string{".does-not-exist", "div.item"}}, testLogger)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	cands, err := e.Extract([]byte(listingHTML), "https://example.com/news")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %+v", len(cands), cands)
	}

	want := []struct{ title, url, date string }{
		{"Acme launches new DSP for CTV", "https://example.com/news/acme-launches-dsp", "2026-02-10"},
		{"Acme reports record Q4 results", "https://example.com/news/2026/02/05/q4-results", "2026-02-05"},
		{"Partner Deal", "https://example.com/news/partner-deal", "2026-01-15"},
	}
	for i, w := range want {
		if cands[i].Title != w.title {
			t.Errorf("candidate %d title = %q, want %q", i, cands[i].Title, w.title)
		}
		if cands[i].URL != w.url {
			t.Errorf("candidate %d url = %q, want %q", i, cands[i].URL, w.url)
		}
		if cands[i].Date != w.date {
			t.Errorf("candidate %d date = %q, want %q", i, cands[i].Date, w.date)
		}
	}
}

func TestExtractorXPathCandidates(t *testing.T) {
	e, err := NewExtractor(ListingRules{Items: []string{"xpath://div[@class='item']"}}, testLogger)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	cands, err := e.Extract([]byte(listingHTML), "https://example.com/news")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(cands) != 3 {
		t.Errorf("expected 3 candidates via xpath, got %d", len(cands))
	}
}

func TestExtractorNoMatch(t *testing.T) {
	e, _ := NewExtractor(ListingRules{Items: []string{"article.card"}}, testLogger)
	cands, err := e.Extract([]byte(listingHTML), "https://example.com/news")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("expected no candidates, got %d", len(cands))
	}
}

func TestExtractorScopeAndCategory(t *testing.T) {
	page := `<html><body>
	<section><h2>Latest</h2><ol class="list-ordered"><li><h3><a href="/latest-story-headline">Not in popular list</a></h3></li></ol></section>
	<section>
	  <h2>Popular</h2>
	  <ol class="list-ordered">
	    <li><a class="link-label" href="/cat/programmatic">Programmatic</a><h3><a href="/2026/02/10/ctv-ad-spend-jumps">CTV ad spend jumps again</a></h3></li>
	    <li><a class="link-label" href="/cat/privacy">Privacy</a><h3><a href="/2026/02/09/cookie-deprecation-update">Cookie deprecation update</a></h3></li>
	  </ol>
	</section></body></html>`

	e, err := NewExtractor(ListingRules{
		Scope:    []string{"xpath://h2[contains(normalize-space(.), 'Popular')]/following::ol[contains(@class, 'list-ordered')][1]"},
		Items:    []string{"li"},
		Link:     []string{"h3 a"},
		Category: []string{"a.link-label"},
	}, testLogger)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	cands, err := e.Extract([]byte(page), "https://www.adexchanger.com/")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 popular candidates, got %d", len(cands))
	}
	if cands[0].Category != "Programmatic" || cands[0].Title != "CTV ad spend jumps again" {
		t.Errorf("unexpected first candidate %+v", cands[0])
	}
	if cands[1].Date != "2026-02-09" {
		t.Errorf("expected URL date, got %q", cands[1].Date)
	}
}

func TestNewExtractorRequiresItems(t *testing.T) {
	if _, err := NewExtractor(ListingRules{}, testLogger); err == nil {
		t.Error("expected error without item selectors")
	}
	if _, err := NewExtractor(ListingRules{Items: []string{"a"}, LinkPattern: "("}, testLogger); err == nil {
		t.Error("expected error for bad link pattern")
	}
}

// --- Article Tests ---

func TestArticleTextContentSelector(t *testing.T) {
	page := `<html><head><script>var x = 1;</script></head><body>
	<nav><p>Menu item</p></nav>
	<div class="entry-content">
	  <h2>Acme expands</h2>
	  <p>Acme today announced revenue growth of 25% year over year.</p>
	  <p>The company also launched a new retail media platform.</p>
	</div>
	<footer><p>Copyright</p></footer>
	</body></html>`

	text, err := ArticleText([]byte(page), "https://example.com/a", ArticleRules{}, testLogger)
	if err != nil {
		t.Fatalf("article text: %v", err)
	}
	if !strings.HasPrefix(text, "Acme expands Acme today announced") {
		t.Errorf("unexpected text %q", text)
	}
	if strings.Contains(text, "Menu item") || strings.Contains(text, "Copyright") {
		t.Errorf("noise not removed: %q", text)
	}
}

func TestArticleTextParagraphLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><article>")
	for i := 0; i < 15; i++ {
		b.WriteString("<p>para</p>")
	}
	b.WriteString("</article></body></html>")

	text, err := ArticleText([]byte(b.String()), "https://example.com/a", ArticleRules{MaxParagraphs: 3}, testLogger)
	if err != nil {
		t.Fatalf("article text: %v", err)
	}
	if text != "para para para" {
		t.Errorf("expected 3 paragraphs, got %q", text)
	}
}

func TestPublishedDate(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{"meta", `<html><head><meta property="article:published_time" content="2026-02-09T10:00:00+00:00"></head><body></body></html>`, "2026-02-09"},
		{"time", `<html><body><time datetime="2026-02-08">Feb 8</time></body></html>`, "2026-02-08"},
		{"jsonld", `<html><head><script type="application/ld+json">{"@type":"NewsArticle","datePublished":"2026-02-07T00:00:00Z"}</script></head></html>`, "2026-02-07"},
	}
	for _, tt := range tests {
		got, ok := PublishedDate([]byte(tt.page))
		if !ok || got != tt.want {
			t.Errorf("%s: PublishedDate = %q,%v want %q", tt.name, got, ok, tt.want)
		}
	}
}

// --- Text Helper Tests ---

func TestHumanizeSlug(t *testing.T) {
	tests := map[string]string{
		"https://example.com/press/acme-launches-new-dsp-2026": "Acme Launches New Dsp 2026",
		"https://example.com/news/partner_deal.html":           "Partner Deal",
		"https://example.com/news/big-news-1234567/":           "Big News",
		"https://example.com/":                                 "",
	}
	for in, want := range tests {
		if got := HumanizeSlug(in); got != want {
			t.Errorf("HumanizeSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("竞品周报测试", 4); got != "竞品周报" {
		t.Errorf("TruncateRunes = %q", got)
	}
	if got := TruncateRunes("abc", 10); got != "abc" {
		t.Errorf("TruncateRunes short = %q", got)
	}
}
