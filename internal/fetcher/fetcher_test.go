package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/RivalWatch/internal/config"
	"github.com/IshaanNene/RivalWatch/internal/sites"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var testPage = "<html><body>" + strings.Repeat("<p>press release</p>", 10) + "</body></html>"

func testScraperConfig() config.ScraperConfig {
	cfg := config.DefaultConfig().Scraper
	cfg.MinBodySize = 50
	cfg.RetryDelay = time.Millisecond
	cfg.Timeout = 5 * time.Second
	return cfg
}

func newTestHTTPFetcher(t *testing.T, cfg config.ScraperConfig) (*HTTPFetcher, *[]time.Duration) {
	t.Helper()
	f, err := NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	var delays []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return f, &delays
}

// --- HTTP Tier Tests ---

func TestHTTPFetcherHeaders(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		fmt.Fprint(w, testPage)
	}))
	defer srv.Close()

	cfg := testScraperConfig()
	f, _ := newTestHTTPFetcher(t, cfg)
	resp, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.Tier != "http" || !resp.IsSuccess() {
		t.Errorf("unexpected response tier=%s status=%d", resp.Tier, resp.StatusCode)
	}
	if gotUA != cfg.UserAgent || gotLang != cfg.AcceptLanguage {
		t.Errorf("headers not sent: ua=%q lang=%q", gotUA, gotLang)
	}
}

func TestHTTPFetcherRetriesLinearBackoff(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, testPage)
	}))
	defer srv.Close()

	cfg := testScraperConfig()
	cfg.RetryDelay = 10 * time.Millisecond
	f, delays := newTestHTTPFetcher(t, cfg)
	if _, err := f.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(*delays) != len(want) || (*delays)[0] != want[0] || (*delays)[1] != want[1] {
		t.Errorf("delays = %v, want %v", *delays, want)
	}
}

func TestHTTPFetcherBodyTooSmall(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	f, _ := newTestHTTPFetcher(t, testScraperConfig())
	_, err := f.Get(context.Background(), srv.URL)
	if !errors.Is(err, types.ErrBodyTooSmall) || !errors.Is(err, types.ErrMaxRetries) {
		t.Fatalf("expected body-too-small after retries, got %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestHTTPFetcherNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f, _ := newTestHTTPFetcher(t, testScraperConfig())
	_, err := f.Get(context.Background(), srv.URL)
	var fe *types.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 fetch error, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("404 should not be retried, got %d attempts", hits.Load())
	}
}

func TestHTTPFetcherRetryAfter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, testPage)
	}))
	defer srv.Close()

	f, delays := newTestHTTPFetcher(t, testScraperConfig())
	if _, err := f.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(*delays) != 1 || (*delays)[0] != 7*time.Second {
		t.Errorf("expected Retry-After delay of 7s, got %v", *delays)
	}
}

func TestHTTPFetcherBrotli(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte(testPage))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	f, _ := newTestHTTPFetcher(t, testScraperConfig())
	resp, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(resp.Body) != testPage {
		t.Errorf("brotli body not decoded")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":     5 * time.Second,
		"3":    3 * time.Second,
		"999":  120 * time.Second,
		"soon": 5 * time.Second,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

// --- Escalator Tests ---

type fakeTier struct {
	tier  string
	body  string
	calls int
}

func (f *fakeTier) Fetch(_ context.Context, req *types.Request) (*types.Response, error) {
	f.calls++
	return types.NewBrowserResponse(req, f.tier, []byte(f.body), req.URLString(), 0), nil
}
func (f *fakeTier) Close() error { return nil }
func (f *fakeTier) Type() string { return f.tier }

func TestEscalatorEscalatesOnUnusable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPage) // static shell with no article links
	}))
	defer srv.Close()

	hf, _ := newTestHTTPFetcher(t, testScraperConfig())
	browser := &fakeTier{tier: sites.TierBrowser, body: testPage + `<a href="/news/1">rendered</a>`}
	stealthTier := &fakeTier{tier: sites.TierStealth, body: "unused"}
	e := NewEscalatorWithTiers(hf, testLogger, browser, stealthTier)

	var seen []string
	e.OnTier(func(tier string, ok bool) { seen = append(seen, fmt.Sprintf("%s:%v", tier, ok)) })

	usable := func(body []byte) bool { return bytes.Contains(body, []byte("<a href")) }
	res, err := e.Fetch(context.Background(), srv.URL, sites.Escalation{Start: sites.TierHTTP, Max: sites.TierStealth}, usable)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Tier != sites.TierBrowser {
		t.Errorf("expected browser tier, got %s", res.Tier)
	}
	if stealthTier.calls != 0 {
		t.Error("stealth tier should not run after a usable browser result")
	}
	if strings.Join(seen, ",") != "http:false,browser:true" {
		t.Errorf("unexpected tier sequence %v", seen)
	}
}

func TestEscalatorRespectsPolicy(t *testing.T) {
	hf, _ := newTestHTTPFetcher(t, testScraperConfig())
	browser := &fakeTier{tier: sites.TierBrowser, body: ""}
	stealthTier := &fakeTier{tier: sites.TierStealth, body: testPage}
	e := NewEscalatorWithTiers(hf, testLogger, browser, stealthTier)

	res, err := e.Fetch(context.Background(), "https://example.invalid/news", sites.Escalation{Start: sites.TierBrowser, Max: sites.TierStealth}, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Tier != sites.TierStealth || browser.calls != 1 {
		t.Errorf("expected empty browser body to escalate to stealth, got tier=%s browser calls=%d", res.Tier, browser.calls)
	}

	_, err = e.Fetch(context.Background(), "https://example.invalid/news", sites.Escalation{Start: sites.TierBrowser, Max: sites.TierBrowser}, nil)
	if !errors.Is(err, types.ErrEmptyResponse) {
		t.Errorf("expected empty response error when capped at browser, got %v", err)
	}
}

// --- News Search Tests ---

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>News</title>
<item><title>Magnite reports record CTV growth - Business Wire</title><link>https://news.example.com/a</link><pubDate>Tue, 10 Feb 2026 14:00:00 GMT</pubDate></item>
<item><title>Magnite names new CFO - Reuters</title><link>https://news.example.com/b</link><pubDate>Mon, 09 Feb 2026 09:00:00 GMT</pubDate></item>
<item><title>Ad tech roundup</title><link>https://news.example.com/c</link></item>
</channel></rss>`

func TestNewsSearch(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFixture)
	}))
	defer srv.Close()

	ns := NewNewsSearch(srv.Client(), srv.URL, "test-agent", testLogger)
	entries, err := ns.Search(context.Background(), "Magnite advertising news press release", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if query != "Magnite advertising news press release" {
		t.Errorf("query not forwarded: %q", query)
	}
	if len(entries) != 2 {
		t.Fatalf("expected limit of 2 entries, got %d", len(entries))
	}
	if entries[0].Title != "Magnite reports record CTV growth" || entries[0].Publisher != "Business Wire" {
		t.Errorf("publisher suffix not split: %+v", entries[0])
	}
	if entries[0].Date() != "2026-02-10" {
		t.Errorf("date = %q", entries[0].Date())
	}
}

func TestNewsSearchURL(t *testing.T) {
	ns := NewNewsSearch(http.DefaultClient, "", "", testLogger)
	got := ns.SearchURL("Unity Ads")
	want := "https://news.google.com/rss/search?ceid=US%3Aen&gl=US&hl=en&q=Unity+Ads"
	if got != want {
		t.Errorf("SearchURL = %q, want %q", got, want)
	}
}

// --- Stealth and Human Tests ---

func TestHumanPlanBounds(t *testing.T) {
	hc := DefaultHumanConfig()
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		p := hc.Plan(r)
		if p.PreDelay < 500*time.Millisecond || p.PreDelay > 1500*time.Millisecond {
			t.Fatalf("pre-delay out of range: %v", p.PreDelay)
		}
		if len(p.Moves) < 3 || len(p.Moves) > 7 {
			t.Fatalf("move count out of range: %d", len(p.Moves))
		}
		for _, m := range p.Moves {
			if m.X < 100 || m.X > 1800 || m.Y < 100 || m.Y > 900 || m.Steps < 5 || m.Steps > 15 {
				t.Fatalf("move out of range: %+v", m)
			}
		}
		if len(p.Scrolls) < 2 || len(p.Scrolls) > 5 {
			t.Fatalf("scroll count out of range: %d", len(p.Scrolls))
		}
		if p.FinalWait < 3*time.Second || p.FinalWait > 5*time.Second {
			t.Fatalf("final wait out of range: %v", p.FinalWait)
		}
	}
}

func TestStealthJS(t *testing.T) {
	sc := DefaultStealthConfig()
	js := sc.StealthJS()
	for _, want := range []string{"'webdriver'", "'MacIntel'", "'en-US', 'en'", "plugins", "chrome.runtime"} {
		if !strings.Contains(js, want) {
			t.Errorf("stealth script missing %s", want)
		}
	}
}

func TestChromiumCloseBeforeLaunch(t *testing.T) {
	c := NewChromium(config.DefaultConfig().Browser, testLogger)
	if err := c.Close(); err != nil {
		t.Errorf("closing an unlaunched browser should be a no-op: %v", err)
	}
}
