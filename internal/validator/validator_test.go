package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/RivalWatch/internal/config"
	"github.com/IshaanNene/RivalWatch/internal/engine"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var testContent = config.ContentConfig{SummaryMin: 80, SummaryMax: 100, TitleMax: 30}

func testWindow() engine.Window {
	return engine.NewWindow(time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC), 7)
}

// goodSummary is 90 runes and contains a figure.
var goodSummary = "Criteo第四季度营收达到5.2亿美元" + strings.Repeat("字", 90-len([]rune("Criteo第四季度营收达到5.2亿美元")))

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/nohead":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.Write([]byte("ok"))
		case "/moved":
			http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProber(t *testing.T) {
	srv := newSite(t)
	p := NewHTTPProber(nil, "test-agent", 5*time.Second)

	tests := []struct {
		path    string
		wantErr bool
	}{
		{"/ok", false},
		{"/nohead", false},
		{"/moved", false},
		{"/missing", true},
	}
	for _, tt := range tests {
		err := p.Probe(context.Background(), srv.URL+tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("Probe(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
	}
}

func TestValidateReasons(t *testing.T) {
	srv := newSite(t)
	v := New(NewHTTPProber(nil, "", 5*time.Second), testWindow(), testContent, testLogger)

	item := func(path, date, summary string) *types.ContentItem {
		return &types.ContentItem{Title: "t" + path, Summary: summary, Date: date, URL: srv.URL + path, Source: "Criteo"}
	}
	tests := []struct {
		name   string
		item   *types.ContentItem
		reason string
	}{
		{"accepted", item("/a", "2026-02-10", goodSummary), ""},
		{"window start inclusive", item("/b", "2026-02-04", goodSummary), ""},
		{"dead link", item("/missing", "2026-02-10", goodSummary), ReasonLinkUnavailable},
		{"no date", item("/c", "", goodSummary), ReasonDateMissing},
		{"bad date", item("/d", "2026/02/10", goodSummary), "日期格式错误 (2026/02/10)"},
		{"outside window", item("/e", "2026-02-01", goodSummary), "日期不在窗口范围内 (2026-02-01)"},
		{"short summary", item("/f", "2026-02-10", "摘要太短"), "摘要长度不符合要求 (4字，应为80-100字)"},
		{"no substance", item("/g", "2026-02-10", strings.Repeat("好", 85)), ReasonQuality},
	}
	for _, tt := range tests {
		ok, bad := v.Validate(context.Background(), "竞品-Criteo", []*types.ContentItem{tt.item})
		if tt.reason == "" {
			if len(ok) != 1 || len(bad) != 0 {
				t.Errorf("%s: expected accepted, got rejections %v", tt.name, bad)
			}
			continue
		}
		if len(bad) != 1 {
			t.Errorf("%s: expected one rejection, got %d", tt.name, len(bad))
			continue
		}
		if bad[0].Reason != tt.reason {
			t.Errorf("%s: reason = %q, want %q", tt.name, bad[0].Reason, tt.reason)
		}
		if bad[0].Module != "竞品-Criteo" || bad[0].URL != tt.item.URL {
			t.Errorf("%s: unexpected rejection %+v", tt.name, bad[0])
		}
	}
}

func TestValidateSkipProbe(t *testing.T) {
	v := New(nil, testWindow(), testContent, testLogger)
	items := []*types.ContentItem{{Title: "x", Summary: goodSummary, Date: "2026-02-09", URL: "http://127.0.0.1:1/unreachable"}}
	ok, bad := v.Validate(context.Background(), "行业-AdExchanger", items)
	if len(ok) != 1 || len(bad) != 0 {
		t.Errorf("expected skip-probe to accept, got %v", bad)
	}
}

func TestValidateGroups(t *testing.T) {
	v := New(nil, testWindow(), testContent, testLogger)
	groups := map[string][]*types.ContentItem{
		"Unity":  {{Title: "u", Summary: goodSummary, Date: "2026-02-09", URL: "https://u/1"}},
		"Criteo": {{Title: "c", Summary: "short", Date: "2026-02-09", URL: "https://c/1"}},
	}
	ok, bad := v.ValidateCompetitors(context.Background(), groups)
	if len(ok["Unity"]) != 1 || len(ok["Criteo"]) != 0 {
		t.Errorf("unexpected accepted %v", ok)
	}
	if len(bad) != 1 || bad[0].Module != CompetitorPrefix+"Criteo" {
		t.Errorf("unexpected rejections %v", bad)
	}

	_, bad = v.ValidateIndustry(context.Background(), map[string][]*types.ContentItem{"AdExchanger": groups["Criteo"]})
	if len(bad) != 1 || bad[0].Module != "行业-AdExchanger" {
		t.Errorf("unexpected industry rejections %v", bad)
	}
}

func TestHasSubstance(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"营收增长", true},
		{"Revenue was flat", true},
		{"共3家", true},
		{"好好好", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasSubstance(tt.in); got != tt.want {
			t.Errorf("HasSubstance(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReport(t *testing.T) {
	rejected := []Rejection{
		{Module: "竞品-Unity", Title: "a", Reason: ReasonDateMissing, URL: "https://u/a"},
		{Module: "竞品-Unity", Title: "b", Reason: ReasonQuality, URL: "https://u/b"},
		{Module: "行业-AdExchanger", Title: "c", Reason: ReasonLinkUnavailable, URL: "https://ax/c"},
	}
	r := NewReport("2026-02-04 ~ 2026-02-11", 5, rejected)

	by := r.ByModule()
	if len(by["竞品-Unity"]) != 2 || len(by["行业-AdExchanger"]) != 1 {
		t.Errorf("unexpected grouping %v", by)
	}

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Accepted != 5 || len(decoded.Rejected) != 3 || decoded.Rejected[2].Reason != ReasonLinkUnavailable {
		t.Errorf("unexpected decoded report %+v", decoded)
	}
	if !strings.Contains(r.Text(), "共 3 个错误") {
		t.Errorf("unexpected text:\n%s", r.Text())
	}
	if NewReport("w", 1, nil).Text() != "无错误" {
		t.Error("expected empty report text")
	}
}
