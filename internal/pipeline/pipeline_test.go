package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/RivalWatch/internal/sites"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fixedRange map[string]bool

func (r fixedRange) Contains(date string) bool { return r[date] }

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	item := &types.ContentItem{Title: "  Hello World  ", URL: " https://example.com/a "}
	result, err := p.Process(item)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title != "Hello World" || result.URL != "https://example.com/a" {
		t.Errorf("expected trimmed fields, got %+v", result)
	}
	if p.Len() != 1 {
		t.Errorf("expected 1 middleware, got %d", p.Len())
	}
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{Fields: []string{"title", "url", "date"}}

	ok := types.NewContentItem("Hello", "", "2026-02-10", "https://example.com", "Acme")
	if result, err := m.Process(ok); err != nil || result == nil {
		t.Error("item with required fields should pass")
	}

	noDate := types.NewContentItem("Hello", "", "2026-02-30", "https://example.com", "Acme")
	if result, _ := m.Process(noDate); result != nil {
		t.Error("item with invalid date should be dropped")
	}
}

func TestHTMLSanitizeMiddleware(t *testing.T) {
	m := NewHTMLSanitizeMiddleware()
	item := &types.ContentItem{
		Title:   "Acme &amp; Co",
		Summary: `<p>Hello <b>World</b></p> &amp; <a href="x">link</a>`,
	}

	result, err := m.Process(item)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result.Summary != "Hello World & link" {
		t.Errorf("expected 'Hello World & link', got %q", result.Summary)
	}
	if result.Title != "Acme & Co" {
		t.Errorf("expected entity decoded title, got %q", result.Title)
	}
}

func TestWindowFilterMiddleware(t *testing.T) {
	m := &WindowFilterMiddleware{Window: fixedRange{"2026-02-10": true}}
	in := &types.ContentItem{Title: "in", Date: "2026-02-10"}
	out := &types.ContentItem{Title: "out", Date: "2026-01-01"}
	undated := &types.ContentItem{Title: "undated"}

	if r, _ := m.Process(in); r == nil {
		t.Error("in-window item dropped")
	}
	if r, _ := m.Process(out); r != nil {
		t.Error("out-of-window item kept")
	}
	if r, _ := m.Process(undated); r != nil {
		t.Error("undated item kept")
	}
}

func TestRelevanceMiddleware(t *testing.T) {
	m := &RelevanceMiddleware{Filters: []sites.RelevanceFilter{sites.NewAdRelated()}}
	if r, _ := m.Process(&types.ContentItem{Title: "Unity expands ad network"}); r == nil {
		t.Error("ad item dropped")
	}
	if r, _ := m.Process(&types.ContentItem{Title: "Unity 6 rendering tutorial"}); r != nil {
		t.Error("engine item kept")
	}
}

type failing struct{}

func (failing) Name() string { return "failing" }
func (failing) Process(*types.ContentItem) (*types.ContentItem, error) {
	return nil, errors.New("boom")
}

func TestPipelineErrorsAndDrops(t *testing.T) {
	p := New(testLogger, &TrimMiddleware{}, &WindowFilterMiddleware{Window: fixedRange{"2026-02-10": true}})

	var dropped []string
	p.OnDrop(func(stage string, item *types.ContentItem) { dropped = append(dropped, stage+":"+item.Title) })

	items := []*types.ContentItem{
		{Title: "keep", Date: "2026-02-10"},
		{Title: "old", Date: "2025-12-01"},
		{Title: "also keep", Date: "2026-02-10"},
	}
	got := p.ProcessAll(items)
	if len(got) != 2 || got[0].Title != "keep" || got[1].Title != "also keep" {
		t.Errorf("unexpected survivors %+v", got)
	}
	if len(dropped) != 1 || dropped[0] != "window_filter:old" {
		t.Errorf("unexpected drops %v", dropped)
	}

	p.Use(failing{})
	_, err := p.Process(&types.ContentItem{Title: "x", Date: "2026-02-10"})
	var pe *types.PipelineError
	if !errors.As(err, &pe) || pe.Stage != "failing" {
		t.Errorf("expected pipeline error from failing stage, got %v", err)
	}
}
