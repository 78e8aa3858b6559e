package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/IshaanNene/RivalWatch/internal/engine"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

//go:embed templates/report.html
var templateFS embed.FS

// Group is one company's or industry module's items in display order.
type Group struct {
	Name  string
	Items []*types.ContentItem
}

// Data is the template input.
type Data struct {
	Start       string
	End         string
	Competitors []Group
	Industry    []Group
	GeneratedAt string
}

// Subject returns the report title, also used as the mail subject.
func Subject(w engine.Window) string {
	return fmt.Sprintf("竞品周报 %s ~ %s", w.StartString(), w.EndString())
}

// FileName returns the HTML file name for a window.
func FileName(w engine.Window) string {
	return fmt.Sprintf("weekly-report-%s_%s.html", w.StartString(), w.EndString())
}

// Renderer turns validated items into the HTML digest.
type Renderer struct {
	tmpl      *template.Template
	outputDir string
	order     []string
	now       engine.Clock
	logger    *slog.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithOrder sets the display order of companies and modules. Names not
// listed follow in alphabetical order.
func WithOrder(names []string) RendererOption {
	return func(r *Renderer) { r.order = names }
}

// WithClock sets the clock used for the generated-at footer.
func WithClock(c engine.Clock) RendererOption {
	return func(r *Renderer) { r.now = c }
}

// NewRenderer parses the embedded template.
func NewRenderer(outputDir string, logger *slog.Logger, opts ...RendererOption) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	r := &Renderer{
		tmpl:      tmpl,
		outputDir: outputDir,
		now:       engine.SystemClock,
		logger:    logger.With("component", "renderer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render writes the digest for the given window.
func (r *Renderer) Render(w io.Writer, competitors, industry map[string][]*types.ContentItem, window engine.Window) error {
	data := Data{
		Start:       window.StartString(),
		End:         window.EndString(),
		Competitors: r.groups(competitors),
		Industry:    r.groups(industry),
		GeneratedAt: r.now().Format("2006-01-02 15:04"),
	}
	if err := r.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// RenderBytes renders into memory.
func (r *Renderer) RenderBytes(competitors, industry map[string][]*types.ContentItem, window engine.Window) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, competitors, industry, window); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderFile writes output/weekly-report-{start}_{end}.html and returns the
// path and rendered bytes.
func (r *Renderer) RenderFile(competitors, industry map[string][]*types.ContentItem, window engine.Window) (string, []byte, error) {
	html, err := r.RenderBytes(competitors, industry, window)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(r.outputDir, FileName(window))
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return "", nil, fmt.Errorf("write report: %w", err)
	}
	r.logger.Info("report written", "path", path, "bytes", len(html))
	return path, html, nil
}

// groups orders non-empty groups by the configured order, then by name.
// Items within a group are sorted newest first.
func (r *Renderer) groups(byName map[string][]*types.ContentItem) []Group {
	rank := make(map[string]int, len(r.order))
	for i, n := range r.order {
		rank[n] = i
	}
	names := make([]string, 0, len(byName))
	for n, items := range byName {
		if len(items) > 0 {
			names = append(names, n)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return names[i] < names[j]
	})

	out := make([]Group, 0, len(names))
	for _, n := range names {
		items := append([]*types.ContentItem(nil), byName[n]...)
		sort.SliceStable(items, func(i, j int) bool { return items[i].Date > items[j].Date })
		out = append(out, Group{Name: n, Items: items})
	}
	return out
}
