package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// Report summarizes one validation pass.
type Report struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Window      string      `json:"window"`
	Accepted    int         `json:"accepted"`
	Rejected    []Rejection `json:"rejected"`
}

// NewReport builds a report from the accepted count and rejections.
func NewReport(window string, accepted int, rejected []Rejection) *Report {
	if rejected == nil {
		rejected = []Rejection{}
	}
	return &Report{
		GeneratedAt: time.Now(),
		Window:      window,
		Accepted:    accepted,
		Rejected:    rejected,
	}
}

// ByModule groups rejections by module label.
func (r *Report) ByModule() map[string][]Rejection {
	out := make(map[string][]Rejection)
	for _, rej := range r.Rejected {
		out[rej.Module] = append(out[rej.Module], rej)
	}
	return out
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// Text renders the rejections for terminal output.
func (r *Report) Text() string {
	if len(r.Rejected) == 0 {
		return "无错误"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "验证失败，共 %d 个错误:\n\n", len(r.Rejected))
	for i, rej := range r.Rejected {
		title := rej.Title
		if utf8.RuneCountInString(title) > 50 {
			title = string([]rune(title)[:50]) + "..."
		}
		fmt.Fprintf(&b, "[%d]\n  模块: %s\n  标题: %s\n  原因: %s\n  URL: %s\n\n", i+1, rej.Module, title, rej.Reason, rej.URL)
	}
	return b.String()
}
