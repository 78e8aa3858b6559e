package observability

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
)

// Metrics tracks run counters for one report run.
type Metrics struct {
	// Site metrics
	SitesTotal    atomic.Int64
	SitesFailed   atomic.Int64
	SitesTimedOut atomic.Int64
	NewsFallbacks atomic.Int64

	// Fetch tier metrics
	FetchHTTP    atomic.Int64
	FetchBrowser atomic.Int64
	FetchStealth atomic.Int64
	TierFailures atomic.Int64

	// Item metrics
	ItemsExtracted    atomic.Int64
	ItemsDropped      atomic.Int64
	ItemsDeduplicated atomic.Int64
	ItemsAccepted     atomic.Int64
	ItemsRejected     atomic.Int64

	// LLM metrics
	LLMCalls    atomic.Int64
	LLMFailures atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// RecordTier counts one fetch tier attempt. It matches the escalator's
// tier observer signature.
func (m *Metrics) RecordTier(tier string, ok bool) {
	switch tier {
	case "http":
		m.FetchHTTP.Add(1)
	case "browser":
		m.FetchBrowser.Add(1)
	case "stealth":
		m.FetchStealth.Add(1)
	}
	if !ok {
		m.TierFailures.Add(1)
	}
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"sites_total":        m.SitesTotal.Load(),
		"sites_failed":       m.SitesFailed.Load(),
		"sites_timed_out":    m.SitesTimedOut.Load(),
		"news_fallbacks":     m.NewsFallbacks.Load(),
		"fetch_http":         m.FetchHTTP.Load(),
		"fetch_browser":      m.FetchBrowser.Load(),
		"fetch_stealth":      m.FetchStealth.Load(),
		"tier_failures":      m.TierFailures.Load(),
		"items_extracted":    m.ItemsExtracted.Load(),
		"items_dropped":      m.ItemsDropped.Load(),
		"items_deduplicated": m.ItemsDeduplicated.Load(),
		"items_accepted":     m.ItemsAccepted.Load(),
		"items_rejected":     m.ItemsRejected.Load(),
		"llm_calls":          m.LLMCalls.Load(),
		"llm_failures":       m.LLMFailures.Load(),
	}
}

// LogSummary writes the end-of-run counters as one log line.
func (m *Metrics) LogSummary(msg string) {
	snap := m.Snapshot()
	args := make([]any, 0, len(snap)*2)
	for _, k := range sortedKeys(snap) {
		args = append(args, k, snap[k])
	}
	m.logger.Info(msg, args...)
}

// WriteText prints the counters as aligned "name value" lines.
func (m *Metrics) WriteText(w io.Writer) error {
	snap := m.Snapshot()
	for _, k := range sortedKeys(snap) {
		if _, err := fmt.Fprintf(w, "%-20s %d\n", k, snap[k]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
