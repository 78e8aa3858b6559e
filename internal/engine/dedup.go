package engine

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/IshaanNene/RivalWatch/internal/types"
)

// Deduplicator tracks article URLs already collected in this run.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeduplicator creates a new Deduplicator with the given estimated capacity.
func NewDeduplicator(estimatedCapacity int) *Deduplicator {
	return &Deduplicator{
		seen: make(map[string]struct{}, estimatedCapacity),
	}
}

// Add marks a URL as seen and reports whether it was new.
func (d *Deduplicator) Add(rawURL string) bool {
	key := CanonicalizeURL(rawURL)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Count returns the number of unique URLs seen.
func (d *Deduplicator) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// CanonicalizeURL normalizes a URL for deduplication: lowercase scheme and
// host, no fragment, no default port, sorted query, no trailing slash.
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// --- Title similarity ---

// SimilarityThreshold is the Jaccard score at which two titles are duplicates.
const SimilarityThreshold = 0.6

var abbreviations = map[string]string{
	"nyt":  "new york times",
	"wsj":  "wall street journal",
	"ft":   "financial times",
	"ai":   "artificial intelligence",
	"ml":   "machine learning",
	"ctv":  "connected tv",
	"ott":  "over the top",
	"ceo":  "chief executive officer",
	"cfo":  "chief financial officer",
	"cmo":  "chief marketing officer",
	"cto":  "chief technology officer",
	"coo":  "chief operating officer",
	"&":    "and",
	"bn":   "billion",
	"mn":   "million",
	"intl": "international",
}

var stopWords = toSet(
	"a", "an", "the", "and", "or", "but", "of", "in", "on", "at", "to", "for",
	"from", "by", "with", "via", "as", "is", "are", "was", "were", "be", "been",
	"its", "it", "this", "that", "these", "those", "into", "over", "after",
	"about", "up", "out", "new", "says", "said", "inc", "corp", "co", "ltd",
	"announces", "announced", "announce", "launches", "launched", "launch",
	"unveils", "unveiled", "introduces", "introduced", "today",
)

var (
	possessiveRe = regexp.MustCompile(`(\pL)['’]s\b`)
	nonWordRe    = regexp.MustCompile(`[^\pL\pN&$%]+`)
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// NormalizeTitle lowercases a title, expands known abbreviations, strips
// punctuation and possessives, and drops stop words.
func NormalizeTitle(title string) string {
	return strings.Join(titleTokens(title), " ")
}

func titleTokens(title string) []string {
	s := strings.ToLower(title)
	s = possessiveRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "&", " & ")
	s = nonWordRe.ReplaceAllString(s, " ")

	var out []string
	for _, w := range strings.Fields(s) {
		if exp, ok := abbreviations[w]; ok {
			out = append(out, strings.Fields(exp)...)
			continue
		}
		out = append(out, w)
	}

	kept := out[:0]
	for _, w := range out {
		if _, stop := stopWords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return kept
}

// Similarity is the Jaccard index of the normalized word sets of a and b.
func Similarity(a, b string) float64 {
	sa, sb := toSet(titleTokens(a)...), toSet(titleTokens(b)...)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	inter := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func without(tokens []string, skip map[string]struct{}) []string {
	if len(skip) == 0 {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := skip[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// topKeywords returns the n longest distinct tokens, earlier tokens first on ties.
func topKeywords(tokens []string, n int) []string {
	seen := make(map[string]struct{}, len(tokens))
	uniq := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}
	sort.SliceStable(uniq, func(i, j int) bool {
		return utf8.RuneCountInString(uniq[i]) > utf8.RuneCountInString(uniq[j])
	})
	if len(uniq) > n {
		uniq = uniq[:n]
	}
	return uniq
}

// IsDuplicate reports whether two titles describe the same story: one
// normalized title contains the other, their top-3 keywords share at least
// two tokens, or their Jaccard similarity reaches the threshold. Tokens of
// ignore (typically the company names) never count as keywords, since
// every headline from one newsroom carries them.
func IsDuplicate(a, b string, ignore ...string) bool {
	ta, tb := titleTokens(a), titleTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}

	na, nb := " "+strings.Join(ta, " ")+" ", " "+strings.Join(tb, " ")+" "
	if len(ta) >= 2 && len(tb) >= 2 && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return true
	}

	skip := toSet(titleTokens(strings.Join(ignore, " "))...)
	ka, kb := topKeywords(without(ta, skip), 3), toSet(topKeywords(without(tb, skip), 3)...)
	shared := 0
	for _, k := range ka {
		if _, ok := kb[k]; ok {
			shared++
		}
	}
	if shared >= 2 {
		return true
	}

	return Similarity(a, b) >= SimilarityThreshold
}

// Dedupe collapses near-duplicate titles, keeping the most recently dated
// item of each group. The result is ordered by date descending (undated
// last, input order on ties). Dedupe(Dedupe(x)) equals Dedupe(x).
func Dedupe(items []*types.ContentItem) []*types.ContentItem {
	sorted := append([]*types.ContentItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})

	kept := make([]*types.ContentItem, 0, len(sorted))
	for _, it := range sorted {
		dup := false
		for _, k := range kept {
			if IsDuplicate(it.Title, k.Title, it.Source, k.Source) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, it)
		}
	}
	return kept
}
