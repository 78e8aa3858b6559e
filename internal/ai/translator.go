package ai

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/IshaanNene/RivalWatch/internal/config"
	"github.com/IshaanNene/RivalWatch/internal/parser"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

const translatePrompt = `请将以下英文新闻标题和内容翻译成中文。

原标题：%[1]s

内容：%[2]s

翻译要求：
1. 人名、公司名、品牌名、股票代码、产品名等专有名词保留英文，不要翻译
2. 例如：The Trade Desk/TTD、Criteo、Unity、AppLovin、Google、AI、CEO 等保留原样
3. 只翻译普通词汇和语句

请按以下格式返回：
中文标题：[翻译后的标题]
中文摘要：[%[3]d-%[4]d字的中文摘要]

请确保中文标题简洁明了，不超过%[5]d个字。`

const (
	// NoSummary stands in for an item without any body text.
	NoSummary = "无摘要"

	fallbackSummaryChars = 200
	promptContentChars   = 500
)

var categoryRe = regexp.MustCompile(`^(\[[^\]]{2,20}\])\s*(.+)`)

// Translator produces a Chinese title and summary for an item in one call.
type Translator struct {
	gen     Generator
	content config.ContentConfig
	logger  *slog.Logger
}

// NewTranslator creates a translator. gen may be nil, in which case every
// item gets the untranslated fallback.
func NewTranslator(gen Generator, content config.ContentConfig, logger *slog.Logger) *Translator {
	return &Translator{
		gen:     gen,
		content: content,
		logger:  logger.With("component", "translator"),
	}
}

// Fallback returns the original title with the summary cut to 200 runes, or
// NoSummary when there is no summary at all.
func Fallback(title, summary string) (string, string) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return title, NoSummary
	}
	return title, parser.TruncateRunes(summary, fallbackSummaryChars)
}

// TranslateText returns the Chinese title and summary. Lines the model did
// not return keep their fallback values.
func (t *Translator) TranslateText(ctx context.Context, title, summary string) (string, string) {
	fbTitle, fbSummary := Fallback(title, summary)
	if t.gen == nil {
		return fbTitle, fbSummary
	}

	prompt := fmt.Sprintf(translatePrompt,
		title, parser.TruncateRunes(summary, promptContentChars),
		t.content.SummaryMin, t.content.SummaryMax, t.content.TitleMax)
	out, err := t.gen.Generate(ctx, prompt)
	if err != nil {
		t.logger.Warn("translation failed", "title", title, "error", err)
		return fbTitle, fbSummary
	}

	zhTitle, zhSummary := parseTranslation(out)
	if zhTitle == "" {
		zhTitle = fbTitle
	} else {
		zhTitle = keepCategory(title, zhTitle)
	}
	if zhSummary == "" {
		zhSummary = fbSummary
	}
	return zhTitle, zhSummary
}

// Translate rewrites the item's title and summary in place.
func (t *Translator) Translate(ctx context.Context, item *types.ContentItem) {
	item.SetTranslation(t.TranslateText(ctx, item.Title, item.Summary))
}

// TranslateItems translates every item in place.
func (t *Translator) TranslateItems(ctx context.Context, items []*types.ContentItem) {
	for i, it := range items {
		if ctx.Err() != nil {
			return
		}
		t.logger.Debug("translating", "index", i+1, "total", len(items), "title", it.Title)
		t.Translate(ctx, it)
	}
}

// parseTranslation reads the 中文标题 and 中文摘要 lines of a model answer.
func parseTranslation(out string) (title, summary string) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := labelValue(line, "中文标题"); ok {
			if m := categoryRe.FindStringSubmatch(v); m != nil {
				title = m[1] + " " + strings.TrimSpace(m[2])
			} else {
				title = strings.Trim(v, "[]")
			}
		} else if v, ok := labelValue(line, "中文摘要"); ok {
			summary = strings.Trim(v, "[]")
		}
	}
	return strings.TrimSpace(title), strings.TrimSpace(summary)
}

func labelValue(line, label string) (string, bool) {
	for _, sep := range []string{"：", ":"} {
		if v, ok := strings.CutPrefix(line, label+sep); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// keepCategory restores a "[Category] " prefix the model dropped.
func keepCategory(original, translated string) string {
	m := categoryRe.FindStringSubmatch(original)
	if m == nil || strings.HasPrefix(translated, "[") {
		return translated
	}
	return m[1] + " " + translated
}
