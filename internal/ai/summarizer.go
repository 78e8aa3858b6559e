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

const summaryPrompt = `请根据以下文章标题和内容，生成一段%[1]d-%[2]d字的中文摘要。

要求：
1. 摘要必须包含原文的关键指标、关键事实（如：增长数据、营收、合作对象、产品/功能要点、时间节点等）
2. 摘要必须基于原文明确事实，禁止推测影响或引入主观判断
3. 摘要字数严格控制在%[1]d-%[2]d个中文字符（包含标点）
4. 直接输出摘要内容，不要有任何前缀或说明

文章标题：%[3]s

文章内容：%[4]s

请生成摘要：`

var (
	summaryPrefixes = []string{"摘要：", "摘要:", "总结：", "总结:", "概括：", "概括:", "简介：", "简介:"}
	tagRe           = regexp.MustCompile(`<[^>]+>`)
)

const quoteChars = "\"'“”‘’「」"

// Summarizer condenses article text into a short Chinese summary.
type Summarizer struct {
	gen       Generator
	min       int
	max       int
	bodyChars int
	logger    *slog.Logger
}

// NewSummarizer creates a summarizer bounded by the content length rules.
func NewSummarizer(gen Generator, content config.ContentConfig, bodyChars int, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		gen:       gen,
		min:       content.SummaryMin,
		max:       content.SummaryMax,
		bodyChars: bodyChars,
		logger:    logger.With("component", "summarizer"),
	}
}

// Summarize returns a summary of body. It never fails: when the model is
// unavailable or returns nothing, the cleaned body truncated to the maximum
// length is returned instead.
func (s *Summarizer) Summarize(ctx context.Context, title, body string) string {
	body = cleanContent(body)
	fallback := parser.TruncateRunes(body, s.max)
	if fallback == "" {
		fallback = parser.TruncateRunes(title, s.max)
	}
	if s.gen == nil {
		return fallback
	}

	prompt := fmt.Sprintf(summaryPrompt, s.min, s.max, title, parser.TruncateRunes(body, s.bodyChars))
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("summary generation failed", "title", title, "error", err)
		return fallback
	}
	summary := s.adjust(cleanSummary(out))
	if summary == "" {
		s.logger.Warn("empty summary from model", "title", title)
		return fallback
	}
	return summary
}

// SummarizeItems replaces each item's summary in place.
func (s *Summarizer) SummarizeItems(ctx context.Context, items []*types.ContentItem) {
	for i, it := range items {
		if ctx.Err() != nil {
			return
		}
		s.logger.Debug("summarizing", "index", i+1, "total", len(items), "title", it.Title)
		it.SetSummary(s.Summarize(ctx, it.Title, it.Summary))
	}
}

// adjust enforces the maximum length. Summaries shorter than the minimum are
// kept as they are.
func (s *Summarizer) adjust(summary string) string {
	r := []rune(summary)
	if len(r) <= s.max {
		return summary
	}
	r = r[:s.max]
	last := -1
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == '。' {
			last = i
			break
		}
	}
	if last > s.min {
		return string(r[:last+1])
	}
	return string(r[:s.max-1]) + "。"
}

func cleanContent(s string) string {
	return parser.CleanText(tagRe.ReplaceAllString(s, ""))
}

// cleanSummary strips labels and quotes a model tends to wrap its answer in.
func cleanSummary(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range summaryPrefixes {
		s = strings.TrimPrefix(s, p)
	}
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), quoteChars))
	if s == "" {
		return s
	}
	r := []rune(s)
	switch r[len(r)-1] {
	case '，', '、', ' ':
		r[len(r)-1] = '。'
	}
	return string(r)
}
