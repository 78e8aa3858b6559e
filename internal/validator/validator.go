package validator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/RivalWatch/internal/config"
	"github.com/IshaanNene/RivalWatch/internal/engine"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

// Rejection reasons.
const (
	ReasonLinkUnavailable = "链接不可用（404或访问错误）"
	ReasonDateMissing     = "日期缺失或无法解析"
	ReasonQuality         = "摘要未包含关键指标或关键事实"
)

// Module label prefixes.
const (
	CompetitorPrefix = "竞品-"
	IndustryPrefix   = "行业-"
)

const probeWorkers = 8

var numberRe = regexp.MustCompile(`\d`)

var factKeywords = []string{
	"营收", "收入", "增长", "下降", "同比", "环比", "合作", "发布", "推出",
	"收购", "并购", "融资", "投资", "用户", "客户", "市场", "份额",
	"revenue", "growth", "decline", "partnership", "launch", "acquire",
	"merger", "funding", "investment", "users", "customers", "market",
	"million", "billion", "percent", "%", "$", "€", "£",
	"亿", "万", "千", "百",
	"产品", "功能", "平台", "技术", "解决方案", "服务",
	"product", "feature", "platform", "technology", "solution", "service",
	"第一", "第二", "第三", "首", "新", "最新",
}

// Rejection records why an item failed validation.
type Rejection struct {
	Module string `json:"module"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
	URL    string `json:"url"`
}

// Validator applies the publishing checks to finished items.
type Validator struct {
	prober Prober
	window engine.Window
	min    int
	max    int
	logger *slog.Logger
}

// New creates a validator. A nil prober skips the link check.
func New(prober Prober, window engine.Window, content config.ContentConfig, logger *slog.Logger) *Validator {
	return &Validator{
		prober: prober,
		window: window,
		min:    content.SummaryMin,
		max:    content.SummaryMax,
		logger: logger.With("component", "validator"),
	}
}

// ValidateCompetitors validates each company's items under "竞品-<company>".
func (v *Validator) ValidateCompetitors(ctx context.Context, byCompany map[string][]*types.ContentItem) (map[string][]*types.ContentItem, []Rejection) {
	return v.validateGroups(ctx, CompetitorPrefix, byCompany)
}

// ValidateIndustry validates each industry module's items under "行业-<module>".
func (v *Validator) ValidateIndustry(ctx context.Context, byModule map[string][]*types.ContentItem) (map[string][]*types.ContentItem, []Rejection) {
	return v.validateGroups(ctx, IndustryPrefix, byModule)
}

func (v *Validator) validateGroups(ctx context.Context, prefix string, groups map[string][]*types.ContentItem) (map[string][]*types.ContentItem, []Rejection) {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	accepted := make(map[string][]*types.ContentItem, len(groups))
	var rejected []Rejection
	for _, name := range names {
		ok, bad := v.Validate(ctx, prefix+name, groups[name])
		accepted[name] = ok
		rejected = append(rejected, bad...)
	}
	return accepted, rejected
}

// Validate runs every check on items, in order, and records the first
// failure for each rejected item. Accepted items keep their input order.
func (v *Validator) Validate(ctx context.Context, module string, items []*types.ContentItem) ([]*types.ContentItem, []Rejection) {
	probeErrs := v.probeAll(ctx, items)

	accepted := make([]*types.ContentItem, 0, len(items))
	var rejected []Rejection
	for i, it := range items {
		reason := ""
		if probeErrs[i] != nil {
			reason = ReasonLinkUnavailable
			v.logger.Debug("link probe failed", "url", it.URL, "error", probeErrs[i])
		} else {
			reason = v.check(it)
		}
		if reason == "" {
			accepted = append(accepted, it)
			continue
		}
		rejected = append(rejected, Rejection{Module: module, Title: it.Title, Reason: reason, URL: it.URL})
	}
	v.logger.Info("validated", "module", module, "accepted", len(accepted), "rejected", len(rejected))
	return accepted, rejected
}

func (v *Validator) probeAll(ctx context.Context, items []*types.ContentItem) []error {
	errs := make([]error, len(items))
	if v.prober == nil {
		return errs
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeWorkers)
	for i, it := range items {
		g.Go(func() error {
			errs[i] = v.prober.Probe(gctx, it.URL)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// check applies the date, length and substance rules.
func (v *Validator) check(it *types.ContentItem) string {
	date := strings.TrimSpace(it.Date)
	if date == "" {
		return ReasonDateMissing
	}
	if _, err := time.Parse(types.DateLayout, date); err != nil {
		return fmt.Sprintf("日期格式错误 (%s)", date)
	}
	if !v.window.Contains(date) {
		return fmt.Sprintf("日期不在窗口范围内 (%s)", date)
	}

	n := utf8.RuneCountInString(it.Summary)
	if n < v.min || n > v.max {
		return fmt.Sprintf("摘要长度不符合要求 (%d字，应为%d-%d字)", n, v.min, v.max)
	}
	if !HasSubstance(it.Summary) {
		return ReasonQuality
	}
	return ""
}

// HasSubstance reports whether a summary carries a figure or a fact keyword.
func HasSubstance(summary string) bool {
	if summary == "" {
		return false
	}
	if numberRe.MatchString(summary) {
		return true
	}
	lower := strings.ToLower(summary)
	for _, k := range factKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
