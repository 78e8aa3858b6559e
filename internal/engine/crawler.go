package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/IshaanNene/RivalWatch/internal/fetcher"
	"github.com/IshaanNene/RivalWatch/internal/observability"
	"github.com/IshaanNene/RivalWatch/internal/parser"
	"github.com/IshaanNene/RivalWatch/internal/pipeline"
	"github.com/IshaanNene/RivalWatch/internal/sites"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

// ListingFetcher fetches listing pages through the tier escalation.
type ListingFetcher interface {
	Fetch(ctx context.Context, rawURL string, policy sites.Escalation, usable fetcher.Usable) (*fetcher.Result, error)
}

// PageGetter fetches detail pages over plain HTTP.
type PageGetter interface {
	Get(ctx context.Context, rawURL string) (*types.Response, error)
}

// NewsSource searches a news feed for the fallback path.
type NewsSource interface {
	Search(ctx context.Context, query string, limit int) ([]fetcher.NewsEntry, error)
}

// Crawler turns a site descriptor into window-filtered, deduplicated items.
type Crawler struct {
	listing ListingFetcher
	pages   PageGetter
	news    NewsSource
	window  Window
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCrawler creates a crawler. news and metrics may be nil.
func NewCrawler(listing ListingFetcher, pages PageGetter, news NewsSource, window Window, metrics *observability.Metrics, logger *slog.Logger) *Crawler {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	return &Crawler{
		listing: listing,
		pages:   pages,
		news:    news,
		window:  window,
		metrics: metrics,
		logger:  logger.With("component", "crawler"),
	}
}

// Window returns the crawl window.
func (c *Crawler) Window() Window { return c.window }

// CrawlSite collects up to site.Limit items for one site. The news-search
// fallback runs when the listing cannot be fetched or yields no candidates.
func (c *Crawler) CrawlSite(ctx context.Context, site *sites.Site) ([]*types.ContentItem, error) {
	logger := c.logger.With("site", site.Name)
	seen := NewDeduplicator(site.Limit * 2)

	var (
		items      []*types.ContentItem
		listingErr error
		candidates int
	)
	if site.HasListing() {
		items, candidates, listingErr = c.crawlListing(ctx, site, seen, logger)
		if listingErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("listing failed", "error", listingErr)
		}
	}

	if candidates == 0 && site.HasNewsFallback() {
		c.metrics.NewsFallbacks.Add(1)
		logger.Info("using news search fallback", "queries", len(site.News.Queries))
		news, err := c.crawlNews(ctx, site, seen, logger)
		if err != nil && len(news) == 0 {
			if listingErr != nil {
				return nil, multierror.Append(listingErr, err)
			}
			return nil, err
		}
		items = append(items, news...)
	} else if listingErr != nil {
		return nil, listingErr
	}

	before := len(items)
	items = Dedupe(items)
	c.metrics.ItemsDeduplicated.Add(int64(before - len(items)))
	logger.Info("site crawled", "items", len(items), "candidates", candidates)
	return items, nil
}

func (c *Crawler) sitePipeline(filters []sites.RelevanceFilter) *pipeline.Pipeline {
	p := pipeline.New(c.logger,
		&pipeline.TrimMiddleware{},
		pipeline.NewHTMLSanitizeMiddleware(),
		&pipeline.RequiredFieldsMiddleware{Fields: []string{"title", "url", "date"}},
		&pipeline.WindowFilterMiddleware{Window: c.window},
		&pipeline.RelevanceMiddleware{Filters: filters},
	)
	p.OnDrop(func(string, *types.ContentItem) { c.metrics.ItemsDropped.Add(1) })
	return p
}

func (c *Crawler) crawlListing(ctx context.Context, site *sites.Site, seen *Deduplicator, logger *slog.Logger) ([]*types.ContentItem, int, error) {
	ex, err := parser.NewExtractor(site.Listing, c.logger)
	if err != nil {
		return nil, 0, fmt.Errorf("site %s: %w", site.Name, err)
	}

	// Without a detail fetch the listing is the only date source, so a tier
	// whose candidates all lack dates escalates like an empty one.
	needDates := !site.Detail.Fetch && !site.Detail.DateFromDetail
	usable := func(body []byte) bool {
		cands, err := ex.Extract(body, site.URL)
		if err != nil || len(cands) == 0 {
			return false
		}
		if !needDates {
			return true
		}
		for _, cand := range cands {
			if cand.Date != "" {
				return true
			}
		}
		return false
	}
	res, err := c.listing.Fetch(ctx, site.URL, site.Escalation, usable)
	if err != nil {
		return nil, 0, err
	}
	pageURL := site.URL
	if res.FinalURL != "" {
		pageURL = res.FinalURL
	}
	cands, err := ex.Extract(res.Body, pageURL)
	if err != nil {
		return nil, 0, err
	}
	if len(cands) == 0 {
		return nil, 0, types.ErrNoCandidates
	}
	logger.Debug("listing candidates", "tier", res.Tier, "count", len(cands))

	p := c.sitePipeline(sites.Filters(site))
	var items []*types.ContentItem
	for _, cand := range cands {
		if len(items) >= site.Limit {
			break
		}
		if ctx.Err() != nil {
			return items, len(cands), ctx.Err()
		}
		if !seen.Add(cand.URL) {
			continue
		}
		c.metrics.ItemsExtracted.Add(1)

		// Known out-of-window dates skip the detail fetch.
		if cand.Date != "" && !site.Detail.DateFromDetail && !c.window.Contains(cand.Date) {
			c.metrics.ItemsDropped.Add(1)
			continue
		}

		date, summary := cand.Date, cand.Summary
		if site.Detail.Fetch || (date == "" && site.Detail.DateFromDetail) {
			detailDate, text := c.detail(ctx, site, cand.URL, logger)
			if site.Detail.DateFromDetail && detailDate != "" {
				date = detailDate
			} else if date == "" {
				date = detailDate
			}
			if text != "" {
				summary = text
			}
		}

		title := cand.Title
		if cand.Category != "" {
			title = "[" + cand.Category + "] " + title
		}
		item := types.NewContentItem(title, parser.TruncateRunes(summary, site.SummaryChars), date, cand.URL, site.Label())
		out, err := p.Process(item)
		if err != nil {
			logger.Warn("pipeline error", "url", cand.URL, "error", err)
			continue
		}
		if out != nil {
			items = append(items, out)
		}
	}
	return items, len(cands), nil
}

// detail fetches an article page and returns its publication date and body
// text. Failures yield empty values.
func (c *Crawler) detail(ctx context.Context, site *sites.Site, articleURL string, logger *slog.Logger) (string, string) {
	resp, err := c.pages.Get(ctx, articleURL)
	if err != nil {
		logger.Debug("detail fetch failed", "url", articleURL, "error", err)
		return "", ""
	}
	date, _ := parser.PublishedDate(resp.Body)
	text, err := parser.ArticleText(resp.Body, articleURL, site.Detail.Article, c.logger)
	if err != nil {
		logger.Debug("article text failed", "url", articleURL, "error", err)
	}
	return date, text
}

func (c *Crawler) crawlNews(ctx context.Context, site *sites.Site, seen *Deduplicator, logger *slog.Logger) ([]*types.ContentItem, error) {
	if c.news == nil {
		return nil, fmt.Errorf("site %s: news search not configured", site.Name)
	}

	p := c.sitePipeline(sites.NewsFilters(site))
	var (
		items []*types.ContentItem
		errs  *multierror.Error
	)
	for _, q := range site.News.Queries {
		if len(items) >= site.News.Limit {
			break
		}
		entries, err := c.news.Search(ctx, q, 0)
		if err != nil {
			logger.Warn("news search failed", "query", q, "error", err)
			errs = multierror.Append(errs, err)
			continue
		}
		for _, e := range entries {
			if len(items) >= site.News.Limit || ctx.Err() != nil {
				break
			}
			if !c.window.Contains(e.Date()) || !seen.Add(e.Link) {
				continue
			}
			c.metrics.ItemsExtracted.Add(1)

			summary := e.Title
			if resp, err := c.pages.Get(ctx, e.Link); err == nil {
				if text, err := parser.ArticleText(resp.Body, e.Link, site.Detail.Article, c.logger); err == nil && text != "" {
					summary = text
				}
			}
			item := types.NewContentItem(e.Title, parser.TruncateRunes(summary, site.SummaryChars), e.Date(), e.Link, site.Label())
			out, err := p.Process(item)
			if err != nil {
				logger.Warn("pipeline error", "url", e.Link, "error", err)
				continue
			}
			if out != nil {
				items = append(items, out)
			}
		}
	}
	if len(items) == 0 {
		return nil, errs.ErrorOrNil()
	}
	return items, nil
}
