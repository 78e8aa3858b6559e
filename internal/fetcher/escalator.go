package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/IshaanNene/RivalWatch/internal/config"
	"github.com/IshaanNene/RivalWatch/internal/sites"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

// Usable reports whether a fetched body yields anything worth extracting.
// A nil Usable accepts every non-empty body.
type Usable func(body []byte) bool

// Result is the outcome of an escalated fetch.
type Result struct {
	Body     []byte
	FinalURL string
	Tier     string
}

// TierObserver is notified each time a tier is attempted.
type TierObserver func(tier string, ok bool)

// Escalator tries the cheapest fetch tier first and moves up while the
// result is an error or unusable.
type Escalator struct {
	http    *HTTPFetcher
	tiers   []Fetcher
	chrome  *Chromium
	observe TierObserver
	logger  *slog.Logger
}

// NewEscalator builds the http tier and, when the browser is enabled, the
// browser and stealth tiers on one lazily launched Chromium.
func NewEscalator(cfg *config.Config, logger *slog.Logger) (*Escalator, error) {
	hf, err := NewHTTPFetcher(cfg.Scraper, logger)
	if err != nil {
		return nil, err
	}
	e := &Escalator{
		http:   hf,
		tiers:  []Fetcher{hf},
		logger: logger.With("component", "escalator"),
	}
	if cfg.Browser.Enabled {
		e.chrome = NewChromium(cfg.Browser, logger)
		e.tiers = append(e.tiers, NewBrowserFetcher(e.chrome, cfg.Browser, logger, WithUserAgent(cfg.Scraper.UserAgent)))
		if cfg.Browser.Stealth {
			opts := []BrowserOption{WithStealth(DefaultStealthConfig()), WithUserAgent(cfg.Scraper.UserAgent)}
			if cfg.Browser.HumanLike {
				opts = append(opts, WithHuman(DefaultHumanConfig()))
			}
			e.tiers = append(e.tiers, NewBrowserFetcher(e.chrome, cfg.Browser, logger, opts...))
		}
	}
	return e, nil
}

// NewEscalatorWithTiers wires explicit tiers, cheapest first. The first tier
// must be the HTTP fetcher used for detail pages.
func NewEscalatorWithTiers(hf *HTTPFetcher, logger *slog.Logger, extra ...Fetcher) *Escalator {
	return &Escalator{
		http:   hf,
		tiers:  append([]Fetcher{hf}, extra...),
		logger: logger.With("component", "escalator"),
	}
}

// OnTier registers an observer for tier attempts.
func (e *Escalator) OnTier(fn TierObserver) { e.observe = fn }

// HTTP returns the plain HTTP tier.
func (e *Escalator) HTTP() *HTTPFetcher { return e.http }

// Fetch fetches rawURL, starting at policy.Start and stopping at policy.Max.
// It returns the first usable body, or the accumulated tier errors.
func (e *Escalator) Fetch(ctx context.Context, rawURL string, policy sites.Escalation, usable Usable) (*Result, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}

	var errs *multierror.Error
	attempted := 0
	for _, tier := range e.tiers {
		name := tier.Type()
		if !policy.TierAllowed(name) {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		attempted++

		var resp *types.Response
		if name == sites.TierHTTP {
			resp, err = e.http.Get(ctx, rawURL)
		} else {
			resp, err = tier.Fetch(ctx, req)
			if err == nil && len(resp.Body) == 0 {
				err = &types.FetchError{URL: rawURL, Tier: name, Err: types.ErrEmptyResponse}
			}
		}
		if err == nil && usable != nil && !usable(resp.Body) {
			err = &types.FetchError{URL: rawURL, Tier: name, Err: types.ErrNoCandidates}
		}

		if e.observe != nil {
			e.observe(name, err == nil)
		}
		if err == nil {
			e.logger.Debug("fetched", "url", rawURL, "tier", name, "size", len(resp.Body))
			return &Result{Body: resp.Body, FinalURL: resp.FinalURL, Tier: name}, nil
		}

		e.logger.Info("tier failed, escalating", "url", rawURL, "tier", name, "error", err)
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
	}

	if attempted == 0 {
		return nil, fmt.Errorf("no fetch tier available between %s and %s for %s", policy.Start, policy.Max, rawURL)
	}
	return nil, errs.ErrorOrNil()
}

// Close closes every tier and the shared browser.
func (e *Escalator) Close() error {
	var errs *multierror.Error
	for _, t := range e.tiers {
		if err := t.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if e.chrome != nil {
		if err := e.chrome.Close(); err != nil && !errors.Is(err, context.Canceled) {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
