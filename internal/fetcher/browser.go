package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/RivalWatch/internal/config"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

// Chromium is a lazily launched headless browser shared by the browser and
// stealth tiers. It is started on first use and must be closed at the end
// of a run.
type Chromium struct {
	cfg    config.BrowserConfig
	logger *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	pages    chan struct{}
}

// NewChromium prepares a browser session without launching it.
func NewChromium(cfg config.BrowserConfig, logger *slog.Logger) *Chromium {
	n := cfg.MaxPages
	if n < 1 {
		n = 1
	}
	return &Chromium{
		cfg:    cfg,
		logger: logger.With("component", "chromium"),
		pages:  make(chan struct{}, n),
	}
}

func (c *Chromium) get(windowSize string) (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		return c.browser, nil
	}

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-infobars")
	if c.cfg.Bin != "" {
		l = l.Bin(c.cfg.Bin)
	}
	if c.cfg.UserDataDir != "" {
		l = l.UserDataDir(c.cfg.UserDataDir)
	}
	if windowSize != "" {
		l = l.Set("window-size", windowSize)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	c.launcher = l
	c.browser = b
	c.logger.Info("browser launched", "max_pages", cap(c.pages))
	return b, nil
}

// acquire blocks until a page slot is free.
func (c *Chromium) acquire(ctx context.Context) error {
	select {
	case c.pages <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Chromium) release() { <-c.pages }

// Close shuts the browser down and kills the launched process. Closing a
// session that never launched is a no-op.
func (c *Chromium) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.launcher.Kill()
	c.browser, c.launcher = nil, nil
	c.logger.Debug("browser closed")
	return err
}

// BrowserFetcher renders pages in Chromium. With a StealthConfig it becomes
// the stealth tier: fingerprint patches, spoofed navigator properties and
// human-like interaction.
type BrowserFetcher struct {
	chrome     *Chromium
	cfg        config.BrowserConfig
	userAgent  string
	stealthCfg *StealthConfig
	human      *HumanConfig
	logger     *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// BrowserOption configures a BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithStealth enables fingerprint spoofing.
func WithStealth(cfg *StealthConfig) BrowserOption {
	return func(bf *BrowserFetcher) { bf.stealthCfg = cfg }
}

// WithHuman enables randomized mouse and scroll interaction.
func WithHuman(hc HumanConfig) BrowserOption {
	return func(bf *BrowserFetcher) { bf.human = &hc }
}

// WithUserAgent overrides the browser User-Agent.
func WithUserAgent(ua string) BrowserOption {
	return func(bf *BrowserFetcher) { bf.userAgent = ua }
}

// NewBrowserFetcher creates a rendering tier on top of a shared Chromium.
func NewBrowserFetcher(chrome *Chromium, cfg config.BrowserConfig, logger *slog.Logger, opts ...BrowserOption) *BrowserFetcher {
	bf := &BrowserFetcher{
		chrome: chrome,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(bf)
	}
	bf.logger = logger.With("component", bf.Type()+"_fetcher")
	return bf
}

// Type returns "stealth" when fingerprint spoofing is on, else "browser".
func (bf *BrowserFetcher) Type() string {
	if bf.stealthCfg != nil {
		return "stealth"
	}
	return "browser"
}

// Fetch navigates to the request URL and returns the rendered DOM.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()
	tier := bf.Type()
	fail := func(err error) (*types.Response, error) {
		return nil, &types.FetchError{URL: req.URLString(), Tier: tier, Err: err, Retryable: true}
	}

	windowSize := ""
	if bf.stealthCfg != nil {
		windowSize = bf.stealthCfg.WindowSize
	}
	browser, err := bf.chrome.get(windowSize)
	if err != nil {
		return fail(err)
	}
	if err := bf.chrome.acquire(ctx); err != nil {
		return fail(err)
	}
	defer bf.chrome.release()

	page, err := bf.newPage(browser)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = page.Close() }()
	page = page.Context(ctx)

	var plan *InteractionPlan
	if bf.human != nil {
		bf.rngMu.Lock()
		p := bf.human.Plan(bf.rng)
		bf.rngMu.Unlock()
		plan = &p
		if err := sleepContext(ctx, p.PreDelay); err != nil {
			return fail(err)
		}
	}

	timeout := bf.cfg.NavTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if err := page.Timeout(timeout).Navigate(req.URLString()); err != nil {
		return fail(fmt.Errorf("navigate: %w", err))
	}
	if err := page.Timeout(timeout).WaitStable(500 * time.Millisecond); err != nil {
		bf.logger.Debug("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}
	if err := sleepContext(ctx, bf.cfg.SettleTime); err != nil {
		return fail(err)
	}
	if plan != nil {
		if err := plan.perform(ctx, page); err != nil {
			return fail(err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return fail(fmt.Errorf("read html: %w", err))
	}
	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)
	return types.NewBrowserResponse(req, tier, []byte(html), finalURL, duration), nil
}

func (bf *BrowserFetcher) newPage(browser *rod.Browser) (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if bf.stealthCfg != nil {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	if bf.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: bf.userAgent}); err != nil {
			bf.logger.Debug("set user agent failed", "error", err)
		}
	}
	if sc := bf.stealthCfg; sc != nil {
		if _, err := page.EvalOnNewDocument(sc.StealthJS()); err != nil {
			bf.logger.Debug("stealth script injection failed", "error", err)
		}
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             sc.ViewportWidth,
			Height:            sc.ViewportHeight,
			DeviceScaleFactor: 1,
		})
	}
	return page, nil
}

// Close is a no-op; the shared Chromium is closed by its owner.
func (bf *BrowserFetcher) Close() error { return nil }
