package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/IshaanNene/RivalWatch/internal/config"
	"github.com/IshaanNene/RivalWatch/internal/engine"
	"github.com/IshaanNene/RivalWatch/internal/fetcher"
	"github.com/IshaanNene/RivalWatch/internal/observability"
	"github.com/IshaanNene/RivalWatch/internal/sites"
	"github.com/IshaanNene/RivalWatch/internal/storage"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

// app holds everything one CLI invocation shares across stages.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	runID   string
	window  engine.Window
	catalog *sites.Catalog
	metrics *observability.Metrics

	store   *storage.ArtifactStore
	sink    storage.Storage
	closers []func() error
}

// newApp loads configuration, builds the logger and resolves the window.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, closeLog := setupLogger(cfg.Logging)
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	now, err := engine.ResolveNow(cfg.Window.Now, engine.SystemClock)
	if err != nil {
		closeLog()
		return nil, err
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		closeLog()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		runID:   runID,
		window:  engine.NewWindow(now, cfg.Window.Days),
		catalog: catalog,
		metrics: observability.NewMetrics(logger),
		closers: []func() error{closeLog},
	}
	logger.Debug("run configured", "window", a.window.String(), "sites", len(catalog.All()))
	return a, nil
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if windowEnd != "" {
		cfg.Window.Now = windowEnd
	}
	if windowDays > 0 {
		cfg.Window.Days = windowDays
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

func loadCatalog(cfg *config.Config) (*sites.Catalog, error) {
	if cfg.Scraper.SitesFile != "" {
		return sites.LoadCatalog(cfg.Scraper.SitesFile)
	}
	return sites.DefaultCatalog()
}

// setupLogger creates a structured logger. A file output is rotated by
// lumberjack; the returned func closes it.
func setupLogger(cfg config.LoggingConfig) (*slog.Logger, func() error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var (
		out     io.Writer = os.Stderr
		closeFn           = func() error { return nil }
	)
	switch cfg.Output {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = lj
		closeFn = lj.Close
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), closeFn
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func (a *app) signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			a.logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// openStorage opens the artifact directory and, when configured, the
// MongoDB mirror. An unreachable MongoDB is logged and skipped.
func (a *app) openStorage(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	store, err := storage.NewArtifactStore(a.cfg.Storage.ArtifactsDir, a.logger)
	if err != nil {
		return fmt.Errorf("create artifact store: %w", err)
	}
	backends := []storage.Storage{storage.NewFileStorage(store)}
	if a.cfg.Storage.Mongo.URI != "" {
		mongo, err := storage.NewMongoStorage(ctx, a.cfg.Storage.Mongo, a.runID, a.logger)
		if err != nil {
			a.logger.Warn("mongodb unavailable, storing files only", "error", err)
		} else {
			backends = append(backends, mongo)
		}
	}
	a.store = store
	a.sink = storage.NewMultiStorage(backends, a.logger)
	a.closers = append(a.closers, a.sink.Close)
	return nil
}

// crawl runs one phase over the selected sites of kind.
func (a *app) crawl(ctx context.Context, kind sites.Kind, names []string) ([]*sites.Site, *engine.PhaseResult, error) {
	siteList, err := a.catalog.Select(kind, names)
	if err != nil {
		return nil, nil, err
	}
	if len(siteList) == 0 {
		return nil, nil, fmt.Errorf("no %s sites configured", kind)
	}

	esc, err := fetcher.NewEscalator(a.cfg, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create fetcher: %w", err)
	}
	defer func() {
		if err := esc.Close(); err != nil {
			a.logger.Warn("fetcher close failed", "error", err)
		}
	}()
	esc.OnTier(a.metrics.RecordTier)

	news := fetcher.NewNewsSearch(esc.HTTP().Client(), fetcher.DefaultNewsSearchURL, a.cfg.Scraper.UserAgent, a.logger)
	crawler := engine.NewCrawler(esc, esc.HTTP(), news, a.window, a.metrics, a.logger)

	workers := a.cfg.Workers.Competitors
	if kind == sites.KindIndustry {
		workers = a.cfg.Workers.Industry
	}
	sched := engine.NewScheduler(workers, a.cfg.Workers.PhaseTimeout, a.logger)

	a.logger.Info("starting phase", "kind", kind, "sites", len(siteList), "window", a.window.String())
	a.metrics.SitesTotal.Add(int64(len(siteList)))
	res := sched.Run(ctx, siteList, crawler.CrawlSite)
	a.metrics.SitesFailed.Add(int64(len(res.Errors)))
	a.metrics.SitesTimedOut.Add(int64(len(res.Pending)))
	if ctx.Err() != nil {
		return siteList, res, ctx.Err()
	}
	return siteList, res, nil
}

// competitorPhase crawls competitor newsrooms and stores one artifact per
// company. Failed and timed-out companies get an empty artifact so the
// integrate stage never reads a previous run's items for them.
func (a *app) competitorPhase(ctx context.Context, names []string) (map[string][]*types.ContentItem, error) {
	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}
	siteList, res, err := a.crawl(ctx, sites.KindCompetitor, names)
	if err != nil && res == nil {
		return nil, err
	}

	out := make(map[string][]*types.ContentItem, len(siteList))
	for _, site := range siteList {
		items := res.Items[site.Name]
		out[site.Name] = items
		if storeErr := a.sink.Store(storage.NewArtifact(site.Name, sites.KindCompetitor, items)); storeErr != nil {
			a.logger.Error("artifact store failed", "company", site.Name, "error", storeErr)
		}
	}
	printPhase("Competitors", siteList, res)
	return out, err
}

// industryPhase crawls industry publications and merges them into the
// industry artifact, one entry per module label.
func (a *app) industryPhase(ctx context.Context, names []string) (map[string][]*types.ContentItem, error) {
	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}
	siteList, res, err := a.crawl(ctx, sites.KindIndustry, names)
	if err != nil && res == nil {
		return nil, err
	}

	byModule := make(map[string][]*types.ContentItem)
	var order []string
	for _, site := range siteList {
		label := site.Label()
		if _, ok := byModule[label]; !ok {
			order = append(order, label)
			byModule[label] = []*types.ContentItem{}
		}
		byModule[label] = append(byModule[label], res.Items[site.Name]...)
	}
	for _, label := range order {
		items := engine.Dedupe(byModule[label])
		byModule[label] = items
		if storeErr := a.sink.Store(storage.NewArtifact(label, sites.KindIndustry, items)); storeErr != nil {
			a.logger.Error("industry artifact store failed", "module", label, "error", storeErr)
		}
	}
	printPhase("Industry", siteList, res)
	return byModule, err
}

// close releases storage backends and the log file; errors are logged.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func printPhase(name string, siteList []*sites.Site, res *engine.PhaseResult) {
	items := 0
	for _, v := range res.Items {
		items += len(v)
	}
	fmt.Printf("\n%s: %d sites in %s\n", name, len(siteList), res.Duration.Round(time.Millisecond))
	fmt.Printf("   Completed: %d (%d items)\n", len(res.Items), items)
	if len(res.Errors) > 0 {
		fmt.Printf("   Failed:    %d\n", len(res.Errors))
		for _, site := range siteList {
			if err, ok := res.Errors[site.Name]; ok {
				fmt.Printf("     %-20s %v\n", site.Name, err)
			}
		}
	}
	if res.TimedOut {
		fmt.Printf("   Timed out: %s\n", strings.Join(res.Pending, ", "))
	}
}
