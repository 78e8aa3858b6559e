package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/RivalWatch/internal/sites"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

// SiteTask crawls one site.
type SiteTask func(ctx context.Context, site *sites.Site) ([]*types.ContentItem, error)

// PhaseResult holds what a phase collected before finishing or timing out.
type PhaseResult struct {
	// Items maps site name to its items. Sites that failed or had not
	// finished by the deadline are absent.
	Items map[string][]*types.ContentItem

	// Errors maps site name to its failure.
	Errors map[string]error

	// Pending lists sites still running when the phase timed out.
	Pending []string

	TimedOut bool
	Duration time.Duration
}

// Scheduler runs independent per-site tasks on a bounded worker pool.
type Scheduler struct {
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

// NewScheduler creates a scheduler. A zero timeout means no phase deadline.
func NewScheduler(workers int, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		workers: workers,
		timeout: timeout,
		logger:  logger.With("component", "scheduler"),
	}
}

// Run executes task for every site. A failing site never cancels the
// others. When the phase deadline passes, Run returns immediately with the
// results collected so far; tasks still running see their context cancelled.
func (s *Scheduler) Run(ctx context.Context, siteList []*sites.Site, task SiteTask) *PhaseResult {
	start := time.Now()
	var (
		phaseCtx context.Context
		cancel   context.CancelFunc
	)
	if s.timeout > 0 {
		phaseCtx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		phaseCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var (
		mu      sync.Mutex
		items   = make(map[string][]*types.ContentItem, len(siteList))
		errs    = make(map[string]error)
		pending = make(map[string]struct{}, len(siteList))
	)
	for _, site := range siteList {
		pending[site.Name] = struct{}{}
	}

	s.logger.Info("phase starting", "sites", len(siteList), "workers", s.workers, "timeout", s.timeout)

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, site := range siteList {
			if phaseCtx.Err() != nil {
				break
			}
			g.Go(func() error {
				if phaseCtx.Err() != nil {
					return nil
				}
				siteStart := time.Now()
				got, err := task(phaseCtx, site)

				mu.Lock()
				defer mu.Unlock()
				if err != nil && phaseCtx.Err() != nil {
					// Cut off by the deadline; reported as pending.
					return nil
				}
				delete(pending, site.Name)
				if err != nil {
					errs[site.Name] = err
					s.logger.Warn("site failed", "site", site.Name, "error", err, "duration", time.Since(siteStart))
					return nil
				}
				items[site.Name] = got
				s.logger.Info("site done", "site", site.Name, "items", len(got), "duration", time.Since(siteStart))
				return nil
			})
		}
		_ = g.Wait()
	}()

	res := &PhaseResult{}
	select {
	case <-done:
	case <-phaseCtx.Done():
	}
	res.TimedOut = errors.Is(phaseCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil

	mu.Lock()
	defer mu.Unlock()
	res.Items = make(map[string][]*types.ContentItem, len(items))
	for k, v := range items {
		res.Items[k] = v
	}
	res.Errors = make(map[string]error, len(errs))
	for k, v := range errs {
		res.Errors[k] = v
	}
	for _, site := range siteList {
		if _, ok := pending[site.Name]; ok && res.TimedOut {
			res.Pending = append(res.Pending, site.Name)
		}
	}
	res.Duration = time.Since(start)

	if res.TimedOut {
		s.logger.Warn("phase timed out, using partial results",
			"completed", len(res.Items), "failed", len(res.Errors), "pending", res.Pending)
	} else {
		s.logger.Info("phase complete", "completed", len(res.Items), "failed", len(res.Errors), "duration", res.Duration)
	}
	return res
}
