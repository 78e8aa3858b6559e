package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/RivalWatch/internal/types"
)

// Middleware processes an item and returns the (possibly modified) item.
// Return nil to drop the item from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an item. Return nil to drop the item.
	Process(item *types.ContentItem) (*types.ContentItem, error)
}

// DropObserver is told which stage dropped an item.
type DropObserver func(stage string, item *types.ContentItem)

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	onDrop      DropObserver
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger, mws ...Middleware) *Pipeline {
	return &Pipeline{
		middlewares: mws,
		logger:      logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// OnDrop registers an observer for dropped items.
func (p *Pipeline) OnDrop(fn DropObserver) { p.onDrop = fn }

// Process runs the item through all middleware in order.
func (p *Pipeline) Process(item *types.ContentItem) (*types.ContentItem, error) {
	current := item

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				Item:  current,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("item dropped", "stage", mw.Name(), "title", item.Title, "url", item.URL)
			if p.onDrop != nil {
				p.onDrop(mw.Name(), item)
			}
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// ProcessAll runs every item through the chain and returns the survivors in
// input order. Items failing with an error are logged and dropped.
func (p *Pipeline) ProcessAll(items []*types.ContentItem) []*types.ContentItem {
	out := make([]*types.ContentItem, 0, len(items))
	for _, it := range items {
		res, err := p.Process(it)
		if err != nil {
			p.logger.Warn("item failed", "title", it.Title, "error", err)
			continue
		}
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
