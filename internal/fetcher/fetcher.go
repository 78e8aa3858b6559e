package fetcher

import (
	"context"

	"github.com/IshaanNene/RivalWatch/internal/types"
)

// Fetcher is the interface for all fetch tiers.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the tier identifier (http, browser, stealth).
	Type() string
}
