package storage

import (
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/IshaanNene/RivalWatch/internal/sites"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

// Artifact is the result of crawling one site. Competitor artifacts are keyed
// by company; industry artifacts by module label.
type Artifact struct {
	Company string               `json:"company"`
	Kind    sites.Kind           `json:"-"`
	Items   []*types.ContentItem `json:"items"`
	Count   int                  `json:"count"`
}

// NewArtifact builds an artifact, never holding a nil item slice.
func NewArtifact(company string, kind sites.Kind, items []*types.ContentItem) *Artifact {
	if items == nil {
		items = []*types.ContentItem{}
	}
	return &Artifact{Company: company, Kind: kind, Items: items, Count: len(items)}
}

// Storage is the interface for all artifact backends.
type Storage interface {
	// Store persists one artifact.
	Store(a *Artifact) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes artifacts to several backends. Every backend is tried;
// failures are combined.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

func (s *MultiStorage) Store(a *Artifact) error {
	var errs *multierror.Error
	for _, backend := range s.backends {
		if err := backend.Store(a); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "company", a.Company, "error", err)
			errs = multierror.Append(errs, &types.StorageError{Backend: backend.Name(), Err: err})
		}
	}
	return errs.ErrorOrNil()
}

func (s *MultiStorage) Close() error {
	var errs *multierror.Error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			errs = multierror.Append(errs, &types.StorageError{Backend: backend.Name(), Err: err})
		}
	}
	return errs.ErrorOrNil()
}
