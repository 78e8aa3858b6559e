package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/IshaanNene/RivalWatch/internal/sites"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

// Artifact file names.
const (
	ResultSuffix       = "_result.json"
	IndustryFile       = "industry_result.json"
	ValidationFile     = "validation_report.json"
	industryFilePrefix = "industry"
)

// ArtifactFileName returns "<company>_result.json" with the company
// lowercased and every non-alphanumeric rune replaced by "_".
func ArtifactFileName(company string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(company)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String() + ResultSuffix
}

// ArtifactStore reads and writes the JSON artifacts that connect the fetch
// and integrate stages.
type ArtifactStore struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewArtifactStore creates the store, creating dir if needed.
func NewArtifactStore(dir string, logger *slog.Logger) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	return &ArtifactStore{
		dir:    dir,
		logger: logger.With("component", "artifact_store"),
	}, nil
}

// Dir returns the artifacts directory.
func (s *ArtifactStore) Dir() string { return s.dir }

// Save writes a competitor artifact and returns its path.
func (s *ArtifactStore) Save(a *Artifact) (string, error) {
	a.Count = len(a.Items)
	path := filepath.Join(s.dir, ArtifactFileName(a.Company))
	if err := s.writeJSON(path, a); err != nil {
		return "", err
	}
	s.logger.Info("artifact written", "company", a.Company, "items", a.Count, "path", path)
	return path, nil
}

// LoadAll reads every competitor artifact under the directory, recursively.
// Unreadable files are logged and skipped. A missing directory yields an
// empty result.
func (s *ArtifactStore) LoadAll() (map[string][]*types.ContentItem, error) {
	out := make(map[string][]*types.ContentItem)
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		name := d.Name()
		if d.IsDir() || !strings.HasSuffix(name, ResultSuffix) || strings.HasPrefix(name, industryFilePrefix) {
			return nil
		}
		a, err := readArtifact(path)
		if err != nil {
			s.logger.Warn("skipping artifact", "path", path, "error", err)
			return nil
		}
		if a.Company == "" {
			s.logger.Warn("artifact without company", "path", path)
			return nil
		}
		out[a.Company] = append(out[a.Company], a.Items...)
		return nil
	})
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Err: err}
	}
	return out, nil
}

func (s *ArtifactStore) saveIndustry(byModule map[string][]*types.ContentItem) (string, error) {
	path := filepath.Join(s.dir, IndustryFile)
	if err := s.writeJSON(path, byModule); err != nil {
		return "", err
	}
	s.logger.Info("industry artifact written", "modules", len(byModule), "path", path)
	return path, nil
}

// MergeIndustry replaces one module's items in the industry artifact.
func (s *ArtifactStore) MergeIndustry(module string, items []*types.ContentItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byModule, err := s.LoadIndustry()
	if err != nil {
		return "", err
	}
	if items == nil {
		items = []*types.ContentItem{}
	}
	byModule[module] = items
	return s.saveIndustry(byModule)
}

// LoadIndustry reads the industry artifact. A missing file yields an empty map.
func (s *ArtifactStore) LoadIndustry() (map[string][]*types.ContentItem, error) {
	out := make(map[string][]*types.ContentItem)
	data, err := os.ReadFile(filepath.Join(s.dir, IndustryFile))
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Err: err}
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("decode %s: %w", IndustryFile, err)}
	}
	return out, nil
}

// WriteFile creates name under the artifacts dir and hands it to write.
func (s *ArtifactStore) WriteFile(name string, write func(io.Writer) error) (string, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", &types.StorageError{Backend: "file", Err: err}
	}
	if err := write(f); err != nil {
		f.Close()
		return "", &types.StorageError{Backend: "file", Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &types.StorageError{Backend: "file", Err: err}
	}
	return path, nil
}

// writeJSON writes v through a temp file so readers never see a partial artifact.
func (s *ArtifactStore) writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	_, err := s.WriteFile(filepath.Base(tmp), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	})
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	return nil
}

func readArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Err: err}
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("decode %s: %w", filepath.Base(path), err)}
	}
	if a.Items == nil {
		a.Items = []*types.ContentItem{}
	}
	return &a, nil
}

// --- File Storage ---

// FileStorage is the Storage backend over an ArtifactStore. Industry
// artifacts are merged into the shared industry file.
type FileStorage struct {
	store *ArtifactStore
}

// NewFileStorage wraps an artifact store.
func NewFileStorage(store *ArtifactStore) *FileStorage {
	return &FileStorage{store: store}
}

func (s *FileStorage) Name() string { return "file" }

func (s *FileStorage) Store(a *Artifact) error {
	var err error
	if a.Kind == sites.KindIndustry {
		_, err = s.store.MergeIndustry(a.Company, a.Items)
	} else {
		_, err = s.store.Save(a)
	}
	return err
}

func (s *FileStorage) Close() error { return nil }
