// Package manifest records what each extraction run wrote to disk.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrInvalidManifest indicates a manifest without entity or timestamp.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrNotFound indicates no manifest is stored under the requested key.
	ErrNotFound = errors.New("manifest not found")

	manifestsSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_manifests_saved_total",
		Help: "Manifests saved by backend",
	}, []string{"backend"})

	manifestErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_manifest_errors_total",
		Help: "Manifest store errors by operation",
	}, []string{"operation"})
)

// Manifest describes the output of one extraction.
type Manifest struct {
	// Entity is the extraction kind, e.g. "account" or "blocks".
	Entity string `json:"entity"`

	// Subject is the address or range the extraction was about.
	Subject string `json:"subject,omitempty"`

	// Timestamp is the YYYYMMDD_HHMMSS stamp shared by all files of the run.
	Timestamp string `json:"timestamp"`

	// Files maps a role ("json", "csv", "abi", ...) to the written path.
	Files map[string]string `json:"files"`

	// Counts holds record counts per dataset.
	Counts map[string]int `json:"counts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// New creates an empty manifest.
func New(entity, subject, timestamp string) *Manifest {
	return &Manifest{
		Entity:    entity,
		Subject:   subject,
		Timestamp: timestamp,
		Files:     make(map[string]string),
		Counts:    make(map[string]int),
		CreatedAt: time.Now().UTC(),
	}
}

// AddFile records a written file. Empty paths are ignored.
func (m *Manifest) AddFile(role, path string) {
	if path == "" {
		return
	}
	m.Files[role] = path
}

// SetCount records the number of records of a dataset.
func (m *Manifest) SetCount(dataset string, n int) {
	m.Counts[dataset] = n
}

// Roles returns the file roles in sorted order.
func (m *Manifest) Roles() []string {
	roles := make([]string, 0, len(m.Files))
	for r := range m.Files {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

func (m *Manifest) validate() error {
	if m == nil || m.Entity == "" || m.Timestamp == "" {
		return ErrInvalidManifest
	}
	return nil
}

// Store persists manifests.
type Store interface {
	Save(ctx context.Context, m *Manifest) error
}

// NopStore discards manifests.
type NopStore struct{}

// Save implements Store.
func (NopStore) Save(context.Context, *Manifest) error { return nil }

// MultiStore saves to every store and joins their errors.
type MultiStore []Store

// Save implements Store.
func (s MultiStore) Save(ctx context.Context, m *Manifest) error {
	var errs []error
	for _, store := range s {
		if err := store.Save(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileStore writes manifests as JSON files to Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates a store writing below dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Path returns the file a manifest is written to.
func (s *FileStore) Path(m *Manifest) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.json", m.Timestamp, m.Entity))
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, m *Manifest) error {
	if err := m.validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		manifestErrorsTotal.WithLabelValues("marshal").Inc()
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		manifestErrorsTotal.WithLabelValues("write").Inc()
		return fmt.Errorf("create manifest dir: %w", err)
	}
	if err := os.WriteFile(s.Path(m), data, 0o644); err != nil {
		manifestErrorsTotal.WithLabelValues("write").Inc()
		return fmt.Errorf("write manifest: %w", err)
	}

	manifestsSavedTotal.WithLabelValues("file").Inc()
	return nil
}
