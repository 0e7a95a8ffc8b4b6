// Package file provides repository implementations that persist to a filesystem.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

// snapshotVersion is bumped when the on-disk layout changes.
const snapshotVersion = 1

type snapshotFile struct {
	Version int                        `json:"version"`
	Entries map[string]domain.Metadata `json:"entries"`
}

// MetadataCacheRepository implements ports.MetadataCacheRepository as a JSON
// document on an afero filesystem. Writes go to a temporary file that is
// renamed over the previous snapshot.
//
// Thread-safe: All operations protected by sync.RWMutex.
type MetadataCacheRepository struct {
	fs   afero.Fs
	path string
	mu   sync.RWMutex
}

// NewMetadataCacheRepository creates a repository storing its snapshot at path.
func NewMetadataCacheRepository(fsys afero.Fs, path string) *MetadataCacheRepository {
	return &MetadataCacheRepository{
		fs:   fsys,
		path: path,
	}
}

// Path returns where the snapshot is stored.
func (r *MetadataCacheRepository) Path() string {
	return r.path
}

// SaveSnapshot persists the registry snapshot.
func (r *MetadataCacheRepository) SaveSnapshot(snapshot map[string]domain.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(snapshotFile{Version: snapshotVersion, Entries: snapshot})
	if err != nil {
		return domain.NewRepositoryError("save", "metadata-cache", "failed to marshal snapshot", err)
	}

	if err := r.fs.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return domain.NewRepositoryError("save", "metadata-cache", "failed to create directory", err)
	}

	tmp := r.path + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, data, 0o644); err != nil {
		return domain.NewRepositoryError("save", "metadata-cache", "failed to write snapshot", err)
	}
	if err := r.fs.Rename(tmp, r.path); err != nil {
		_ = r.fs.Remove(tmp)
		return domain.NewRepositoryError("save", "metadata-cache", "failed to replace snapshot", err)
	}

	return nil
}

// LoadSnapshot reads the saved snapshot. A missing file is an empty snapshot.
func (r *MetadataCacheRepository) LoadSnapshot() (map[string]domain.Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := afero.ReadFile(r.fs, r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]domain.Metadata{}, nil
	}
	if err != nil {
		return nil, domain.NewRepositoryError("load", "metadata-cache", "failed to read snapshot", err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, domain.NewRepositoryError("load", "metadata-cache", "failed to unmarshal snapshot", err)
	}
	if snap.Version != snapshotVersion {
		msg := fmt.Sprintf("unsupported snapshot version %d", snap.Version)
		return nil, domain.NewRepositoryError("load", "metadata-cache", msg, nil)
	}
	if snap.Entries == nil {
		snap.Entries = map[string]domain.Metadata{}
	}

	return snap.Entries, nil
}

// Verify interface implementation
var _ ports.MetadataCacheRepository = (*MetadataCacheRepository)(nil)
