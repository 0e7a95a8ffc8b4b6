// Package memory provides repository implementations backed by Fyne preferences.
package memory

import (
	"encoding/json"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

const metadataCacheKey = "metadata.cache"

// MetadataCacheRepository implements ports.MetadataCacheRepository using Fyne preferences.
//
// Fyne preferences automatically use OS-specific app data directories:
// - macOS: ~/Library/Preferences/<app id>.plist
// - Linux: ~/.config/fyne/<app id>/
// - Windows: %APPDATA%\fyne\<app id>\
//
// Thread-safe: All operations protected by sync.RWMutex.
type MetadataCacheRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewMetadataCacheRepository creates a new metadata cache repository.
// The preferences parameter should be obtained from fyne.CurrentApp().Preferences().
func NewMetadataCacheRepository(prefs fyne.Preferences) *MetadataCacheRepository {
	return &MetadataCacheRepository{
		prefs: prefs,
	}
}

// SaveSnapshot persists the registry snapshot.
func (r *MetadataCacheRepository) SaveSnapshot(snapshot map[string]domain.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return domain.NewRepositoryError("save", "metadata-cache", "failed to marshal snapshot", err)
	}

	r.prefs.SetString(metadataCacheKey, string(data))

	return nil
}

// LoadSnapshot retrieves the last saved snapshot. A missing snapshot is empty.
func (r *MetadataCacheRepository) LoadSnapshot() (map[string]domain.Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.prefs.String(metadataCacheKey)
	if data == "" {
		return map[string]domain.Metadata{}, nil
	}

	var snapshot map[string]domain.Metadata
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, domain.NewRepositoryError("load", "metadata-cache", "failed to unmarshal snapshot", err)
	}

	return snapshot, nil
}

// Clear removes the saved snapshot.
func (r *MetadataCacheRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(metadataCacheKey)

	return nil
}

// Verify interface implementation
var _ ports.MetadataCacheRepository = (*MetadataCacheRepository)(nil)
