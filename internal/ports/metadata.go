package ports

import (
	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

// MetadataReader reads primary metadata from an audio file.
//
// ReadPrimaryMetadata is a blocking per-file read called from worker pool units,
// so implementations must be safe for concurrent use.
type MetadataReader interface {
	ReadPrimaryMetadata(path string) (*domain.Metadata, error)
}

// MetadataCacheRepository persists the metadata registry snapshot between runs.
type MetadataCacheRepository interface {
	// SaveSnapshot replaces the stored snapshot.
	SaveSnapshot(snapshot map[string]domain.Metadata) error

	// LoadSnapshot returns the stored snapshot, or an empty map when nothing was saved.
	LoadSnapshot() (map[string]domain.Metadata, error)
}
