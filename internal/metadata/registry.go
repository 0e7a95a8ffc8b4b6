package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/metrics"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

// DefaultMaxReadFailures is how many failed reads of one file are tolerated
// before it is reported as unreadable.
const DefaultMaxReadFailures = 3

// Registry is the process-wide cache of primary metadata keyed by file path.
//
// Entries are only added or overwritten, never removed. All methods are safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]domain.Metadata
	failures map[string]int

	reader          ports.MetadataReader
	pool            *Pool
	bus             ports.EventBus
	maxReadFailures int
	logger          *slog.Logger
	metrics         *metrics.Recorder
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxReadFailures sets the unreadable threshold. Zero disables reporting.
func WithMaxReadFailures(n int) RegistryOption {
	return func(r *Registry) {
		r.maxReadFailures = n
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(rec *metrics.Recorder) RegistryOption {
	return func(r *Registry) {
		r.metrics = rec
	}
}

// NewRegistry creates an empty registry that reads through reader on pool.
func NewRegistry(reader ports.MetadataReader, pool *Pool, bus ports.EventBus, logger *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:         make(map[string]domain.Metadata),
		failures:        make(map[string]int),
		reader:          reader,
		pool:            pool,
		bus:             bus,
		maxReadFailures: DefaultMaxReadFailures,
		logger:          logger.With(slog.String("component", "metadata-registry")),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Get returns the cached metadata for path.
func (r *Registry) Get(path string) (domain.Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	md, ok := r.entries[entryKey(path)]
	return md, ok
}

// Set stores metadata for path, overwriting any previous entry.
func (r *Registry) Set(path string, md domain.Metadata) {
	path = entryKey(path)

	r.mu.Lock()
	r.entries[path] = md
	delete(r.failures, path)
	n := len(r.entries)
	r.mu.Unlock()

	r.metrics.RegistrySize(n)
}

// Len returns the number of cached entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Read returns metadata for path from the cache, or reads it on the calling
// goroutine and caches the result.
func (r *Registry) Read(path string) (domain.Metadata, error) {
	path = entryKey(path)
	if md, ok := r.Get(path); ok {
		r.metrics.MetadataRead(metrics.SourceCache, true)
		return md, nil
	}

	return r.readAndStore(path)
}

// LoadMetadataForFiles reads every file that is not cached yet on the registry
// pool and blocks until all reads finished. Per-file failures are logged and
// swallowed. completion, when non-nil, is called afterwards on the calling goroutine.
func (r *Registry) LoadMetadataForFiles(ctx context.Context, files []string, completion func()) {
	pending := lo.Filter(lo.Uniq(lo.Map(files, func(path string, _ int) string {
		return entryKey(path)
	})), func(path string, _ int) bool {
		_, ok := r.Get(path)
		return !ok
	})

	if len(pending) > 0 {
		tasks := lo.Map(pending, func(path string, _ int) Task {
			return func(context.Context) {
				_, _ = r.readAndStore(path)
			}
		})

		if err := r.pool.Run(ctx, tasks); err != nil {
			r.logger.Warn("bulk metadata load interrupted",
				slog.Int("files", len(pending)),
				slog.Any("error", err))
		} else {
			r.logger.Debug("bulk metadata load finished", slog.Int("files", len(pending)))
		}
	}

	if completion != nil {
		completion()
	}
}

// PersistentSnapshot returns a copy of every entry.
func (r *Registry) PersistentSnapshot() map[string]domain.Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]domain.Metadata, len(r.entries))
	for path, md := range r.entries {
		snapshot[path] = md
	}
	return snapshot
}

// Restore adds every entry of a snapshot, overwriting existing ones.
func (r *Registry) Restore(snapshot map[string]domain.Metadata) {
	r.mu.Lock()
	for path, md := range snapshot {
		r.entries[entryKey(path)] = md
	}
	n := len(r.entries)
	r.mu.Unlock()

	r.metrics.RegistrySize(n)
}

// Load restores the snapshot stored in repo.
func (r *Registry) Load(ctx context.Context, repo ports.MetadataCacheRepository) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot, err := repo.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("failed to load metadata snapshot: %w", err)
	}

	r.Restore(snapshot)
	r.logger.Info("metadata snapshot restored", slog.Int("entries", len(snapshot)))
	return nil
}

// Save stores the current snapshot in repo.
func (r *Registry) Save(ctx context.Context, repo ports.MetadataCacheRepository) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := r.PersistentSnapshot()
	if err := repo.SaveSnapshot(snapshot); err != nil {
		return fmt.Errorf("failed to save metadata snapshot: %w", err)
	}

	r.logger.Info("metadata snapshot saved", slog.Int("entries", len(snapshot)))
	return nil
}

func (r *Registry) readAndStore(path string) (domain.Metadata, error) {
	md, err := r.reader.ReadPrimaryMetadata(path)
	if err == nil && md == nil {
		err = domain.ErrNoMetadata
	}

	r.metrics.MetadataRead(metrics.SourceReader, err == nil)

	if err != nil {
		r.recordFailure(path, err)
		return domain.Metadata{}, err
	}

	r.Set(path, *md)
	return *md, nil
}

func (r *Registry) recordFailure(path string, err error) {
	r.mu.Lock()
	r.failures[path]++
	count := r.failures[path]
	r.mu.Unlock()

	r.logger.Debug("metadata read failed",
		slog.String("path", path),
		slog.Int("failures", count),
		slog.Any("error", err))

	if r.maxReadFailures > 0 && count == r.maxReadFailures {
		r.logger.Warn("metadata unreadable", slog.String("path", path), slog.Int("failures", count))
		if r.bus != nil {
			r.bus.Publish(domain.NewMetadataUnreadableEvent(path, count, err))
		}
	}
}

// entryKey maps a file path to its registry key, the path of its TrackID, so
// relative and absolute spellings of one file share an entry.
func entryKey(path string) string {
	return domain.NewTrackID(path).Path()
}
