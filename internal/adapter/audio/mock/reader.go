package mock

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

// MetadataReader returns synthetic metadata derived from the file name.
//
// Thread-safety: This implementation is thread-safe.
type MetadataReader struct {
	mu        sync.Mutex
	failures  map[string]error
	metadata  map[string]domain.Metadata
	calls     map[string]int
	delay     time.Duration
	inFlight  int
	peak      int
	onRead func(path string)
}

// NewMetadataReader creates a reader that succeeds for every path.
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{
		failures: make(map[string]error),
		metadata: make(map[string]domain.Metadata),
		calls:    make(map[string]int),
	}
}

// SetFailure makes reads of path return err (nil to succeed again).
func (r *MetadataReader) SetFailure(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		delete(r.failures, path)
		return
	}
	r.failures[path] = err
}

// SetMetadata fixes the metadata returned for path.
func (r *MetadataReader) SetMetadata(path string, md domain.Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[path] = md
}

// SetDelay makes every read block for d, to expose concurrency in tests.
func (r *MetadataReader) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

// OnRead registers a hook called at the start of every read.
func (r *MetadataReader) OnRead(fn func(path string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRead = fn
}

// ReadPrimaryMetadata implements ports.MetadataReader.
func (r *MetadataReader) ReadPrimaryMetadata(path string) (*domain.Metadata, error) {
	r.mu.Lock()
	r.calls[path]++
	r.inFlight++
	r.peak = max(r.peak, r.inFlight)
	delay := r.delay
	hook := r.onRead
	failure := r.failures[path]
	md, fixed := r.metadata[path]
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}()

	if hook != nil {
		hook(path)
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	if failure != nil {
		return nil, failure
	}
	if fixed {
		return &md, nil
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return &domain.Metadata{
		Title:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Format:   ext,
		Duration: 3 * time.Minute,
	}, nil
}

// Calls returns how many times path was read.
func (r *MetadataReader) Calls(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

// TotalCalls returns the number of reads across all paths.
func (r *MetadataReader) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, n := range r.calls {
		total += n
	}
	return total
}

// PeakConcurrency returns the largest number of reads observed in flight at once.
func (r *MetadataReader) PeakConcurrency() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

var _ ports.MetadataReader = (*MetadataReader)(nil)
