package metadata

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/metrics"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
	"github.com/tejashwikalptaru/gotune-core/internal/track"
)

// LoadSessionConfig binds a load session to its collaborators.
type LoadSessionConfig struct {
	List     ports.TrackList
	Store    *track.Store
	Registry *Registry
	Pools    *Pools
	Priority domain.LoadPriority
	Files    []string

	// InsertionIndex is where the first batch goes in the list, -1 to append
	InsertionIndex int

	Bus     ports.EventBus
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// LoadSession reads metadata for a set of files into an owning list in batches
// sized to the pool's concurrency, waiting for each batch before starting the next.
//
// A session is driven from a single goroutine and is not safe for concurrent use.
type LoadSession struct {
	list     ports.TrackList
	store    *track.Store
	registry *Registry
	pool     *Pool
	files    []string
	bus      ports.EventBus
	logger   *slog.Logger
	metrics  *metrics.Recorder

	batchSize      int
	insertionIndex int
	batch          []domain.ReadRecord

	started      bool
	firstLatched bool
	loaded       int
	errors       int
}

// NewLoadSession creates a session. Nothing is read until Run or ReadTrack is called.
func NewLoadSession(cfg LoadSessionConfig) *LoadSession {
	pool := cfg.Pools.ForPriority(cfg.Priority)

	insertionIndex := cfg.InsertionIndex
	if insertionIndex < 0 {
		insertionIndex = -1
	}

	return &LoadSession{
		list:     cfg.List,
		store:    cfg.Store,
		registry: cfg.Registry,
		pool:     pool,
		files:    cfg.Files,
		bus:      cfg.Bus,
		logger: cfg.Logger.With(
			slog.String("component", "load-session"),
			slog.String("list", cfg.List.Name()),
			slog.String("priority", cfg.Priority.String()),
		),
		metrics:        cfg.Metrics,
		batchSize:      pool.Concurrency(),
		insertionIndex: insertionIndex,
		batch:          make([]domain.ReadRecord, 0, pool.Concurrency()),
	}
}

// Run reads every configured file and flushes the trailing batch.
func (s *LoadSession) Run(ctx context.Context) error {
	s.begin()

	for _, path := range s.files {
		if err := s.ReadTrack(ctx, path); err != nil {
			s.finish()
			return err
		}
	}

	return s.AllTracksRead(ctx)
}

// ReadTrack adds one file to the in-flight batch, processing the batch once it is full.
func (s *LoadSession) ReadTrack(ctx context.Context, path string) error {
	s.begin()

	id := domain.NewTrackID(path)
	result := domain.ReadExisting

	if _, ok := s.list.FindTrack(id); !ok {
		t, _ := s.store.Acquire(path)
		id = t.ID
		result = domain.ReadAdded
	}

	s.batch = append(s.batch, domain.ReadRecord{Track: id, Result: result})

	if len(s.batch) >= s.batchSize {
		return s.processBatch(ctx)
	}
	return nil
}

// AllTracksRead flushes a partial trailing batch and tells the list loading is over.
func (s *LoadSession) AllTracksRead(ctx context.Context) error {
	s.begin()

	var err error
	if len(s.batch) > 0 {
		err = s.processBatch(ctx)
	}

	s.finish()
	return err
}

func (s *LoadSession) begin() {
	if s.started {
		return
	}
	s.started = true
	s.list.PreTrackLoad()
}

func (s *LoadSession) finish() {
	s.list.PostTrackLoad()

	s.logger.Debug("load session finished",
		slog.Int("files", len(s.files)),
		slog.Int("loaded", s.loaded),
		slog.Int("errors", s.errors))

	if s.bus != nil {
		s.bus.Publish(domain.NewTracksLoadedEvent(s.list.Name(), len(s.files), s.loaded, s.errors))
	}
}

// processBatch reads the batch on the pool, waits for all of it, then hands it to the list.
func (s *LoadSession) processBatch(ctx context.Context) error {
	started := time.Now()

	records := s.batch
	s.batch = make([]domain.ReadRecord, 0, s.batchSize)

	tasks := lo.FilterMap(records, func(rec domain.ReadRecord, _ int) (Task, bool) {
		t, ok := s.store.Get(rec.Track)
		if !ok || t.HasMetadata() || !t.IsValid() {
			return nil, false
		}
		return s.loadTask(t.ID), true
	})

	if err := s.pool.Run(ctx, tasks); err != nil {
		s.logger.Warn("batch interrupted", slog.Int("records", len(records)), slog.Any("error", err))
		return err
	}

	for i := range records {
		if t, ok := s.store.Get(records[i].Track); !ok || !t.IsValid() {
			records[i].Result = domain.ReadError
		}
	}

	indices := s.list.AcceptBatch(domain.ReadBatch{Records: records, InsertionIndex: s.insertionIndex})
	s.list.PostBatchLoad(indices)

	if s.insertionIndex >= 0 {
		s.insertionIndex += len(indices)
	}

	s.latchFirstTrack(records)

	failed := lo.CountBy(records, func(rec domain.ReadRecord) bool {
		return rec.Result == domain.ReadError
	})
	s.errors += failed
	s.loaded += len(records) - failed

	s.metrics.BatchObserved(s.list.Name(), time.Since(started))
	if s.bus != nil {
		s.bus.Publish(domain.NewTrackBatchLoadedEvent(s.list.Name(), indices))
	}

	return nil
}

func (s *LoadSession) latchFirstTrack(records []domain.ReadRecord) {
	if s.firstLatched {
		return
	}

	for _, rec := range records {
		if rec.Result == domain.ReadError {
			continue
		}
		index := s.list.IndexOfTrack(rec.Track)
		if index < 0 {
			continue
		}

		s.firstLatched = true
		s.list.FirstTrackLoaded(index)
		return
	}
}

func (s *LoadSession) loadTask(id domain.TrackID) Task {
	return func(context.Context) {
		md, err := s.registry.Read(id.Path())
		if err != nil {
			_, _ = s.store.Invalidate(id, err)
			return
		}
		_, _ = s.store.ApplyMetadata(id, md)
	}
}
