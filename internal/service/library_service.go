package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/metadata"
	"github.com/tejashwikalptaru/gotune-core/internal/metrics"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
	"github.com/tejashwikalptaru/gotune-core/internal/track"
)

// LibraryName is the owning-list name of the library.
const LibraryName = "library"

var supportedExts = []string{
	// Common formats
	".mp3", ".mp2", ".mp1",
	".ogg", ".oga",
	".wav", ".aif", ".aiff",
	".flac", ".fla",
	".aac", ".m4a", ".m4b", ".mp4",
	".wma",
	".wv",          // WavPack
	".ape", ".mac", // APE
	".mpc", ".mp+", ".mpp", // Musepack
	".ofr", ".ofs", // OptimFROG
	".tta",         // TTA
	".adx", ".aix", // ADX
	".ac3", // AC3
	".cda", // CD Audio
	// MOD/Tracker formats
	".mod", ".xm", ".it", ".s3m", ".mtm", ".umx", ".mo3",
}

// LibraryService handles the music library: folder scans, incremental adds and
// the library list the scans load into.
// All operations are thread-safe via sync.RWMutex.
type LibraryService struct {
	// Dependencies (injected)
	logger   *slog.Logger
	fs       afero.Fs
	bus      ports.EventBus
	store    *track.Store
	registry *metadata.Registry
	pools    *metadata.Pools
	metrics  *metrics.Recorder

	list *trackList

	// loadMu serializes load sessions into the library
	loadMu sync.Mutex

	// State
	scanning   bool
	cancelScan context.CancelFunc
	progress   domain.ScanProgress

	// Concurrency control
	mu sync.RWMutex
}

// NewLibraryService creates a new library service reading folders through fsys.
func NewLibraryService(
	logger *slog.Logger,
	fsys afero.Fs,
	bus ports.EventBus,
	store *track.Store,
	registry *metadata.Registry,
	pools *metadata.Pools,
	rec *metrics.Recorder,
) *LibraryService {
	logger = logger.With(slog.String("service", "LibraryService"))
	logger.Debug("library service initialized")

	return &LibraryService{
		logger:   logger,
		fs:       fsys,
		bus:      bus,
		store:    store,
		registry: registry,
		pools:    pools,
		metrics:  rec,
		list:     newTrackList(LibraryName, store, bus),
	}
}

// ScanFolder scans a folder recursively and loads every supported file into the library.
//
// Metadata is first read in bulk on the registry pool, then a low priority load
// session hands the tracks to the library in batches. Progress events are
// published as batches land.
func (s *LibraryService) ScanFolder(ctx context.Context, folderPath string) (domain.ScanProgress, error) {
	// Walk the absolute folder so collected paths match track ids
	folderPath = domain.NewTrackID(folderPath).Path()

	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return domain.ScanProgress{}, domain.NewServiceError("LibraryService", "ScanFolder", "scan already running", domain.ErrScanInProgress)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.scanning = true
	s.cancelScan = cancel
	s.progress = domain.ScanProgress{Folder: folderPath}
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.scanning = false
		s.cancelScan = nil
		s.mu.Unlock()
	}()

	s.logger.Info("scan started", slog.String("folder", folderPath))
	s.bus.Publish(domain.NewScanStartedEvent(folderPath))

	files, err := s.collectAudioFiles(ctx, folderPath)
	if err != nil {
		return s.scanFailed(ctx, err)
	}

	s.mu.Lock()
	s.progress.FilesFound = len(files)
	s.mu.Unlock()

	s.registry.LoadMetadataForFiles(ctx, files, nil)
	if ctx.Err() != nil {
		return s.scanFailed(ctx, ctx.Err())
	}

	if err := s.runSession(ctx, files); err != nil {
		return s.scanFailed(ctx, err)
	}

	progress := s.Progress()
	s.logger.Info("scan completed",
		slog.String("folder", folderPath),
		slog.Int("files", progress.FilesFound),
		slog.Int("errors", progress.Errors))
	s.bus.Publish(domain.NewScanCompletedEvent(progress))

	return progress, nil
}

func (s *LibraryService) scanFailed(ctx context.Context, err error) (domain.ScanProgress, error) {
	progress := s.Progress()

	if ctx.Err() != nil {
		s.logger.Info("scan cancelled", slog.String("folder", progress.Folder))
		s.bus.Publish(domain.NewScanCancelledEvent(ctx.Err().Error()))
		return progress, domain.ErrScanCancelled
	}

	s.logger.Error("scan failed", slog.String("folder", progress.Folder), slog.Any("error", err))
	return progress, domain.NewServiceError("LibraryService", "ScanFolder", "failed to walk folder", err)
}

// AddFiles loads individual files into the library, skipping unsupported ones.
func (s *LibraryService) AddFiles(ctx context.Context, files []string) error {
	supported := lo.Filter(files, func(path string, _ int) bool {
		return s.IsFormatSupported(path)
	})
	if len(supported) == 0 {
		return nil
	}

	if err := s.runSession(ctx, supported); err != nil {
		return domain.NewServiceError("LibraryService", "AddFiles", "library load interrupted", err)
	}
	return nil
}

// RemoveFile drops a file from the library. The track itself stays in the store.
func (s *LibraryService) RemoveFile(path string) bool {
	removed := s.list.removeID(domain.NewTrackID(path))
	if removed {
		s.logger.Debug("file removed from library", slog.String("path", path))
	}
	return removed
}

func (s *LibraryService) runSession(ctx context.Context, files []string) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	session := metadata.NewLoadSession(metadata.LoadSessionConfig{
		List:           s,
		Store:          s.store,
		Registry:       s.registry,
		Pools:          s.pools,
		Priority:       domain.PriorityLow,
		Files:          files,
		InsertionIndex: -1,
		Bus:            s.bus,
		Logger:         s.logger,
		Metrics:        s.metrics,
	})
	return session.Run(ctx)
}

// CancelScan cancels the currently running scan operation.
func (s *LibraryService) CancelScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanning {
		return domain.NewServiceError("LibraryService", "CancelScan", "no scan in progress", nil)
	}

	if s.cancelScan != nil {
		s.cancelScan()
	}

	return nil
}

// IsScanning returns true if a scan is currently in progress.
func (s *LibraryService) IsScanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// Progress returns the progress of the current or last scan.
func (s *LibraryService) Progress() domain.ScanProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// Tracks returns a snapshot of the library in load order.
func (s *LibraryService) Tracks() []domain.Track {
	return s.list.tracks()
}

// Len returns the number of tracks in the library.
func (s *LibraryService) Len() int {
	return s.list.length()
}

// LoadErrors returns the files that failed to load, keyed by track id.
func (s *LibraryService) LoadErrors() map[domain.TrackID]error {
	return s.list.errors()
}

// IsFormatSupported checks if a file format is supported.
func (s *LibraryService) IsFormatSupported(filePath string) bool {
	return IsFormatSupported(filePath)
}

// GetSupportedFormats returns the list of supported file extensions.
func (s *LibraryService) GetSupportedFormats() []string {
	return slices.Clone(supportedExts)
}

// IsFormatSupported reports whether the extension of filePath is a supported audio format.
func IsFormatSupported(filePath string) bool {
	return slices.Contains(supportedExts, strings.ToLower(filepath.Ext(filePath)))
}

// Name implements ports.TrackList.
func (s *LibraryService) Name() string {
	return LibraryName
}

// FindTrack implements ports.TrackList.
func (s *LibraryService) FindTrack(id domain.TrackID) (domain.Track, bool) {
	return s.list.find(id)
}

// PreTrackLoad implements ports.TrackList.
func (s *LibraryService) PreTrackLoad() {
	s.logger.Debug("library load started")
}

// AcceptBatch implements ports.TrackList.
func (s *LibraryService) AcceptBatch(batch domain.ReadBatch) []int {
	failed := lo.CountBy(batch.Records, func(rec domain.ReadRecord) bool {
		return rec.Result == domain.ReadError
	})

	s.mu.Lock()
	if s.scanning {
		s.progress.TracksLoaded += len(batch.Records) - failed
		s.progress.Errors += failed
	}
	s.mu.Unlock()

	return s.list.accept(batch)
}

// PostBatchLoad implements ports.TrackList.
func (s *LibraryService) PostBatchLoad(_ []int) {
	s.mu.RLock()
	scanning := s.scanning
	progress := s.progress
	s.mu.RUnlock()

	if scanning {
		s.bus.Publish(domain.NewScanProgressEvent(progress))
	}
}

// FirstTrackLoaded implements ports.TrackList. The library never autoplays.
func (s *LibraryService) FirstTrackLoaded(index int) {
	s.logger.Debug("first library track loaded", slog.Int("index", index))
}

// PostTrackLoad implements ports.TrackList.
func (s *LibraryService) PostTrackLoad() {
	s.logger.Debug("library load finished", slog.Int("length", s.list.length()))
}

// IndexOfTrack implements ports.TrackList.
func (s *LibraryService) IndexOfTrack(id domain.TrackID) int {
	return s.list.indexOf(id)
}

// collectAudioFiles recursively collects all audio files in a directory.
func (s *LibraryService) collectAudioFiles(ctx context.Context, folderPath string) ([]string, error) {
	files := make([]string, 0)

	err := afero.Walk(s.fs, folderPath, func(path string, info fs.FileInfo, err error) error {
		// Check for cancellation
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == folderPath {
				return err
			}
			// Skip files/folders we can't access
			return nil
		}

		if info.IsDir() {
			return nil
		}

		if s.IsFormatSupported(path) {
			files = append(files, path)
		}

		return nil
	})

	if errors.Is(err, context.Canceled) {
		return files, context.Canceled
	}

	return files, err
}

// Shutdown cancels any running scan.
func (s *LibraryService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanning && s.cancelScan != nil {
		s.cancelScan()
	}

	return nil
}

// Verify that LibraryService implements the owning-list port
var _ ports.TrackList = (*LibraryService)(nil)
