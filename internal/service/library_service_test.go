package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

func writeFiles(t *testing.T, fs afero.Fs, paths ...string) {
	t.Helper()
	for _, path := range paths {
		require.NoError(t, afero.WriteFile(fs, path, []byte("audio"), 0o644))
	}
}

func TestLibraryService_IsFormatSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/music/a.mp3", true},
		{"/music/a.MP3", true},
		{"/music/a.flac", true},
		{"/music/a.m4a", true},
		{"/music/a.xm", true},
		{"/music/a.txt", false},
		{"/music/cover.jpg", false},
		{"/music/noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFormatSupported(tt.path))
		})
	}
}

func TestLibraryService_GetSupportedFormats(t *testing.T) {
	f := newServiceFixture(t)

	formats := f.library.GetSupportedFormats()
	assert.Contains(t, formats, ".mp3")
	assert.Contains(t, formats, ".flac")

	formats[0] = ".changed"
	assert.NotContains(t, f.library.GetSupportedFormats(), ".changed")
}

func TestLibraryService_ScanFolder(t *testing.T) {
	f := newServiceFixture(t)
	writeFiles(t, f.fs,
		"/music/a.mp3",
		"/music/sub/b.flac",
		"/music/sub/deeper/c.ogg",
		"/music/notes.txt",
		"/music/cover.jpg",
	)

	progress, err := f.library.ScanFolder(context.Background(), "/music")
	require.NoError(t, err)

	assert.Equal(t, "/music", progress.Folder)
	assert.Equal(t, 3, progress.FilesFound)
	assert.Equal(t, 3, progress.TracksLoaded)
	assert.Equal(t, 0, progress.Errors)
	assert.InDelta(t, 100.0, progress.Percentage(), 0.001)

	assert.Equal(t, 3, f.library.Len())
	assert.False(t, f.library.IsScanning())
	for _, path := range []string{"/music/a.mp3", "/music/sub/b.flac", "/music/sub/deeper/c.ogg"} {
		assert.Equal(t, 1, f.reader.Calls(path), "bulk fill reads once and the session hits the cache")
	}

	assert.Len(t, f.events.OfType(domain.EventScanStarted), 1)
	assert.NotEmpty(t, f.events.OfType(domain.EventScanProgress))
	completed := f.events.OfType(domain.EventScanCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, 3, completed[0].(domain.ScanCompletedEvent).Progress.TracksLoaded)
}

func TestLibraryService_ScanFolder_RelativeFolder(t *testing.T) {
	f := newServiceFixture(t)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	root := filepath.Join(cwd, "music")
	files := []string{
		filepath.Join(root, "a.mp3"),
		filepath.Join(root, "b.mp3"),
		filepath.Join(root, "sub", "c.flac"),
	}
	writeFiles(t, f.fs, files...)

	progress, err := f.library.ScanFolder(context.Background(), "music")
	require.NoError(t, err)

	assert.Equal(t, root, progress.Folder)
	assert.Equal(t, 3, progress.TracksLoaded)
	assert.Equal(t, 3, f.registry.Len(), "one entry per file")
	for _, path := range files {
		assert.Equal(t, 1, f.reader.Calls(path), path)
	}
}

func TestLibraryService_ScanFolder_UnreadableFile(t *testing.T) {
	f := newServiceFixture(t)
	writeFiles(t, f.fs, "/music/a.mp3", "/music/bad.mp3", "/music/c.mp3")
	f.reader.SetFailure("/music/bad.mp3", errors.New("truncated"))

	progress, err := f.library.ScanFolder(context.Background(), "/music")
	require.NoError(t, err)

	assert.Equal(t, 3, progress.FilesFound)
	assert.Equal(t, 2, progress.TracksLoaded)
	assert.Equal(t, 1, progress.Errors)
	assert.Equal(t, 2, f.library.Len())
	assert.Contains(t, f.library.LoadErrors(), domain.NewTrackID("/music/bad.mp3"))
}

func TestLibraryService_ScanFolder_NonExistentFolder(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.library.ScanFolder(context.Background(), "/missing")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrScanCancelled)
	assert.False(t, f.library.IsScanning())
	assert.Empty(t, f.events.OfType(domain.EventScanCompleted))
}

func scanInBackground(t *testing.T, f *serviceFixture, files int) <-chan error {
	t.Helper()

	paths := make([]string, files)
	for i := range paths {
		paths[i] = fmt.Sprintf("/big/track-%03d.mp3", i)
	}
	writeFiles(t, f.fs, paths...)
	f.reader.SetDelay(20 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := f.library.ScanFolder(context.Background(), "/big")
		done <- err
	}()

	require.Eventually(t, f.library.IsScanning, waitTimeout, time.Millisecond)
	return done
}

func TestLibraryService_CancelScan(t *testing.T) {
	f := newServiceFixture(t)
	done := scanInBackground(t, f, 40)

	require.NoError(t, f.library.CancelScan())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrScanCancelled)
	case <-time.After(waitTimeout):
		t.Fatal("scan did not stop after cancel")
	}

	assert.False(t, f.library.IsScanning())
	assert.Len(t, f.events.OfType(domain.EventScanCancelled), 1)
	assert.Empty(t, f.events.OfType(domain.EventScanCompleted))
}

func TestLibraryService_CancelScan_NoScanInProgress(t *testing.T) {
	f := newServiceFixture(t)

	err := f.library.CancelScan()

	var serviceErr *domain.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "CancelScan", serviceErr.Op)
}

func TestLibraryService_ScanFolder_ConcurrentScan(t *testing.T) {
	f := newServiceFixture(t)
	done := scanInBackground(t, f, 40)

	_, err := f.library.ScanFolder(context.Background(), "/big")
	assert.ErrorIs(t, err, domain.ErrScanInProgress)

	require.NoError(t, f.library.CancelScan())
	<-done
}

func TestLibraryService_AddFiles(t *testing.T) {
	f := newServiceFixture(t)

	err := f.library.AddFiles(context.Background(), []string{"/music/a.mp3", "/music/readme.md", "/music/b.wav"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.library.Len())

	require.NoError(t, f.library.AddFiles(context.Background(), []string{"/music/a.mp3", "/music/c.mp3"}))
	assert.Equal(t, []domain.TrackID{
		domain.NewTrackID("/music/a.mp3"),
		domain.NewTrackID("/music/b.wav"),
		domain.NewTrackID("/music/c.mp3"),
	}, trackIDs(f.library.Tracks()))

	assert.Empty(t, f.events.OfType(domain.EventScanProgress), "incremental adds are not scans")
}

func TestLibraryService_RemoveFile(t *testing.T) {
	f := newServiceFixture(t)
	require.NoError(t, f.library.AddFiles(context.Background(), []string{"/music/a.mp3", "/music/b.mp3"}))

	assert.True(t, f.library.RemoveFile("/music/a.mp3"))
	assert.False(t, f.library.RemoveFile("/music/a.mp3"))
	assert.Equal(t, 1, f.library.Len())

	_, ok := f.store.Get(domain.NewTrackID("/music/a.mp3"))
	assert.True(t, ok, "tracks stay in the store")
}

func TestLibraryService_SharesRegistryWithQueue(t *testing.T) {
	f := newServiceFixture(t)
	writeFiles(t, f.fs, "/music/a.mp3", "/music/b.mp3")

	_, err := f.library.ScanFolder(context.Background(), "/music")
	require.NoError(t, err)
	before := f.reader.TotalCalls()

	require.NoError(t, f.queue.Enqueue(context.Background(), []string{"/music/a.mp3", "/music/b.mp3"}, false))

	assert.Equal(t, before, f.reader.TotalCalls(), "queue import reuses library metadata")
	assert.Equal(t, 2, f.queue.Len())
}
