package memory

import (
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

// Helper to create a test metadata cache repository
func newTestMetadataCacheRepository() *MetadataCacheRepository {
	// Use Fyne's test app which provides an in-memory preferences backend
	app := test.NewApp()
	return NewMetadataCacheRepository(app.Preferences())
}

func TestMetadataCacheRepository_SaveAndLoad(t *testing.T) {
	repo := newTestMetadataCacheRepository()

	snapshot := map[string]domain.Metadata{
		"/music/song1.mp3":  {Title: "Song 1", Artist: "Artist 1", Format: "mp3", Duration: 3 * time.Minute},
		"/music/song2.flac": {Title: "Song 2", Format: "flac", SampleRate: 44100, BitDepth: 16},
	}

	err := repo.SaveSnapshot(snapshot)
	require.NoError(t, err)

	loaded, err := repo.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snapshot, loaded)
}

func TestMetadataCacheRepository_LoadEmpty(t *testing.T) {
	repo := newTestMetadataCacheRepository()

	loaded, err := repo.LoadSnapshot()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestMetadataCacheRepository_Overwrite(t *testing.T) {
	repo := newTestMetadataCacheRepository()

	require.NoError(t, repo.SaveSnapshot(map[string]domain.Metadata{"/a.mp3": {Title: "A"}}))
	require.NoError(t, repo.SaveSnapshot(map[string]domain.Metadata{"/b.mp3": {Title: "B"}}))

	loaded, err := repo.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Metadata{"/b.mp3": {Title: "B"}}, loaded)
}

func TestMetadataCacheRepository_Clear(t *testing.T) {
	repo := newTestMetadataCacheRepository()
	require.NoError(t, repo.SaveSnapshot(map[string]domain.Metadata{"/a.mp3": {Title: "A"}}))

	require.NoError(t, repo.Clear())

	loaded, err := repo.LoadSnapshot()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestMetadataCacheRepository_CorruptData(t *testing.T) {
	app := test.NewApp()
	app.Preferences().SetString(metadataCacheKey, "{not json")
	repo := NewMetadataCacheRepository(app.Preferences())

	_, err := repo.LoadSnapshot()

	var repoErr *domain.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.Equal(t, "load", repoErr.Op)
}
