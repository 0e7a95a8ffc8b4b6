package tagreader

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

// Preparer checks that a track's file is present and non-empty before the
// engine is asked to decode it.
type Preparer struct {
	fs afero.Fs
}

// NewPreparer creates a preparer for files on fsys.
func NewPreparer(fsys afero.Fs) *Preparer {
	return &Preparer{fs: fsys}
}

// Prepare implements ports.TrackPreparer.
func (p *Preparer) Prepare(track domain.Track) error {
	info, err := p.fs.Stat(track.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrFileNotFound
		}
		return fmt.Errorf("stat %s: %w", track.Path, err)
	}

	if info.IsDir() {
		return domain.ErrInvalidFilePath
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty: %w", track.Path, domain.ErrUnsupportedFormat)
	}
	return nil
}

// Verify that Preparer implements ports.TrackPreparer
var _ ports.TrackPreparer = (*Preparer)(nil)
