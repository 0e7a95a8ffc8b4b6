// Package tagreader reads primary metadata from audio files on disk.
// Tags come from dhowden/tag; FLAC stream headers are read with go-flac to get
// the duration and sample format.
package tagreader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	goflac "github.com/go-flac/go-flac"
	"github.com/spf13/afero"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

// Reader implements ports.MetadataReader over an afero filesystem.
//
// Thread-safety: Reader holds no mutable state and is safe for concurrent use.
type Reader struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewReader creates a reader for files on fsys.
func NewReader(fsys afero.Fs, logger *slog.Logger) *Reader {
	return &Reader{
		fs:     fsys,
		logger: logger.With(slog.String("component", "tag-reader")),
	}
}

// ReadPrimaryMetadata reads the tags of one file.
// Files without tags still yield metadata carrying the format; files that
// cannot be opened or whose tags are corrupt return an error.
func (r *Reader) ReadPrimaryMetadata(path string) (*domain.Metadata, error) {
	if path == "" {
		return nil, domain.ErrInvalidFilePath
	}

	file, err := r.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, domain.ErrFileNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	md := &domain.Metadata{
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
	}

	tags, err := tag.ReadFrom(file)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
		r.logger.Debug("no tags found", slog.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("read tags of %s: %w", path, err)
	default:
		applyTags(md, tags)
	}

	if md.Format == "flac" || md.Format == "fla" {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind %s: %w", path, err)
		}
		if err := applyStreamInfo(md, file); err != nil {
			r.logger.Warn("failed to read flac stream info", slog.String("path", path), slog.Any("error", err))
		}
	}

	return md, nil
}

func applyTags(md *domain.Metadata, tags tag.Metadata) {
	md.Title = strings.TrimSpace(tags.Title())
	md.Artist = strings.TrimSpace(tags.Artist())
	md.Album = strings.TrimSpace(tags.Album())
	md.Genre = strings.TrimSpace(tags.Genre())
	md.Composer = strings.TrimSpace(tags.Composer())
	md.Year = tags.Year()

	// Fall back to the track artist when no album artist is set
	md.AlbumArtist = strings.TrimSpace(tags.AlbumArtist())
	if md.AlbumArtist == "" {
		md.AlbumArtist = md.Artist
	}

	md.TrackNumber, _ = tags.Track()
	md.DiscNumber, _ = tags.Disc()
}

func applyStreamInfo(md *domain.Metadata, r io.Reader) error {
	f, err := goflac.ParseMetadata(r)
	if err != nil {
		return err
	}

	info, err := f.GetStreamInfo()
	if err != nil {
		return err
	}

	md.SampleRate = info.SampleRate
	md.BitDepth = info.BitDepth
	md.Duration = streamDuration(info.SampleCount, info.SampleRate)
	return nil
}

// streamDuration converts a sample count to a duration without overflowing on
// long streams.
func streamDuration(samples int64, sampleRate int) time.Duration {
	if sampleRate <= 0 || samples <= 0 {
		return 0
	}

	rate := int64(sampleRate)
	return time.Duration(samples/rate)*time.Second +
		time.Duration(samples%rate)*time.Second/time.Duration(rate)
}

// Verify that Reader implements ports.MetadataReader
var _ ports.MetadataReader = (*Reader)(nil)
