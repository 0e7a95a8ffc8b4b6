package tagreader

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/logger"
)

// flacHeader builds a FLAC stream holding only a STREAMINFO block.
func flacHeader(sampleRate, bitDepth, channels int, samples int64) []byte {
	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:2], 4096)
	binary.BigEndian.PutUint16(info[2:4], 4096)

	packed := uint64(sampleRate)<<44 |
		uint64(channels-1)<<41 |
		uint64(bitDepth-1)<<36 |
		uint64(samples)
	binary.BigEndian.PutUint64(info[10:18], packed)

	var buf bytes.Buffer
	buf.WriteString("fLaC")
	// last-block flag set, type STREAMINFO, 24-bit length
	buf.Write([]byte{0x80, 0x00, 0x00, byte(len(info))})
	buf.Write(info)
	return buf.Bytes()
}

// id3v23 builds an ID3v2.3 tag with a single TIT2 frame.
func id3v23(title string) []byte {
	payload := append([]byte{0x00}, title...)

	var frame bytes.Buffer
	frame.WriteString("TIT2")
	_ = binary.Write(&frame, binary.BigEndian, uint32(len(payload)))
	frame.Write([]byte{0x00, 0x00})
	frame.Write(payload)

	size := frame.Len()
	var buf bytes.Buffer
	buf.WriteString("ID3")
	buf.Write([]byte{0x03, 0x00, 0x00})
	// syncsafe size
	buf.Write([]byte{
		byte(size >> 21 & 0x7f),
		byte(size >> 14 & 0x7f),
		byte(size >> 7 & 0x7f),
		byte(size & 0x7f),
	})
	buf.Write(frame.Bytes())
	buf.Write(make([]byte, 64))
	return buf.Bytes()
}

func newTestReader(t *testing.T) (*Reader, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewReader(fs, logger.NewTestLogger()), fs
}

func TestReader_FLACStreamInfo(t *testing.T) {
	r, fs := newTestReader(t)
	require.NoError(t, afero.WriteFile(fs, "/music/a.flac", flacHeader(44100, 16, 2, 441000), 0o644))

	md, err := r.ReadPrimaryMetadata("/music/a.flac")
	require.NoError(t, err)
	require.NotNil(t, md)

	assert.Equal(t, "flac", md.Format)
	assert.Equal(t, 44100, md.SampleRate)
	assert.Equal(t, 16, md.BitDepth)
	assert.Equal(t, 10*time.Second, md.Duration)
}

func TestReader_FLACLongStream(t *testing.T) {
	r, fs := newTestReader(t)
	// 10e9 samples is about 63 hours at 44.1kHz
	require.NoError(t, afero.WriteFile(fs, "/music/long.flac", flacHeader(44100, 16, 2, 10_000_000_000), 0o644))

	md, err := r.ReadPrimaryMetadata("/music/long.flac")
	require.NoError(t, err)

	assert.Equal(t, 226757*time.Second+369614512*time.Nanosecond, md.Duration)
}

func TestStreamDuration(t *testing.T) {
	tests := []struct {
		name    string
		samples int64
		rate    int
		want    time.Duration
	}{
		{"ten seconds", 441000, 44100, 10 * time.Second},
		{"fraction", 22050, 44100, 500 * time.Millisecond},
		{"max streaminfo count", 1<<36 - 1, 48000, 1431655*time.Second + 765312500*time.Nanosecond},
		{"no sample rate", 1000, 0, 0},
		{"no samples", 0, 44100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, streamDuration(tt.samples, tt.rate))
		})
	}
}

func TestReader_ID3Title(t *testing.T) {
	r, fs := newTestReader(t)
	require.NoError(t, afero.WriteFile(fs, "/music/b.mp3", id3v23("Hello"), 0o644))

	md, err := r.ReadPrimaryMetadata("/music/b.mp3")
	require.NoError(t, err)

	assert.Equal(t, "Hello", md.Title)
	assert.Equal(t, "mp3", md.Format)
}

func TestReader_NoTags(t *testing.T) {
	r, fs := newTestReader(t)
	require.NoError(t, afero.WriteFile(fs, "/music/c.wav", bytes.Repeat([]byte{0x01}, 256), 0o644))

	md, err := r.ReadPrimaryMetadata("/music/c.wav")
	require.NoError(t, err)

	assert.Empty(t, md.Title)
	assert.Equal(t, "wav", md.Format)
}

func TestReader_Errors(t *testing.T) {
	r, fs := newTestReader(t)
	require.NoError(t, afero.WriteFile(fs, "/music/tiny.mp3", []byte("abc"), 0o644))

	_, err := r.ReadPrimaryMetadata("")
	assert.ErrorIs(t, err, domain.ErrInvalidFilePath)

	_, err = r.ReadPrimaryMetadata("/music/missing.mp3")
	assert.ErrorIs(t, err, domain.ErrFileNotFound)

	_, err = r.ReadPrimaryMetadata("/music/tiny.mp3")
	assert.Error(t, err, "a file too short to identify is unreadable")
}

func TestPreparer(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/music/a.mp3", []byte("audio"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/music/empty.mp3", nil, 0o644))
	require.NoError(t, fs.MkdirAll("/music/dir.mp3", 0o755))

	p := NewPreparer(fs)

	assert.NoError(t, p.Prepare(domain.Track{Path: "/music/a.mp3"}))
	assert.ErrorIs(t, p.Prepare(domain.Track{Path: "/music/missing.mp3"}), domain.ErrFileNotFound)
	assert.ErrorIs(t, p.Prepare(domain.Track{Path: "/music/empty.mp3"}), domain.ErrUnsupportedFormat)
	assert.ErrorIs(t, p.Prepare(domain.Track{Path: "/music/dir.mp3"}), domain.ErrInvalidFilePath)
}
