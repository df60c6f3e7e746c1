package catalog

import (
	"errors"
	"testing"

	"github.com/kdimtricp/emostim/internal/logging"
	"github.com/kdimtricp/emostim/internal/storage"
	"github.com/stretchr/testify/assert"
)

type fakeLister struct {
	names []string
	err   error
}

func (f fakeLister) ListFiles() ([]storage.FileInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]storage.FileInfo, 0, len(f.names))
	for _, n := range f.names {
		out = append(out, storage.FileInfo{Name: n})
	}
	return out, nil
}

func TestListStimulusVideos(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{
			name:  "filters extensions and healing video",
			files: []string{"b.webm", "healing.mp4", "notes.txt", "a.mp4", "clip.mov", "C.MP4"},
			want:  []string{"C.MP4", "a.mp4", "b.webm"},
		},
		{
			name:  "healing video match ignores case",
			files: []string{"Healing.MP4", "x.mp4"},
			want:  []string{"x.mp4"},
		},
		{
			name:  "empty directory",
			files: nil,
			want:  []string{},
		},
		{
			name:  "no extension",
			files: []string{"mp4", ".mp4x"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(fakeLister{names: tt.files}, "healing.mp4", logging.Discard())
			assert.Equal(t, tt.want, c.ListStimulusVideos())
		})
	}
}

func TestListStimulusVideos_UnreadableDirectory(t *testing.T) {
	c := New(fakeLister{err: errors.New("permission denied")}, "healing.mp4", logging.Discard())

	got := c.ListStimulusVideos()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestIsVideo(t *testing.T) {
	assert.True(t, IsVideo("a.mp4"))
	assert.True(t, IsVideo("a.WebM"))
	assert.False(t, IsVideo("a.mkv"))
	assert.False(t, IsVideo("a"))
}
