package catalog

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/kdimtricp/emostim/internal/storage"
	"github.com/sirupsen/logrus"
)

var allowedExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
}

// Lister is the part of storage.Storage the catalog needs.
type Lister interface {
	ListFiles() ([]storage.FileInfo, error)
}

// Catalog decides which files in the video directory are stimuli.
type Catalog struct {
	files        Lister
	healingVideo string
	log          *logrus.Entry
}

func New(files Lister, healingVideo string, log *logrus.Entry) *Catalog {
	return &Catalog{files: files, healingVideo: healingVideo, log: log}
}

func (c *Catalog) HealingVideo() string {
	return c.healingVideo
}

// ListStimulusVideos returns the sorted stimulus filenames. An unreadable
// directory yields an empty list: no content, not a fault.
func (c *Catalog) ListStimulusVideos() []string {
	files, err := c.files.ListFiles()
	if err != nil {
		c.log.WithError(err).Warn("video directory unreadable, catalog is empty")
		return []string{}
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if IsStimulus(f.Name, c.healingVideo) {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

// IsVideo reports whether name has a servable video extension.
func IsVideo(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

func IsStimulus(name, healingVideo string) bool {
	if !IsVideo(name) {
		return false
	}
	return !strings.EqualFold(name, healingVideo)
}
