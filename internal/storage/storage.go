package storage

import (
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidPath = errors.New("invalid path")
)

type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// File is an open video: seekable so byte ranges can be served.
type File interface {
	io.ReadSeekCloser
	Info() FileInfo
}

type Storage interface {
	ListFiles() ([]FileInfo, error)
	Stat(name string) (FileInfo, error)
	OpenFile(name string) (File, error)
}
