package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create video directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// ListFiles returns the regular files directly under the base directory.
func (ls *LocalStorage) ListFiles() ([]FileInfo, error) {
	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read video directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

// Stat describes a regular file without opening it.
func (ls *LocalStorage) Stat(name string) (FileInfo, error) {
	fullPath, err := ls.resolve(name)
	if err != nil {
		return FileInfo{}, err
	}

	stat, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileInfo{}, ErrNotFound
		}
		return FileInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if !stat.Mode().IsRegular() {
		return FileInfo{}, ErrNotFound
	}
	return FileInfo{Name: stat.Name(), Size: stat.Size(), ModTime: stat.ModTime()}, nil
}

func (ls *LocalStorage) OpenFile(name string) (File, error) {
	fullPath, err := ls.resolve(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !stat.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}

	return &localFile{
		File: f,
		info: FileInfo{Name: stat.Name(), Size: stat.Size(), ModTime: stat.ModTime()},
	}, nil
}

func (ls *LocalStorage) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidPath
	}
	cleanPath := filepath.Clean(name)
	if cleanPath == "." || strings.Contains(cleanPath, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(ls.basePath, cleanPath), nil
}

type localFile struct {
	*os.File
	info FileInfo
}

func (f *localFile) Info() FileInfo {
	return f.info
}
