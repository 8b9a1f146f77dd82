package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists certificate artifacts on disk under a base directory
// and addresses them through a public URL prefix.
type LocalStorage struct {
	baseDir    string
	publicPath string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, publicPath string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./certificates"
	}
	if publicPath == "" {
		publicPath = "/certificates"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create certificates directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, publicPath: strings.TrimRight(publicPath, "/")}, nil
}

// Save writes the given bytes under the base dir and returns the durable
// public URL the artifact is reachable at.
func (s *LocalStorage) Save(data []byte, filename string) (string, error) {
	path := filepath.Join(s.baseDir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare certificates directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write certificate file: %w", err)
	}
	return s.publicPath + "/" + filename, nil
}

// Exists reports whether the artifact behind the given public URL is still
// present on disk.
func (s *LocalStorage) Exists(url string) bool {
	filename, ok := s.filenameFromURL(url)
	if !ok {
		return false
	}
	info, err := os.Stat(filepath.Join(s.baseDir, filename))
	return err == nil && !info.IsDir()
}

// Open returns a read-only handle for the artifact behind the public URL.
func (s *LocalStorage) Open(url string) (*os.File, error) {
	filename, ok := s.filenameFromURL(url)
	if !ok {
		return nil, fmt.Errorf("url %q outside storage prefix", url)
	}
	file, err := os.Open(filepath.Join(s.baseDir, filename))
	if err != nil {
		return nil, fmt.Errorf("open certificate file: %w", err)
	}
	return file, nil
}

// Delete removes the artifact behind the public URL if present.
func (s *LocalStorage) Delete(url string) error {
	filename, ok := s.filenameFromURL(url)
	if !ok {
		return nil
	}
	if err := os.Remove(filepath.Join(s.baseDir, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete certificate file: %w", err)
	}
	return nil
}

// BaseDir exposes the underlying directory (useful for debugging).
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

func (s *LocalStorage) filenameFromURL(url string) (string, bool) {
	if url == "" {
		return "", false
	}
	trimmed := strings.TrimPrefix(url, s.publicPath+"/")
	if trimmed == url || trimmed == "" {
		return "", false
	}
	// Reject traversal out of the base directory.
	clean := filepath.Clean(trimmed)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", false
	}
	return clean, true
}
