package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gemini-media-mcp/internal/transfer"
)

// LocalStorage writes artifacts into a flat directory on disk.
type LocalStorage struct {
	baseDir string
}

func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

func (s *LocalStorage) Store(ctx context.Context, data []byte, mimeType string, prefix string) (*Result, error) {
	filename := transfer.UniqueName(prefix, extensionForMIME(mimeType))
	path, err := transfer.Save(s.baseDir, "", filename, data)
	if err != nil {
		return nil, err
	}
	return &Result{
		Location:  path,
		ObjectKey: filename,
		MIMEType:  mimeType,
		Size:      int64(len(data)),
	}, nil
}

// Retrieve verifies the file exists; no download or cleanup is needed.
func (s *LocalStorage) Retrieve(ctx context.Context, objectKey string) (string, func(), error) {
	path := filepath.Join(s.baseDir, objectKey)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("file not found: %s", objectKey)
		}
		return "", nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return path, func() {}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, objectKey string) error {
	transfer.Remove(filepath.Join(s.baseDir, objectKey))
	return nil
}

func (s *LocalStorage) Close() error { return nil }

func (s *LocalStorage) IsRemote() bool { return false }
