// Package storage provides file storage for uploaded source files and
// generated purchase orders.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for file storage operations
type Storage interface {
	// Upload stores a file and returns its metadata
	Upload(ctx context.Context, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Download retrieves a file by its ID
	Download(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Open retrieves a file by its stored name, for serving generated
	// purchase orders straight off the download route
	Open(ctx context.Context, storedName string) (io.ReadCloser, error)

	// Delete removes a file by its ID
	Delete(ctx context.Context, fileID uuid.UUID) error

	// List returns all stored files
	List(ctx context.Context) ([]*FileInfo, error)

	// GetInfo returns metadata for a file without downloading
	GetInfo(ctx context.Context, fileID uuid.UUID) (*FileInfo, error)

	// Purge deletes files older than the given age and returns how many
	// were removed
	Purge(ctx context.Context, olderThan time.Duration) (int, error)
}

// Config holds storage configuration
type Config struct {
	LocalPath string `yaml:"local_path" env:"STORAGE_LOCAL_PATH" envDefault:"./uploads"`
}

// New creates a new Storage implementation based on configuration
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.LocalPath)
}
