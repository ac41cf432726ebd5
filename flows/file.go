package flows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/GoCodeAlone/modular"
)

// FileBackend keeps every progress record in a single JSON document on
// disk and serves reads from memory. Connect loads the document; Set
// updates the in-memory map and rewrites the whole document through a
// temporary file and rename, so a crash mid-write leaves the previous
// document intact.
type FileBackend struct {
	path   string
	logger modular.Logger

	mu      sync.RWMutex
	records map[string]string
}

// NewFileBackend creates a file backend persisting to path. The logger is
// used for load warnings and may be nil.
func NewFileBackend(path string, logger modular.Logger) *FileBackend {
	return &FileBackend{path: path, logger: logger}
}

// Connect loads the progress document from disk. A missing file starts an
// empty document; a corrupt one is discarded with a warning and replaced
// by the next write. Other I/O failures are returned so the caller can
// fall back to another backend.
func (b *FileBackend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir := filepath.Dir(b.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for progress file: %w", err)
		}
	}

	b.records = make(map[string]string)

	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read progress file: %w", err)
	}

	var records map[string]string
	if err := json.Unmarshal(data, &records); err != nil {
		if b.logger != nil {
			b.logger.Warn("Discarding corrupt progress file", "path", b.path, "error", err)
		}
		return nil
	}
	if records != nil {
		b.records = records
	}
	return nil
}

// Close releases the backend. Every Set already flushed to disk, so there
// is nothing pending to write.
func (b *FileBackend) Close(ctx context.Context) error {
	return nil
}

// Get returns the record stored under key, or ErrKeyNotFound.
func (b *FileBackend) Get(ctx context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.records == nil {
		return "", ErrNotConnected
	}
	value, ok := b.records[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

// Set stores value under key and rewrites the document on disk. On a
// flush failure the in-memory entry is kept, so a later successful Set
// writes it out as part of the full document.
func (b *FileBackend) Set(ctx context.Context, key string, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.records == nil {
		return ErrNotConnected
	}
	b.records[key] = value
	return b.flushLocked()
}

// flushLocked atomically replaces the document on disk. Caller must hold
// b.mu.
func (b *FileBackend) flushLocked() error {
	data, err := json.MarshalIndent(b.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".flows-*")
	if err != nil {
		return fmt.Errorf("failed to create temp progress file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp progress file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp progress file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace progress file: %w", err)
	}
	return nil
}
