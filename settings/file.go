package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileStorage keeps every namespace in a single JSON document on disk.
// Persist is debounced: bursts of saves collapse into one write.
type FileStorage struct {
	mu       sync.Mutex
	filePath string
	doc      document
	debounce time.Duration
	timer    *time.Timer
	dirty    bool
	closed   bool
	logger   *zap.Logger
}

// NewFileStorage loads the document at filePath, or starts empty if the file
// does not exist. Returns an error only on unexpected I/O or decode failures.
func NewFileStorage(filePath string, debounce time.Duration, logger *zap.Logger) (*FileStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileStorage{
		filePath: filePath,
		doc:      document{},
		debounce: debounce,
		logger:   logger,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, err
	}
	if s.doc == nil {
		s.doc = document{}
	}
	return s, nil
}

func (s *FileStorage) Get(namespace, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	raw, ok := s.doc.get(namespace, key)
	return raw, ok, nil
}

func (s *FileStorage) Set(namespace, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.doc.set(namespace, key, value); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Persist schedules a write of the whole document. With a zero debounce the
// write happens before Persist returns.
func (s *FileStorage) Persist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.debounce <= 0 {
		s.flushLocked()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.flushLocked()
	})
}

// Flush writes unsaved changes now, cancelling any pending debounced write.
func (s *FileStorage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		return nil
	}
	return s.writeAtomic()
}

// Close flushes unsaved changes and rejects further use. A storage that was
// only read never touches the file.
func (s *FileStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		return nil
	}
	return s.writeAtomic()
}

func (s *FileStorage) flushLocked() {
	s.timer = nil
	if !s.dirty {
		return
	}
	if err := s.writeAtomic(); err != nil {
		s.logger.Error("persist settings", zap.String("path", s.filePath), zap.Error(err))
	}
}

// writeAtomic writes to a temp file then renames it over filePath.
// Caller must hold s.mu.
func (s *FileStorage) writeAtomic() error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp := s.filePath + ".tmp"
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
