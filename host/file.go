package host

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"lorebook-binder/event"
)

// NewFileMemory loads the snapshot at path and returns a host that writes
// its state back there on Persist. An empty path gives a host whose Persist
// does nothing.
func NewFileMemory(path string, debounce time.Duration, publisher event.Publisher, logger *zap.Logger) (*Memory, error) {
	snap, err := LoadSnapshotFile(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := NewMemory(snap, publisher)
	m.filePath = path
	m.debounce = debounce
	m.logger = logger
	return m, nil
}

// Persist saves the host state to its snapshot file. With a zero debounce
// the write happens before Persist returns.
func (m *Memory) Persist() {
	if m.filePath == "" {
		return
	}
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	if m.closed {
		return
	}
	m.pending = true
	if m.debounce <= 0 {
		m.flushLocked()
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, func() {
		m.fileMu.Lock()
		defer m.fileMu.Unlock()
		if m.closed {
			return
		}
		m.flushLocked()
	})
}

// Close writes a pending persist, if any, and stops further writes.
func (m *Memory) Close() error {
	if m.filePath == "" {
		return nil
	}
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if !m.pending {
		return nil
	}
	return m.writeAtomic()
}

func (m *Memory) flushLocked() {
	m.timer = nil
	if err := m.writeAtomic(); err != nil {
		m.logger.Error("persist host snapshot", zap.String("path", m.filePath), zap.Error(err))
	}
}

// writeAtomic writes the current snapshot to a temp file and renames it over
// filePath. Caller must hold m.fileMu.
func (m *Memory) writeAtomic() error {
	if err := os.MkdirAll(filepath.Dir(m.filePath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	tmp := m.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, m.filePath); err != nil {
		return err
	}
	m.pending = false
	return nil
}
