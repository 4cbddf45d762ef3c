// Package binding owns the preset/lorebook/character association record and
// its persistence through the host's settings storage.
package binding

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"lorebook-binder/settings"
)

const (
	Namespace = "Preset Lorebook Binder"
	Key       = "bindings"
	// LegacyKey held a bare preset -> lorebooks map before character
	// bindings existed.
	LegacyKey = "presetLorebookBindings"
)

// Manager loads and saves Bindings. It keeps no copy between calls: every
// Load reads the storage, every Save overwrites it.
type Manager struct {
	storage settings.Storage
	logger  *zap.Logger
}

func NewManager(storage settings.Storage, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{storage: storage, logger: logger}
}

// Load returns the stored record, or an empty one if nothing is stored yet.
// Legacy scalar values and the legacy record layout are normalized.
func (m *Manager) Load() (Bindings, error) {
	raw, ok, err := m.storage.Get(Namespace, Key)
	if err != nil {
		return Bindings{}, fmt.Errorf("load bindings: %w", err)
	}
	if ok {
		var b Bindings
		if err := json.Unmarshal(raw, &b); err != nil {
			return Bindings{}, fmt.Errorf("decode bindings: %w", err)
		}
		b.normalize()
		return b, nil
	}

	raw, ok, err = m.storage.Get(Namespace, LegacyKey)
	if err != nil {
		return Bindings{}, fmt.Errorf("load legacy bindings: %w", err)
	}
	b := New()
	if !ok {
		return b, nil
	}
	var legacy map[string]LorebookSet
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return Bindings{}, fmt.Errorf("decode legacy bindings: %w", err)
	}
	for preset, books := range legacy {
		b.PresetToLorebooks[preset] = books
	}
	b.normalize()
	m.logger.Debug("loaded legacy bindings record", zap.Int("presets", len(b.PresetToLorebooks)))
	return b, nil
}

// Save writes the whole record and asks the host to persist it. There is no
// merge with other writers; the last Save wins.
func (m *Manager) Save(b Bindings) error {
	b = b.Clone()
	b.normalize()
	if err := m.storage.Set(Namespace, Key, b); err != nil {
		return fmt.Errorf("save bindings: %w", err)
	}
	m.storage.Persist()
	m.logger.Info("bindings saved",
		zap.Int("presets", len(b.PresetToLorebooks)),
		zap.Int("characters", len(b.CharacterToPreset)))
	return nil
}
