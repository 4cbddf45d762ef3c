package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"lorebook-binder/event"
)

// ChannelState is one API channel's preset list and current selection.
type ChannelState struct {
	Presets  []string `json:"presets"`
	Selected string   `json:"selected"`
}

// Snapshot is the serializable state of a Memory host.
type Snapshot struct {
	Lorebooks      []string                `json:"lorebooks"`
	Active         []string                `json:"active"`
	ControlIndices []int                   `json:"controlIndices"`
	Channels       map[string]ChannelState `json:"channels"`
	CurrentChannel string                  `json:"currentChannel"`
	Characters     []Character             `json:"characters"`
	CurrentChat    string                  `json:"currentChat"`
}

// Memory is an in-process host. It implements every collaborator contract
// and publishes change events the way the chat application does.
type Memory struct {
	mu        sync.RWMutex
	state     Snapshot
	publisher event.Publisher

	fileMu   sync.Mutex
	filePath string
	debounce time.Duration
	timer    *time.Timer
	pending  bool
	closed   bool
	logger   *zap.Logger
}

// NewMemory builds a host from snap. publisher may be nil, in which case
// selection changes are not announced.
func NewMemory(snap Snapshot, publisher event.Publisher) *Memory {
	m := &Memory{publisher: publisher}
	m.state = copySnapshot(snap)
	return m
}

// LoadSnapshotFile reads a Snapshot from path. A missing file yields an
// empty snapshot.
func LoadSnapshotFile(path string) (Snapshot, error) {
	var snap Snapshot
	if path == "" {
		return snap, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snap, nil
		}
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode host snapshot: %w", err)
	}
	return snap, nil
}

func (m *Memory) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySnapshot(m.state)
}

// Replace swaps the whole host state. No events are published.
func (m *Memory) Replace(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = copySnapshot(snap)
}

// ActiveLorebooks

func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.state.Active...)
}

func (m *Memory) IndexOf(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, n := range m.state.Lorebooks {
		if n == name {
			return i
		}
	}
	return -1
}

func (m *Memory) ReplaceAll(names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Active = append(m.state.Active[:0], names...)
}

func (m *Memory) SyncControl(indices []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.ControlIndices = append([]int(nil), indices...)
}

// Catalog

func (m *Memory) Lorebooks() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.state.Lorebooks...)
}

// PresetManagers

func (m *Memory) PresetManager(channel string) (PresetManager, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.state.Channels[channel]; !ok {
		return nil, false
	}
	return &memoryPresets{host: m, channel: channel}, true
}

func (m *Memory) CurrentChannel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.CurrentChannel
}

func (m *Memory) Channels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.state.Channels))
	for ch := range m.state.Channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// CharacterDirectory

func (m *Memory) Characters() []Character {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Character(nil), m.state.Characters...)
}

func (m *Memory) CurrentChat() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.CurrentChat
}

// SelectPreset is the user picking preset in channel's dropdown.
func (m *Memory) SelectPreset(channel, preset string) error {
	pm, ok := m.PresetManager(channel)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	h, ok := pm.Resolve(preset)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
	pm.Select(h)
	return nil
}

// OpenChat switches the active chat and announces it.
func (m *Memory) OpenChat(chatFile string) {
	m.mu.Lock()
	m.state.CurrentChat = chatFile
	m.mu.Unlock()

	if m.publisher != nil {
		m.publisher.Publish(event.ChatChanged(chatFile))
	}
}

type memoryPresets struct {
	host    *Memory
	channel string
}

func (p *memoryPresets) ListAll() []string {
	p.host.mu.RLock()
	defer p.host.mu.RUnlock()
	return append([]string(nil), p.host.state.Channels[p.channel].Presets...)
}

func (p *memoryPresets) Resolve(name string) (Handle, bool) {
	p.host.mu.RLock()
	defer p.host.mu.RUnlock()
	for i, n := range p.host.state.Channels[p.channel].Presets {
		if n == name {
			return Handle{Name: n, Index: i}, true
		}
	}
	return Handle{}, false
}

func (p *memoryPresets) CurrentSelectionName() string {
	p.host.mu.RLock()
	defer p.host.mu.RUnlock()
	return p.host.state.Channels[p.channel].Selected
}

// Select changes the selection and fires a preset change event, even when
// the preset was already selected; listeners filter repeats themselves.
func (p *memoryPresets) Select(h Handle) {
	p.host.mu.Lock()
	st, ok := p.host.state.Channels[p.channel]
	if ok {
		st.Selected = h.Name
		p.host.state.Channels[p.channel] = st
	}
	p.host.mu.Unlock()

	if ok && p.host.publisher != nil {
		p.host.publisher.Publish(event.PresetChanged(p.channel, h.Name))
	}
}

func copySnapshot(s Snapshot) Snapshot {
	out := Snapshot{
		Lorebooks:      append([]string(nil), s.Lorebooks...),
		Active:         append([]string(nil), s.Active...),
		ControlIndices: append([]int(nil), s.ControlIndices...),
		Channels:       make(map[string]ChannelState, len(s.Channels)),
		CurrentChannel: s.CurrentChannel,
		Characters:     append([]Character(nil), s.Characters...),
		CurrentChat:    s.CurrentChat,
	}
	for k, v := range s.Channels {
		out.Channels[k] = ChannelState{
			Presets:  append([]string(nil), v.Presets...),
			Selected: v.Selected,
		}
	}
	return out
}

var (
	_ ActiveLorebooks    = (*Memory)(nil)
	_ Catalog            = (*Memory)(nil)
	_ PresetManagers     = (*Memory)(nil)
	_ CharacterDirectory = (*Memory)(nil)
)
