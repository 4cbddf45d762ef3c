package host_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorebook-binder/event"
	"lorebook-binder/host"
)

type recordingPublisher struct {
	events []event.Event
}

func (r *recordingPublisher) Publish(e event.Event) { r.events = append(r.events, e) }

func testSnapshot() host.Snapshot {
	return host.Snapshot{
		Lorebooks: []string{"A", "B", "C", "D"},
		Active:    []string{"A", "B"},
		Channels: map[string]host.ChannelState{
			"openai": {Presets: []string{"Default", "Creative"}, Selected: "Default"},
		},
		CurrentChannel: "openai",
		Characters: []host.Character{
			{StableID: "av1.png", DisplayName: "Alice", ChatFile: "alice-1"},
			{StableID: "av2.png", DisplayName: "Alice", ChatFile: "alice-2"},
		},
	}
}

func TestMemoryActiveLorebooks(t *testing.T) {
	m := host.NewMemory(testSnapshot(), nil)

	assert.Equal(t, []string{"A", "B"}, m.Names())
	assert.Equal(t, 2, m.IndexOf("C"))
	assert.Equal(t, -1, m.IndexOf("gone"))

	m.ReplaceAll([]string{"B", "C"})
	m.SyncControl([]int{1, 2})
	assert.Equal(t, []string{"B", "C"}, m.Names())
	assert.Equal(t, []int{1, 2}, m.Snapshot().ControlIndices)
}

func TestMemoryNamesIsACopy(t *testing.T) {
	m := host.NewMemory(testSnapshot(), nil)
	names := m.Names()
	names[0] = "Z"
	assert.Equal(t, []string{"A", "B"}, m.Names())
}

func TestMemoryPresetManager(t *testing.T) {
	pub := &recordingPublisher{}
	m := host.NewMemory(testSnapshot(), pub)

	_, ok := m.PresetManager("claude")
	assert.False(t, ok)

	pm, ok := m.PresetManager("openai")
	require.True(t, ok)
	assert.Equal(t, []string{"Default", "Creative"}, pm.ListAll())
	assert.Equal(t, "Default", pm.CurrentSelectionName())

	h, ok := pm.Resolve("Creative")
	require.True(t, ok)
	assert.Equal(t, host.Handle{Name: "Creative", Index: 1}, h)
	_, ok = pm.Resolve("Missing")
	assert.False(t, ok)

	pm.Select(h)
	assert.Equal(t, "Creative", pm.CurrentSelectionName())
	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TypePresetChanged, pub.events[0].Type)
	assert.Equal(t, "openai", pub.events[0].Channel)
	assert.Equal(t, "Creative", pub.events[0].Preset)
}

func TestMemorySelectPreset(t *testing.T) {
	m := host.NewMemory(testSnapshot(), nil)
	require.NoError(t, m.SelectPreset("openai", "Creative"))
	assert.ErrorIs(t, m.SelectPreset("nope", "Creative"), host.ErrUnknownChannel)
	assert.ErrorIs(t, m.SelectPreset("openai", "Nope"), host.ErrUnknownPreset)
}

func TestMemoryOpenChat(t *testing.T) {
	pub := &recordingPublisher{}
	m := host.NewMemory(testSnapshot(), pub)
	m.OpenChat("alice-2")

	assert.Equal(t, "alice-2", m.CurrentChat())
	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TypeChatChanged, pub.events[0].Type)
	assert.Equal(t, "alice-2", pub.events[0].ChatFile)
}

func TestFindByChatUsesChatFileNotName(t *testing.T) {
	m := host.NewMemory(testSnapshot(), nil)

	c, ok := host.FindByChat(m, "alice-2")
	require.True(t, ok)
	assert.Equal(t, "av2.png", c.StableID)

	_, ok = host.FindByChat(m, "")
	assert.False(t, ok)
	_, ok = host.FindByChat(m, "unknown")
	assert.False(t, ok)
}

func TestLoadSnapshotFile(t *testing.T) {
	snap, err := host.LoadSnapshotFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, snap.Lorebooks)

	path := filepath.Join(t.TempDir(), "host.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"lorebooks": ["A"],
		"channels": {"openai": {"presets": ["Default"], "selected": "Default"}},
		"currentChannel": "openai",
		"characters": [{"avatar": "av1.png", "name": "Alice", "chat": "c1"}]
	}`), 0644))
	snap, err = host.LoadSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, snap.Lorebooks)
	assert.Equal(t, "Default", snap.Channels["openai"].Selected)
	assert.Equal(t, "av1.png", snap.Characters[0].StableID)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))
	_, err = host.LoadSnapshotFile(path)
	assert.Error(t, err)
}
