package autoselect_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorebook-binder/autoselect"
	"lorebook-binder/binding"
	"lorebook-binder/event"
	"lorebook-binder/host"
	"lorebook-binder/notify"
)

type staticLoader struct {
	b   binding.Bindings
	err error
}

func (s staticLoader) Load() (binding.Bindings, error) { return s.b, s.err }

type recordingPublisher struct{ events []event.Event }

func (r *recordingPublisher) Publish(e event.Event) { r.events = append(r.events, e) }

func newHost(pub event.Publisher, channel string) *host.Memory {
	return host.NewMemory(host.Snapshot{
		Channels: map[string]host.ChannelState{
			"openai": {Presets: []string{"Default", "Creative"}, Selected: "Default"},
		},
		CurrentChannel: channel,
		Characters: []host.Character{
			{StableID: "av1.png", DisplayName: "Alice", ChatFile: "alice-chat"},
			{StableID: "av2.png", DisplayName: "Bob", ChatFile: "bob-chat"},
		},
	}, pub)
}

func bindingsWith(character, preset string) binding.Bindings {
	b := binding.New()
	b.RebindCharacter("", character, preset)
	return b
}

func TestDecide(t *testing.T) {
	h := newHost(nil, "openai")
	pm, _ := h.PresetManager("openai")
	alice := &host.Character{StableID: "av1.png"}

	assert.Equal(t, autoselect.None, autoselect.Decide(nil, bindingsWith("av1.png", "Creative"), pm).Kind)
	assert.Equal(t, autoselect.None, autoselect.Decide(alice, binding.New(), pm).Kind)

	d := autoselect.Decide(alice, bindingsWith("av1.png", "Creative"), pm)
	assert.Equal(t, autoselect.Select, d.Kind)
	assert.Equal(t, host.Handle{Name: "Creative", Index: 1}, d.Handle)

	d = autoselect.Decide(alice, bindingsWith("av1.png", "Default"), pm)
	assert.Equal(t, autoselect.None, d.Kind)

	d = autoselect.Decide(alice, bindingsWith("av1.png", "Deleted-Preset"), pm)
	assert.Equal(t, autoselect.Stale, d.Kind)
	assert.Equal(t, "Deleted-Preset", d.Preset)
}

func TestSelectorSelectsOnceScenario(t *testing.T) {
	pub := &recordingPublisher{}
	h := newHost(pub, "openai")
	history := notify.NewHistory(0)
	s := autoselect.NewSelector(staticLoader{b: bindingsWith("av1.png", "Creative")}, h, h, notify.New(nil, history), nil)

	d := s.HandleChatChanged("alice-chat")
	assert.Equal(t, autoselect.Select, d.Kind)
	pm, _ := h.PresetManager("openai")
	assert.Equal(t, "Creative", pm.CurrentSelectionName())
	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TypePresetChanged, pub.events[0].Type)
	assert.Len(t, history.Messages(notify.LevelSuccess), 1)

	d = s.HandleChatChanged("alice-chat")
	assert.Equal(t, autoselect.None, d.Kind)
	assert.Len(t, pub.events, 1, "repeat must not re-select")
	assert.Len(t, history.List(), 1, "repeat must not notify")
}

func TestSelectorStaleBindingWarnsAndKeepsBinding(t *testing.T) {
	h := newHost(nil, "openai")
	history := notify.NewHistory(0)
	b := bindingsWith("av1.png", "Deleted-Preset")
	s := autoselect.NewSelector(staticLoader{b: b}, h, h, notify.New(nil, history), nil)

	d := s.HandleChatChanged("alice-chat")
	assert.Equal(t, autoselect.Stale, d.Kind)
	assert.Len(t, history.Messages(notify.LevelWarn), 1)
	pm, _ := h.PresetManager("openai")
	assert.Equal(t, "Default", pm.CurrentSelectionName())

	p, ok := b.PresetFor("av1.png")
	assert.True(t, ok)
	assert.Equal(t, "Deleted-Preset", p)
}

func TestSelectorNoCharacterIsNoop(t *testing.T) {
	h := newHost(nil, "openai")
	history := notify.NewHistory(0)
	s := autoselect.NewSelector(staticLoader{err: errors.New("unused")}, h, h, notify.New(nil, history), nil)

	assert.Equal(t, autoselect.None, s.HandleChatChanged("group-chat").Kind)
	assert.Equal(t, autoselect.None, s.HandleChatChanged("").Kind)
	assert.Empty(t, history.List())
}

func TestSelectorUnboundCharacterIsNoop(t *testing.T) {
	h := newHost(nil, "missing-channel")
	history := notify.NewHistory(0)
	s := autoselect.NewSelector(staticLoader{b: bindingsWith("av1.png", "Creative")}, h, h, notify.New(nil, history), nil)

	assert.Equal(t, autoselect.None, s.HandleChatChanged("bob-chat").Kind)
	assert.Empty(t, history.List())
}

func TestSelectorMissingPresetManager(t *testing.T) {
	h := newHost(nil, "missing-channel")
	history := notify.NewHistory(0)
	s := autoselect.NewSelector(staticLoader{b: bindingsWith("av1.png", "Creative")}, h, h, notify.New(nil, history), nil)

	assert.Equal(t, autoselect.None, s.HandleChatChanged("alice-chat").Kind)
	assert.Equal(t, []string{"Could not find a preset manager for the current API."}, history.Messages(notify.LevelError))
}

func TestSelectorLoadFailure(t *testing.T) {
	h := newHost(nil, "openai")
	history := notify.NewHistory(0)
	s := autoselect.NewSelector(staticLoader{err: errors.New("disk gone")}, h, h, notify.New(nil, history), nil)

	assert.Equal(t, autoselect.None, s.HandleChatChanged("alice-chat").Kind)
	assert.Len(t, history.Messages(notify.LevelError), 1)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "none", autoselect.None.String())
	assert.Equal(t, "select", autoselect.Select.String())
	assert.Equal(t, "stale", autoselect.Stale.String())
}
