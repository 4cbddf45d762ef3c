// Package autoselect switches the active preset to the one bound to the
// character of the chat that was just opened.
package autoselect

import (
	"fmt"

	"go.uber.org/zap"

	"lorebook-binder/binding"
	"lorebook-binder/event"
	"lorebook-binder/host"
)

// Kind is the action a Decision calls for.
type Kind int

const (
	// None: nothing to do.
	None Kind = iota
	// Select: Handle should be selected.
	Select
	// Stale: the bound preset no longer resolves; the binding is kept.
	Stale
)

func (k Kind) String() string {
	switch k {
	case Select:
		return "select"
	case Stale:
		return "stale"
	default:
		return "none"
	}
}

// Decision is the outcome of Decide. Preset is the bound name whenever a
// binding exists, even for None.
type Decision struct {
	Kind   Kind
	Preset string
	Handle host.Handle
}

// Decide works out what to do for character, which may be nil when the chat
// has no character. pm is only consulted once a binding is found.
func Decide(character *host.Character, b binding.Bindings, pm host.PresetManager) Decision {
	if character == nil {
		return Decision{}
	}
	bound, ok := b.PresetFor(character.StableID)
	if !ok || bound == "" {
		return Decision{}
	}
	h, ok := pm.Resolve(bound)
	if !ok {
		return Decision{Kind: Stale, Preset: bound}
	}
	if pm.CurrentSelectionName() == bound {
		return Decision{Preset: bound, Handle: h}
	}
	return Decision{Kind: Select, Preset: bound, Handle: h}
}

// BindingLoader reads the current bindings record.
type BindingLoader interface {
	Load() (binding.Bindings, error)
}

// Selector applies Decide when a chat is opened.
type Selector struct {
	bindings   BindingLoader
	characters host.CharacterDirectory
	presets    host.PresetManagers
	notifier   host.Notifier
	logger     *zap.Logger
}

// NewSelector returns a Selector. characters and presets are usually the
// same host value; logger may be nil.
func NewSelector(bindings BindingLoader, characters host.CharacterDirectory, presets host.PresetManagers, notifier host.Notifier, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		bindings:   bindings,
		characters: characters,
		presets:    presets,
		notifier:   notifier,
		logger:     logger,
	}
}

// OnChatChanged adapts HandleChatChanged to an event.Handler.
func (s *Selector) OnChatChanged(ev event.Event) {
	s.HandleChatChanged(ev.ChatFile)
}

// HandleChatChanged selects the preset bound to the character owning
// chatFile, if it is not already selected.
func (s *Selector) HandleChatChanged(chatFile string) Decision {
	character, ok := host.FindByChat(s.characters, chatFile)
	if !ok {
		s.logger.Debug("no character for chat", zap.String("chat", chatFile))
		return Decision{}
	}

	b, err := s.bindings.Load()
	if err != nil {
		s.logger.Error("load bindings", zap.Error(err))
		s.notifier.Error("Could not load preset bindings.")
		return Decision{}
	}
	if _, bound := b.PresetFor(character.StableID); !bound {
		return Decision{}
	}

	channel := s.presets.CurrentChannel()
	pm, ok := s.presets.PresetManager(channel)
	if !ok {
		s.logger.Warn("no preset manager", zap.String("channel", channel))
		s.notifier.Error("Could not find a preset manager for the current API.")
		return Decision{}
	}

	d := Decide(&character, b, pm)
	switch d.Kind {
	case Stale:
		s.logger.Warn("bound preset not found",
			zap.String("character", character.StableID),
			zap.String("preset", d.Preset))
		s.notifier.Warn(fmt.Sprintf("Preset %q bound to %s was not found.", d.Preset, character.DisplayName))
	case Select:
		s.logger.Info("selecting bound preset",
			zap.String("character", character.StableID),
			zap.String("channel", channel),
			zap.String("preset", d.Preset))
		pm.Select(d.Handle)
		s.notifier.Success(fmt.Sprintf("Switched to preset %q for %s.", d.Preset, character.DisplayName))
	}
	return d
}
