// Package host models the collaborators the binder borrows from the chat
// application: the active lorebook registry, the lorebook catalog, the
// per-channel preset managers, the character directory and the notice sink.
package host

import "errors"

var (
	ErrUnknownChannel = errors.New("no preset manager for channel")
	ErrUnknownPreset  = errors.New("preset not found")
)

// ActiveLorebooks is the host-owned set of globally enabled lorebooks.
// ReplaceAll swaps the contents of the same backing collection.
type ActiveLorebooks interface {
	Names() []string
	// IndexOf returns the catalog index of name, or -1.
	IndexOf(name string) int
	ReplaceAll(names []string)
	// SyncControl pushes the selection to whatever UI control mirrors it.
	SyncControl(indices []int)
}

type Catalog interface {
	Lorebooks() []string
}

// Handle is a resolved preset.
type Handle struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// PresetManager is a channel's preset list. The binder only ever changes
// which preset is selected.
type PresetManager interface {
	ListAll() []string
	Resolve(name string) (Handle, bool)
	CurrentSelectionName() string
	Select(h Handle)
}

type PresetManagers interface {
	PresetManager(channel string) (PresetManager, bool)
	CurrentChannel() string
	Channels() []string
}

// Character is keyed by its avatar file name; display names are not unique.
type Character struct {
	StableID    string `json:"avatar"`
	DisplayName string `json:"name"`
	ChatFile    string `json:"chat"`
}

type CharacterDirectory interface {
	Characters() []Character
}

// FindByChat returns the character whose current chat is chatFile.
func FindByChat(dir CharacterDirectory, chatFile string) (Character, bool) {
	if chatFile == "" {
		return Character{}, false
	}
	for _, c := range dir.Characters() {
		if c.ChatFile == chatFile {
			return c, true
		}
	}
	return Character{}, false
}

// Notifier is the user-facing notice sink. Delivery is best effort.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Success(msg string)
	Error(msg string)
}
