// Package event is the change-event bus between the host and the binder.
//
// The Loop runs handlers to completion one event at a time, in publish
// order, the way a single-threaded UI event loop would. An event published
// while another is being delivered (including from inside a handler) is
// queued and delivered after the current event's handlers have returned.
package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	// TypePresetChanged fires after the host's preset selection for a
	// channel changed. Carries Channel and Preset.
	TypePresetChanged Type = "preset.changed"
	// TypeChatChanged fires after the active chat (and so the character)
	// changed. Carries ChatFile.
	TypeChatChanged Type = "chat.changed"
	// TypeWorldInfoUpdated fires after the active lorebook set was
	// replaced. Carries Lorebooks.
	TypeWorldInfoUpdated Type = "worldinfo.updated"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Channel   string    `json:"channel,omitempty"`
	Preset    string    `json:"preset,omitempty"`
	ChatFile  string    `json:"chatFile,omitempty"`
	Lorebooks []string  `json:"lorebooks,omitempty"`
	At        time.Time `json:"at"`
}

func newEvent(t Type) Event {
	return Event{ID: uuid.NewString(), Type: t, At: time.Now()}
}

func PresetChanged(channel, preset string) Event {
	e := newEvent(TypePresetChanged)
	e.Channel = channel
	e.Preset = preset
	return e
}

func ChatChanged(chatFile string) Event {
	e := newEvent(TypeChatChanged)
	e.ChatFile = chatFile
	return e
}

func WorldInfoUpdated(lorebooks []string) Event {
	e := newEvent(TypeWorldInfoUpdated)
	e.Lorebooks = append([]string(nil), lorebooks...)
	return e
}

type Handler func(Event)

type Publisher interface {
	Publish(Event)
}
