package binding

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Kind selects one of the two binding maps.
type Kind string

const (
	KindPresetLorebooks Kind = "presetToLorebooks"
	KindCharacterPreset Kind = "characterToPreset"
)

var (
	ErrInvalidBinding = errors.New("invalid binding")
	ErrUnknownKind    = errors.New("unknown binding kind")
)

// LorebookSet is an unordered set of lorebook names stored as a list.
// Older records stored a bare string; decoding accepts both.
type LorebookSet []string

// NewLorebookSet builds a set from names, dropping blanks and duplicates
// while keeping first-seen order.
func NewLorebookSet(names ...string) LorebookSet {
	seen := make(map[string]struct{}, len(names))
	out := make(LorebookSet, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (s LorebookSet) Contains(name string) bool {
	for _, n := range s {
		if n == name {
			return true
		}
	}
	return false
}

func (s *LorebookSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = NewLorebookSet(single)
		return nil
	}

	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*s = NewLorebookSet(ss...)
		return nil
	}

	// Hand-edited records may hold mixed scalars.
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("lorebook set: %w", err)
	}
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			names = append(names, val)
		case float64:
			names = append(names, strconv.FormatFloat(val, 'f', -1, 64))
		default:
			names = append(names, fmt.Sprintf("%v", val))
		}
	}
	*s = NewLorebookSet(names...)
	return nil
}

// Bindings is the persisted record: preset -> lorebooks and
// character avatar -> preset. Presets are keyed by display name because the
// host exposes no stable preset ID.
type Bindings struct {
	PresetToLorebooks map[string]LorebookSet `json:"presetToLorebooks"`
	CharacterToPreset map[string]string      `json:"characterToPreset"`
}

func New() Bindings {
	return Bindings{
		PresetToLorebooks: map[string]LorebookSet{},
		CharacterToPreset: map[string]string{},
	}
}

// Lorebooks returns the set bound to preset, or nil.
func (b Bindings) Lorebooks(preset string) LorebookSet {
	if preset == "" {
		return nil
	}
	return b.PresetToLorebooks[preset]
}

func (b Bindings) PresetFor(characterID string) (string, bool) {
	p, ok := b.CharacterToPreset[characterID]
	return p, ok
}

// RebindLorebooks stores newKey -> books, removing oldKey first when the
// row was renamed.
func (b *Bindings) RebindLorebooks(oldKey, newKey string, books []string) {
	b.ensure()
	rebind(b.PresetToLorebooks, oldKey, newKey, NewLorebookSet(books...))
}

func (b *Bindings) RebindCharacter(oldKey, newKey, preset string) {
	b.ensure()
	rebind(b.CharacterToPreset, oldKey, newKey, preset)
}

// Rebind dispatches on kind. value must be []string (or LorebookSet) for
// KindPresetLorebooks and string for KindCharacterPreset.
func (b *Bindings) Rebind(kind Kind, oldKey, newKey string, value any) error {
	switch kind {
	case KindPresetLorebooks:
		switch v := value.(type) {
		case LorebookSet:
			b.RebindLorebooks(oldKey, newKey, v)
		case []string:
			b.RebindLorebooks(oldKey, newKey, v)
		default:
			return fmt.Errorf("%w: %s wants a lorebook list, got %T", ErrInvalidBinding, kind, value)
		}
	case KindCharacterPreset:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants a preset name, got %T", ErrInvalidBinding, kind, value)
		}
		b.RebindCharacter(oldKey, newKey, v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}

// Unbind deletes key from the kind's map. Absent keys are not an error.
func (b *Bindings) Unbind(kind Kind, key string) error {
	switch kind {
	case KindPresetLorebooks:
		delete(b.PresetToLorebooks, key)
	case KindCharacterPreset:
		delete(b.CharacterToPreset, key)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}

// Clone returns a deep copy.
func (b Bindings) Clone() Bindings {
	out := New()
	for k, v := range b.PresetToLorebooks {
		out.PresetToLorebooks[k] = append(LorebookSet(nil), v...)
	}
	for k, v := range b.CharacterToPreset {
		out.CharacterToPreset[k] = v
	}
	return out
}

// normalize collapses duplicates and drops keys left with no value.
func (b *Bindings) normalize() {
	b.ensure()
	for k, v := range b.PresetToLorebooks {
		set := NewLorebookSet(v...)
		if k == "" || len(set) == 0 {
			delete(b.PresetToLorebooks, k)
			continue
		}
		b.PresetToLorebooks[k] = set
	}
	for k, v := range b.CharacterToPreset {
		if k == "" || v == "" {
			delete(b.CharacterToPreset, k)
		}
	}
}

func (b *Bindings) ensure() {
	if b.PresetToLorebooks == nil {
		b.PresetToLorebooks = map[string]LorebookSet{}
	}
	if b.CharacterToPreset == nil {
		b.CharacterToPreset = map[string]string{}
	}
}

func rebind[V any](m map[string]V, oldKey, newKey string, value V) {
	if oldKey != "" && oldKey != newKey {
		delete(m, oldKey)
	}
	m[newKey] = value
}

// ValidatePresetRow is the save-time guard for a preset -> lorebooks row.
func ValidatePresetRow(preset string, books []string) error {
	if preset == "" || len(NewLorebookSet(books...)) == 0 {
		return fmt.Errorf("%w: a preset and at least one lorebook are required", ErrInvalidBinding)
	}
	return nil
}

// ValidateCharacterRow is the save-time guard for a character -> preset row.
func ValidateCharacterRow(character, preset string) error {
	if character == "" || preset == "" {
		return fmt.Errorf("%w: a character and a preset are required", ErrInvalidBinding)
	}
	return nil
}
