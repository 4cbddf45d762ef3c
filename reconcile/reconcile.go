// Package reconcile recomputes the globally active lorebook set when a
// channel's preset changes.
package reconcile

import (
	"sort"

	"lorebook-binder/binding"
)

// Result is the outcome of one reconciliation. Active is the set to apply
// when Changed is true.
type Result struct {
	Active  []string
	Changed bool
}

// Reconcile swaps the lorebooks bound to oldPreset for those bound to
// newPreset. Lorebooks active for any other reason are kept, and a lorebook
// bound to both presets is never removed. An empty preset name means none.
func Reconcile(oldPreset, newPreset string, active []string, b binding.Bindings) Result {
	current := append([]string(nil), active...)
	if oldPreset == newPreset {
		return Result{Active: current}
	}

	deactivate := b.Lorebooks(oldPreset)
	activate := b.Lorebooks(newPreset)

	next := make([]string, 0, len(active)+len(activate))
	seen := make(map[string]struct{}, len(active)+len(activate))
	for _, name := range active {
		if _, dup := seen[name]; dup {
			continue
		}
		if deactivate.Contains(name) && !activate.Contains(name) {
			continue
		}
		seen[name] = struct{}{}
		next = append(next, name)
	}
	for _, name := range activate {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		next = append(next, name)
	}

	if SameSet(next, active) {
		return Result{Active: current}
	}
	return Result{Active: next, Changed: true}
}

// SameSet reports whether a and b hold the same names regardless of order.
func SameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
