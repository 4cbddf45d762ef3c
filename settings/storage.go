// Package settings holds the host's namespaced settings storage: structured
// values keyed by (namespace, key), with best-effort persistence.
package settings

import (
	"encoding/json"
	"errors"
)

var ErrClosed = errors.New("settings storage closed")

// Storage is the host-provided settings store. Set only changes the
// in-memory view; Persist makes it durable eventually and never reports
// failure to the caller.
type Storage interface {
	Get(namespace, key string) (json.RawMessage, bool, error)
	Set(namespace, key string, value any) error
	Persist()
}

type document map[string]map[string]json.RawMessage

func (d document) get(namespace, key string) (json.RawMessage, bool) {
	ns, ok := d[namespace]
	if !ok {
		return nil, false
	}
	raw, ok := ns[key]
	if !ok {
		return nil, false
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, true
}

func (d document) set(namespace, key string, value any) (json.RawMessage, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	ns, ok := d[namespace]
	if !ok {
		ns = make(map[string]json.RawMessage)
		d[namespace] = ns
	}
	ns[key] = raw
	return raw, nil
}
