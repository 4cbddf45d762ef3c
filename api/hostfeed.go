package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"lorebook-binder/host"
)

func (h *handler) getHost(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.host.Snapshot())
}

// putHost replaces the host state wholesale and saves it. No change events
// fire; the identity cache is reseeded so the next switch diffs against the
// new selections.
func (h *handler) putHost(w http.ResponseWriter, r *http.Request) {
	var snap host.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.host.Replace(snap)
	h.host.Persist()
	if h.binder != nil {
		h.binder.Reseed()
	}
	writeJSON(w, http.StatusOK, h.host.Snapshot())
}

func (h *handler) selectPreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Preset string `json:"preset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Preset == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.host.SelectPreset(pathParam(r, "channel"), req.Preset); err != nil {
		if errors.Is(err, host.ErrUnknownChannel) || errors.Is(err, host.ErrUnknownPreset) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to select preset", http.StatusInternalServerError)
		return
	}
	h.settle()
	writeJSON(w, http.StatusOK, h.host.Snapshot())
}

func (h *handler) openChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatFile string `json:"chatFile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.host.OpenChat(req.ChatFile)
	h.settle()
	writeJSON(w, http.StatusOK, h.host.Snapshot())
}

// settle waits for the change events a request fired. When another request
// is already draining the loop, Publish only queues, and the snapshot would
// otherwise predate the reconcile.
func (h *handler) settle() {
	if h.binder != nil {
		h.binder.Wait()
	}
}
