package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"lorebook-binder/binding"
)

type presetRow struct {
	OldKey    string   `json:"oldKey"`
	Preset    string   `json:"preset"`
	Lorebooks []string `json:"lorebooks"`
}

type characterRow struct {
	OldKey    string `json:"oldKey"`
	Character string `json:"character"`
	Preset    string `json:"preset"`
}

func (h *handler) getBindings(w http.ResponseWriter, r *http.Request) {
	b, err := h.bindings.Load()
	if err != nil {
		h.logger.Error("load bindings", zap.Error(err))
		http.Error(w, "failed to load bindings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handler) savePresetBinding(w http.ResponseWriter, r *http.Request) {
	var row presetRow
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := binding.ValidatePresetRow(row.Preset, row.Lorebooks); err != nil {
		h.notifier.Warn("Select at least one preset and one lorebook.")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.update(w, func(b *binding.Bindings) {
		b.RebindLorebooks(row.OldKey, row.Preset, row.Lorebooks)
	}, fmt.Sprintf("Binding saved for preset: %s", row.Preset))
}

func (h *handler) saveCharacterBinding(w http.ResponseWriter, r *http.Request) {
	var row characterRow
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := binding.ValidateCharacterRow(row.Character, row.Preset); err != nil {
		h.notifier.Warn("Select a character and a preset.")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.update(w, func(b *binding.Bindings) {
		b.RebindCharacter(row.OldKey, row.Character, row.Preset)
	}, fmt.Sprintf("Binding saved for character: %s", row.Character))
}

func (h *handler) deletePresetBinding(w http.ResponseWriter, r *http.Request) {
	h.remove(w, binding.KindPresetLorebooks, pathParam(r, "key"))
}

func (h *handler) deleteCharacterBinding(w http.ResponseWriter, r *http.Request) {
	h.remove(w, binding.KindCharacterPreset, pathParam(r, "key"))
}

func (h *handler) remove(w http.ResponseWriter, kind binding.Kind, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := h.bindings.Load()
	if err != nil {
		h.logger.Error("load bindings", zap.Error(err))
		http.Error(w, "failed to load bindings", http.StatusInternalServerError)
		return
	}
	if err := b.Unbind(kind, key); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.bindings.Save(b); err != nil {
		h.logger.Error("save bindings", zap.Error(err))
		http.Error(w, "failed to save bindings", http.StatusInternalServerError)
		return
	}
	h.notifier.Info("Binding removed.")
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) update(w http.ResponseWriter, mutate func(*binding.Bindings), notice string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := h.bindings.Load()
	if err != nil {
		h.logger.Error("load bindings", zap.Error(err))
		http.Error(w, "failed to load bindings", http.StatusInternalServerError)
		return
	}
	mutate(&b)
	if err := h.bindings.Save(b); err != nil {
		h.logger.Error("save bindings", zap.Error(err))
		http.Error(w, "failed to save bindings", http.StatusInternalServerError)
		return
	}
	h.notifier.Success(notice)

	updated, err := h.bindings.Load()
	if err != nil {
		http.Error(w, "failed to load bindings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
