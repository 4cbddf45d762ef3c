package api

import (
	"net/http"

	"go.uber.org/zap"

	"lorebook-binder/binding"
	"lorebook-binder/host"
)

type panel struct {
	Channel    string           `json:"channel"`
	Presets    []string         `json:"presets"`
	Lorebooks  []string         `json:"lorebooks"`
	Characters []host.Character `json:"characters"`
	Bindings   binding.Bindings `json:"bindings"`
}

// getPanel returns what the settings panel renders: the choices for each
// binding row plus the rows themselves.
func (h *handler) getPanel(w http.ResponseWriter, r *http.Request) {
	channel := h.host.CurrentChannel()
	pm, ok := h.host.PresetManager(channel)
	if !ok {
		h.notifier.Error("Could not find a preset manager for the current API.")
		http.Error(w, "no preset manager for current channel", http.StatusServiceUnavailable)
		return
	}

	b, err := h.bindings.Load()
	if err != nil {
		h.logger.Error("load bindings", zap.Error(err))
		http.Error(w, "failed to load bindings", http.StatusInternalServerError)
		return
	}

	lorebooks := h.host.Lorebooks()
	if lorebooks == nil {
		lorebooks = []string{}
	}
	characters := h.host.Characters()
	if characters == nil {
		characters = []host.Character{}
	}
	presets := pm.ListAll()
	if presets == nil {
		presets = []string{}
	}

	writeJSON(w, http.StatusOK, panel{
		Channel:    channel,
		Presets:    presets,
		Lorebooks:  lorebooks,
		Characters: characters,
		Bindings:   b,
	})
}
