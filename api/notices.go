package api

import (
	"net/http"

	"lorebook-binder/notify"
)

func (h *handler) listNotices(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, []notify.Notice{})
		return
	}
	writeJSON(w, http.StatusOK, h.history.List())
}
