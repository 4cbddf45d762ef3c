package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"lorebook-binder/binder"
	"lorebook-binder/binding"
	"lorebook-binder/host"
	"lorebook-binder/notify"
)

type Deps struct {
	Bindings *binding.Manager
	Host     *host.Memory
	Binder   *binder.Binder
	Notifier host.Notifier
	History  *notify.History
	Hub      *notify.Hub
	Logger   *zap.Logger
}

func RegisterRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{
		bindings: d.Bindings,
		host:     d.Host,
		binder:   d.Binder,
		notifier: d.Notifier,
		history:  d.History,
		logger:   logger,
	}

	// Binding rows
	r.Get("/api/bindings", h.getBindings)
	r.Put("/api/bindings/presets", h.savePresetBinding)
	r.Delete("/api/bindings/presets/{key}", h.deletePresetBinding)
	r.Put("/api/bindings/characters", h.saveCharacterBinding)
	r.Delete("/api/bindings/characters/{key}", h.deleteCharacterBinding)

	// Settings panel data
	r.Get("/api/panel", h.getPanel)

	// Host feed
	r.Get("/api/host", h.getHost)
	r.Put("/api/host", h.putHost)
	r.Post("/api/host/channels/{channel}/preset", h.selectPreset)
	r.Post("/api/host/chat", h.openChat)

	// Notices
	r.Get("/api/notices", h.listNotices)
	if d.Hub != nil {
		r.Get("/api/notices/ws", d.Hub.ServeHTTP)
	}

	return r
}

type handler struct {
	// mu serializes load-modify-save of the bindings record.
	mu       sync.Mutex
	bindings *binding.Manager
	host     *host.Memory
	binder   *binder.Binder
	notifier host.Notifier
	history  *notify.History
	logger   *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// pathParam returns the decoded URL parameter; names may contain spaces
// and slashes.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
