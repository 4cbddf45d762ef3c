package reconcile

import (
	"go.uber.org/zap"

	"lorebook-binder/binding"
	"lorebook-binder/event"
	"lorebook-binder/host"
)

// BindingLoader reads the current bindings record.
type BindingLoader interface {
	Load() (binding.Bindings, error)
}

// Persister is the host's "save settings" call. It must write the state
// behind host.ActiveLorebooks, not the binder's own record.
type Persister interface {
	Persist()
}

// Deps are the collaborators an Engine drives. Cache and Logger are
// optional.
type Deps struct {
	Bindings  BindingLoader
	Active    host.ActiveLorebooks
	Host      Persister
	Publisher event.Publisher
	Notifier  host.Notifier
	Cache     *IdentityCache
	Logger    *zap.Logger
}

// Engine applies Reconcile results to the host.
type Engine struct {
	bindings  BindingLoader
	active    host.ActiveLorebooks
	host      Persister
	publisher event.Publisher
	notifier  host.Notifier
	cache     *IdentityCache
	logger    *zap.Logger
}

// NewEngine returns an Engine with an empty identity cache unless d.Cache
// is set.
func NewEngine(d Deps) *Engine {
	if d.Cache == nil {
		d.Cache = NewIdentityCache()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Engine{
		bindings:  d.Bindings,
		active:    d.Active,
		host:      d.Host,
		publisher: d.Publisher,
		notifier:  d.Notifier,
		cache:     d.Cache,
		logger:    d.Logger,
	}
}

// Cache returns the engine's identity cache.
func (e *Engine) Cache() *IdentityCache { return e.cache }

// OnPresetChanged adapts HandlePresetChanged to an event.Handler.
func (e *Engine) OnPresetChanged(ev event.Event) {
	e.HandlePresetChanged(ev.Channel, ev.Preset)
}

// HandlePresetChanged reconciles the active set for channel's switch to
// preset. The channel's cache entry is updated before returning whether or
// not anything was applied.
func (e *Engine) HandlePresetChanged(channel, preset string) Result {
	old, _ := e.cache.Get(channel)
	if preset == old {
		return Result{Active: e.active.Names()}
	}
	defer e.cache.Set(channel, preset)

	e.logger.Info("preset changed",
		zap.String("channel", channel),
		zap.String("from", old),
		zap.String("to", preset))

	b, err := e.bindings.Load()
	if err != nil {
		e.logger.Error("load bindings", zap.Error(err))
		e.notifier.Error("Could not load preset bindings.")
		return Result{Active: e.active.Names()}
	}

	res := Reconcile(old, preset, e.active.Names(), b)
	if !res.Changed {
		return res
	}
	e.apply(res.Active)
	return res
}

func (e *Engine) apply(names []string) {
	e.logger.Info("applying lorebooks", zap.Strings("lorebooks", names))

	indices := make([]int, 0, len(names))
	for _, name := range names {
		if i := e.active.IndexOf(name); i != -1 {
			indices = append(indices, i)
		}
	}

	e.active.ReplaceAll(names)
	if e.host != nil {
		e.host.Persist()
	}
	e.active.SyncControl(indices)
	if e.publisher != nil {
		e.publisher.Publish(event.WorldInfoUpdated(names))
	}
	e.notifier.Success("Lorebooks updated based on preset.")
}
