// Package binder connects the change-event loop to the lorebook reconciler
// and the preset auto-selector.
package binder

import (
	"go.uber.org/zap"

	"lorebook-binder/autoselect"
	"lorebook-binder/binding"
	"lorebook-binder/event"
	"lorebook-binder/host"
	"lorebook-binder/reconcile"
)

// Host is everything the binder needs from the chat application. Persist
// saves the host's own state after the active set changes.
type Host interface {
	host.ActiveLorebooks
	host.PresetManagers
	host.CharacterDirectory
	Persist()
}

type Deps struct {
	Loop     *event.Loop
	Bindings *binding.Manager
	Host     Host
	Notifier host.Notifier
	Logger   *zap.Logger
}

type Binder struct {
	loop     *event.Loop
	host     Host
	engine   *reconcile.Engine
	selector *autoselect.Selector
	unsub    []func()
	logger   *zap.Logger
}

func New(d Deps) *Binder {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := reconcile.NewEngine(reconcile.Deps{
		Bindings:  d.Bindings,
		Active:    d.Host,
		Host:      d.Host,
		Publisher: d.Loop,
		Notifier:  d.Notifier,
		Cache:     reconcile.NewIdentityCache(),
		Logger:    logger.Named("reconcile"),
	})
	selector := autoselect.NewSelector(d.Bindings, d.Host, d.Host, d.Notifier, logger.Named("autoselect"))
	return &Binder{
		loop:     d.Loop,
		host:     d.Host,
		engine:   engine,
		selector: selector,
		logger:   logger,
	}
}

// Start records every channel's current preset and subscribes to change
// events. Calling Start twice is a no-op.
func (b *Binder) Start() {
	if b.unsub != nil {
		return
	}
	b.Reseed()
	b.unsub = []func(){
		b.loop.Subscribe(event.TypePresetChanged, b.engine.OnPresetChanged),
		b.loop.Subscribe(event.TypeChatChanged, b.selector.OnChatChanged),
	}
	b.logger.Info("binder started", zap.Strings("channels", b.host.Channels()))
}

func (b *Binder) Stop() {
	for _, u := range b.unsub {
		u()
	}
	b.unsub = nil
}

// Reseed re-reads the host's selections into the identity cache. Use it
// after the host state was replaced without change events.
func (b *Binder) Reseed() {
	b.engine.Cache().Seed(b.host)
}

// Wait blocks until every published change event has been handled.
func (b *Binder) Wait() {
	b.loop.Wait()
}

func (b *Binder) Engine() *reconcile.Engine { return b.engine }

func (b *Binder) Selector() *autoselect.Selector { return b.selector }

func (b *Binder) Cache() *reconcile.IdentityCache { return b.engine.Cache() }
