package event

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type subscription struct {
	id uint64
	h  Handler
}

// Loop is a serialized, run-to-completion event dispatcher.
type Loop struct {
	mu       sync.Mutex
	handlers map[Type][]subscription
	queue    []Event
	draining bool
	idle     *sync.Cond
	nextID   uint64
	logger   *zap.Logger

	delivered atomic.Uint64
	panicked  atomic.Uint64
}

func NewLoop(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		handlers: make(map[Type][]subscription),
		logger:   logger,
	}
	l.idle = sync.NewCond(&l.mu)
	return l
}

// Subscribe registers h for events of type t. The returned func removes it.
func (l *Loop) Subscribe(t Type, h Handler) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.handlers[t] = append(l.handlers[t], subscription{id: id, h: h})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		subs := l.handlers[t]
		for i, s := range subs {
			if s.id == id {
				l.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues e. If no delivery is in progress, the caller's goroutine
// drains the queue before Publish returns; otherwise the goroutine already
// draining delivers e and Publish returns immediately; use Wait to block
// until it has been handled.
func (l *Loop) Publish(e Event) {
	l.mu.Lock()
	l.queue = append(l.queue, e)
	if l.draining {
		l.mu.Unlock()
		return
	}
	l.draining = true

	for len(l.queue) > 0 {
		next := l.queue[0]
		l.queue[0] = Event{}
		l.queue = l.queue[1:]
		subs := append([]subscription(nil), l.handlers[next.Type]...)
		l.mu.Unlock()

		for _, s := range subs {
			l.dispatch(next, s.h)
		}

		l.mu.Lock()
	}
	l.queue = nil
	l.draining = false
	l.idle.Broadcast()
	l.mu.Unlock()
}

// Wait blocks until the queue is empty and no handler is running. Events
// published before Wait are delivered by the time it returns. Calling Wait
// from inside a handler deadlocks.
func (l *Loop) Wait() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.draining {
		l.idle.Wait()
	}
}

func (l *Loop) dispatch(e Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			l.panicked.Add(1)
			l.logger.Error("event handler panicked",
				zap.String("type", string(e.Type)),
				zap.String("id", e.ID),
				zap.Any("panic", r))
		}
	}()
	h(e)
	l.delivered.Add(1)
}

type Stats struct {
	Delivered uint64
	Panicked  uint64
}

func (l *Loop) Stats() Stats {
	return Stats{Delivered: l.delivered.Load(), Panicked: l.panicked.Load()}
}
