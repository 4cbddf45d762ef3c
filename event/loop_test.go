package event_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lorebook-binder/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishDeliversToTypeSubscribers(t *testing.T) {
	l := event.NewLoop(nil)
	var presets, chats []event.Event
	l.Subscribe(event.TypePresetChanged, func(e event.Event) { presets = append(presets, e) })
	l.Subscribe(event.TypeChatChanged, func(e event.Event) { chats = append(chats, e) })

	l.Publish(event.PresetChanged("openai", "Creative"))

	require.Len(t, presets, 1)
	assert.Empty(t, chats)
	assert.Equal(t, "openai", presets[0].Channel)
	assert.Equal(t, "Creative", presets[0].Preset)
	assert.NotEmpty(t, presets[0].ID)
}

func TestNestedPublishRunsAfterCurrentHandlers(t *testing.T) {
	l := event.NewLoop(nil)
	var order []string

	l.Subscribe(event.TypeChatChanged, func(e event.Event) {
		order = append(order, "chat:start")
		l.Publish(event.PresetChanged("openai", "Creative"))
		order = append(order, "chat:end")
	})
	l.Subscribe(event.TypeChatChanged, func(e event.Event) {
		order = append(order, "chat:second")
	})
	l.Subscribe(event.TypePresetChanged, func(e event.Event) {
		order = append(order, "preset:"+e.Preset)
	})

	l.Publish(event.ChatChanged("chat.jsonl"))

	assert.Equal(t, []string{"chat:start", "chat:end", "chat:second", "preset:Creative"}, order)
}

func TestUnsubscribe(t *testing.T) {
	l := event.NewLoop(nil)
	calls := 0
	unsubscribe := l.Subscribe(event.TypeChatChanged, func(event.Event) { calls++ })

	l.Publish(event.ChatChanged("a"))
	unsubscribe()
	l.Publish(event.ChatChanged("b"))

	assert.Equal(t, 1, calls)
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	l := event.NewLoop(nil)
	reached := false
	l.Subscribe(event.TypeWorldInfoUpdated, func(event.Event) { panic("boom") })
	l.Subscribe(event.TypeWorldInfoUpdated, func(event.Event) { reached = true })

	l.Publish(event.WorldInfoUpdated([]string{"A"}))

	assert.True(t, reached)
	stats := l.Stats()
	assert.Equal(t, uint64(1), stats.Panicked)
	assert.Equal(t, uint64(1), stats.Delivered)

	// the loop is usable after a panic
	l.Publish(event.WorldInfoUpdated(nil))
	assert.Equal(t, uint64(2), l.Stats().Delivered)
}

func TestWorldInfoUpdatedCopiesNames(t *testing.T) {
	names := []string{"A", "B"}
	e := event.WorldInfoUpdated(names)
	names[0] = "Z"
	assert.Equal(t, []string{"A", "B"}, e.Lorebooks)
}

func TestWaitBlocksUntilOtherDrainerDelivers(t *testing.T) {
	l := event.NewLoop(nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	var presets atomic.Int32

	l.Subscribe(event.TypeChatChanged, func(e event.Event) {
		close(entered)
		<-release
	})
	l.Subscribe(event.TypePresetChanged, func(e event.Event) { presets.Add(1) })

	published := make(chan struct{})
	go func() {
		defer close(published)
		l.Publish(event.ChatChanged("alice-chat"))
	}()
	<-entered

	// Another goroutine is draining, so this only queues.
	l.Publish(event.PresetChanged("openai", "Creative"))
	assert.Equal(t, int32(0), presets.Load())

	waited := make(chan struct{})
	go func() {
		defer close(waited)
		l.Wait()
	}()
	select {
	case <-waited:
		t.Fatal("Wait returned while a handler was still running")
	default:
	}

	close(release)
	<-waited
	assert.Equal(t, int32(1), presets.Load())
	<-published
}

func TestWaitOnIdleLoopReturns(t *testing.T) {
	l := event.NewLoop(nil)
	l.Wait()
	l.Publish(event.ChatChanged("x"))
	l.Wait()
}
