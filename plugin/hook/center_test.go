package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigger_NoHandlers(t *testing.T) {
	hc := NewHookCenter()
	require.NoError(t, hc.Trigger(context.Background(), &Event{Name: AfterLoad}))
}

func TestRegister_SingleHandler(t *testing.T) {
	hc := NewHookCenter()
	called := false
	hc.Register(AfterStatUpdate, 0, "h1", func(ctx context.Context, ev *Event) error {
		called = true
		assert.Equal(t, AfterStatUpdate, ev.Name)
		assert.Equal(t, "7", ev.CharacterID)
		return nil
	})
	require.NoError(t, hc.Trigger(context.Background(), &Event{Name: AfterStatUpdate, CharacterID: "7"}))
	assert.True(t, called)
	assert.Equal(t, 1, hc.Count(AfterStatUpdate))
}

func TestTrigger_HandlersShareEvent(t *testing.T) {
	hc := NewHookCenter()
	hc.Register("ev", 0, "tag", func(_ context.Context, ev *Event) error {
		ev.TraceID = "trace-1"
		return nil
	})
	var seen string
	hc.Register("ev", 1, "read", func(_ context.Context, ev *Event) error {
		seen = ev.TraceID
		return nil
	})
	require.NoError(t, hc.Trigger(context.Background(), &Event{Name: "ev"}))
	assert.Equal(t, "trace-1", seen)
}

func TestTrigger_PriorityOrder(t *testing.T) {
	hc := NewHookCenter()
	var order []string
	add := func(prio int, name string) {
		hc.Register("ev", prio, name, func(context.Context, *Event) error {
			order = append(order, name)
			return nil
		})
	}
	add(10, "notify")
	add(1, "audit")
	add(5, "a")
	add(5, "b")
	_ = hc.Trigger(context.Background(), &Event{Name: "ev"})
	assert.Equal(t, []string{"audit", "a", "b", "notify"}, order)
}

func TestTrigger_ErrInterrupt(t *testing.T) {
	hc := NewHookCenter()
	var secondCalled bool
	hc.Register(BeforeEquip, 0, "veto", func(context.Context, *Event) error { return ErrInterrupt })
	hc.Register(BeforeEquip, 1, "should_not_run", func(context.Context, *Event) error {
		secondCalled = true
		return nil
	})
	err := hc.Trigger(context.Background(), &Event{Name: BeforeEquip})
	assert.ErrorIs(t, err, ErrInterrupt)
	assert.False(t, secondCalled)
}

func TestTrigger_OtherErrorsAreJoined(t *testing.T) {
	hc := NewHookCenter()
	e1 := errors.New("audit down")
	var secondCalled bool
	hc.Register("ev", 0, "audit", func(context.Context, *Event) error { return e1 })
	hc.Register("ev", 1, "notify", func(context.Context, *Event) error {
		secondCalled = true
		return nil
	})
	err := hc.Trigger(context.Background(), &Event{Name: "ev"})
	assert.ErrorIs(t, err, e1)
	assert.True(t, secondCalled)
}

func TestUnregister_OnlyNamed(t *testing.T) {
	hc := NewHookCenter()
	var c1, c2 bool
	hc.Register("ev", 0, "h1", func(context.Context, *Event) error { c1 = true; return nil })
	hc.Register("ev", 1, "h2", func(context.Context, *Event) error { c2 = true; return nil })
	hc.Unregister("ev", "h1")
	_ = hc.Trigger(context.Background(), &Event{Name: "ev"})
	assert.False(t, c1)
	assert.True(t, c2)
}

func TestUnregisterAll(t *testing.T) {
	hc := NewHookCenter()
	var c1, c2, other bool
	hc.Register("evA", 0, "plugin", func(context.Context, *Event) error { c1 = true; return nil })
	hc.Register("evB", 0, "plugin", func(context.Context, *Event) error { c2 = true; return nil })
	hc.Register("evA", 1, "other", func(context.Context, *Event) error { other = true; return nil })
	hc.UnregisterAll("plugin")
	_ = hc.Trigger(context.Background(), &Event{Name: "evA"})
	_ = hc.Trigger(context.Background(), &Event{Name: "evB"})
	assert.False(t, c1)
	assert.False(t, c2)
	assert.True(t, other)
}
