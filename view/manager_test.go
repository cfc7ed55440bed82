package view

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/charsheet/plugin/hook"
	"github.com/kasuganosora/charsheet/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_MountReusesSheet(t *testing.T) {
	fb := &fakeBackend{data: knight()}
	m := NewManager(fb, nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	s1, st, err := m.Mount(ctx, "", "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "Siegmeyer", st.Data.Character.Name)

	got, ok := m.Get("charsheet/popover-abc-123")
	require.True(t, ok)
	assert.Same(t, s1, got)

	s2, _, err := m.Mount(ctx, "charsheet/popover-abc-123", "abc-123")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, fb.fetches)

	// same popover, different character
	s3, _, err := m.Mount(ctx, "charsheet/popover-abc-123", "other-char-id")
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, 1, m.Len())
}

func TestManager_Unmount(t *testing.T) {
	m := NewManager(&fakeBackend{data: knight()}, nil, time.Minute, zap.NewNop())
	_, _, err := m.Mount(context.Background(), "p", "abc-123")
	require.NoError(t, err)
	assert.True(t, m.Unmount("p"))
	assert.False(t, m.Unmount("p"))
	_, ok := m.Get("p")
	assert.False(t, ok)
}

func TestManager_UnmountOnPopoverClose(t *testing.T) {
	hc := hook.NewHookCenter()
	m := NewManager(&fakeBackend{data: knight()}, hc, time.Minute, zap.NewNop())
	m.Register(hc)
	_, _, err := m.Mount(context.Background(), "charsheet/popover-abc-123", "abc-123")
	require.NoError(t, err)

	require.NoError(t, hc.Trigger(context.Background(), &hook.Event{
		Name: hook.OnPopoverClose, PopoverID: "charsheet/popover-abc-123",
	}))
	assert.Equal(t, 0, m.Len())
}

func TestManager_Prune(t *testing.T) {
	m := NewManager(&fakeBackend{data: knight()}, nil, time.Minute, zap.NewNop())
	_, _, err := m.Mount(context.Background(), "p", "abc-123")
	require.NoError(t, err)

	assert.Equal(t, 0, m.Prune(time.Now()))
	assert.Equal(t, 1, m.Prune(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, m.Len())
}

func TestManager_ScheduledPrune(t *testing.T) {
	m := NewManager(&fakeBackend{data: knight()}, nil, time.Nanosecond, zap.NewNop())
	sched := scheduler.New(zap.NewNop())
	defer sched.Stop()
	_, _, err := m.Mount(context.Background(), "p", "abc-123")
	require.NoError(t, err)

	m.Schedule(sched, time.Millisecond)
	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
}
