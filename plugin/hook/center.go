// Package hook lets independent subscribers react to sheet writes, e.g. the
// audit log and live update notifications.
package hook

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kasuganosora/charsheet/model"
)

// ErrInterrupt signals that a handler wants to stop further processing.
// From a Before* event it also vetoes the write.
var ErrInterrupt = errors.New("hook interrupted")

// Event names.
const (
	BeforeStatUpdate = "before_stat_update"
	AfterStatUpdate  = "after_stat_update"
	BeforeEquip      = "before_equip"
	AfterEquip       = "after_equip"
	AfterLoad        = "after_load"
	OnPopoverOpen    = "on_popover_open"
	OnPopoverClose   = "on_popover_close"
)

// Event carries what happened to a sheet. Handlers may annotate it; later
// handlers see the changes.
type Event struct {
	Name        string
	TraceID     string
	PlayerID    string
	PopoverID   string
	CharacterID string

	StatCode  model.StatCode
	StatValue int
	ItemName  string
	Slot      model.Slot

	Before *model.CharacterData
	After  *model.CharacterData
	Err    error

	Started  time.Time
	Duration time.Duration
}

// HookFn handles one event.
type HookFn func(ctx context.Context, ev *Event) error

type hookEntry struct {
	priority int
	fn       HookFn
	name     string
}

// HookCenter manages event hook registrations.
type HookCenter struct {
	mu    sync.RWMutex
	hooks map[string][]*hookEntry
}

// NewHookCenter creates a new HookCenter.
func NewHookCenter() *HookCenter {
	return &HookCenter{hooks: make(map[string][]*hookEntry)}
}

// Register adds fn for event. Lower priority runs first; equal priorities
// keep registration order. name is used for Unregister.
func (hc *HookCenter) Register(event string, priority int, name string, fn HookFn) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	entries := append(hc.hooks[event], &hookEntry{priority: priority, fn: fn, name: name})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	hc.hooks[event] = entries
}

// Unregister removes all hooks with the given name for the given event.
func (hc *HookCenter) Unregister(event, name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.hooks[event] = without(hc.hooks[event], name)
}

// UnregisterAll removes all hooks registered with the given name across all events.
func (hc *HookCenter) UnregisterAll(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	for event, entries := range hc.hooks {
		hc.hooks[event] = without(entries, name)
	}
}

func without(entries []*hookEntry, name string) []*hookEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.name != name {
			out = append(out, e)
		}
	}
	return out
}

// Trigger runs the hooks for ev.Name in priority order. ErrInterrupt stops
// the chain and is returned; other handler errors do not stop it and are
// returned joined once every handler has run.
func (hc *HookCenter) Trigger(ctx context.Context, ev *Event) error {
	hc.mu.RLock()
	entries := make([]*hookEntry, len(hc.hooks[ev.Name]))
	copy(entries, hc.hooks[ev.Name])
	hc.mu.RUnlock()

	var errs []error
	for _, e := range entries {
		err := e.fn(ctx, ev)
		if errors.Is(err, ErrInterrupt) {
			return err
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of hooks registered for event.
func (hc *HookCenter) Count(event string) int {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return len(hc.hooks[event])
}
