// Package view holds the per-popover sheet controllers and composes their
// state into the character and equipment panels.
package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kasuganosora/charsheet/apperr"
	"github.com/kasuganosora/charsheet/game/item"
	"github.com/kasuganosora/charsheet/middleware"
	"github.com/kasuganosora/charsheet/model"
	"github.com/kasuganosora/charsheet/plugin/hook"
	"go.uber.org/zap"
)

// Error texts shown in place of the sheet.
const (
	ErrTextNotFound   = "Character not found"
	ErrTextLoadFailed = "Failed to load character data"
)

// Backend is the character API a sheet reads from and writes to.
type Backend interface {
	FetchCharacter(ctx context.Context, id string) (*model.CharacterData, error)
	UpdateCharacterStat(ctx context.Context, id string, data *model.CharacterData) (*model.CharacterData, error)
	EquipItem(ctx context.Context, id, itemName string, slot model.Slot) (*model.CharacterData, error)
}

// State is a snapshot of a sheet.
type State struct {
	CharacterID string
	Data        *model.CharacterData
	Loading     bool
	Err         string
	Seq         uint64
}

// Sheet owns the data shown by one mounted panel. Every fetch carries a
// sequence token and its result is dropped if a newer fetch or local edit
// happened meanwhile.
type Sheet struct {
	id      string
	backend Backend
	hooks   *hook.HookCenter
	logger  *zap.Logger

	mu       sync.Mutex
	data     *model.CharacterData
	loading  bool
	errText  string
	seq      uint64
	lastUsed time.Time
}

func NewSheet(characterID string, backend Backend, hooks *hook.HookCenter, logger *zap.Logger) *Sheet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sheet{
		id:       characterID,
		backend:  backend,
		hooks:    hooks,
		logger:   logger.With(zap.String("character_id", characterID)),
		lastUsed: time.Now(),
	}
}

// CharacterID returns the id of the character shown.
func (s *Sheet) CharacterID() string { return s.id }

// State returns a copy of the current state. Data is shared and must not be
// modified.
func (s *Sheet) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Sheet) stateLocked() State {
	return State{CharacterID: s.id, Data: s.data, Loading: s.loading, Err: s.errText, Seq: s.seq}
}

func (s *Sheet) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Sheet) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Load fetches the character and replaces the sheet's data. A failed fetch
// keeps the previous data and sets the error text. Load itself only fails
// when ctx is done.
func (s *Sheet) Load(ctx context.Context) (State, error) {
	s.mu.Lock()
	s.seq++
	token := s.seq
	s.loading = true
	s.lastUsed = time.Now()
	s.mu.Unlock()

	data, err := s.backend.FetchCharacter(ctx, s.id)

	s.mu.Lock()
	if token != s.seq {
		// superseded; the newer operation owns the state
		st := s.stateLocked()
		s.mu.Unlock()
		s.logger.Debug("dropping stale load", zap.Uint64("seq", token), zap.Uint64("current", st.Seq))
		return st, ctx.Err()
	}
	s.loading = false
	switch {
	case err == nil:
		s.data = data
		s.errText = ""
	case apperr.IsNotFound(err):
		s.errText = ErrTextNotFound
	default:
		s.errText = ErrTextLoadFailed
	}
	st := s.stateLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("load character failed", zap.Error(err))
		return st, ctx.Err()
	}
	s.fire(ctx, &hook.Event{Name: hook.AfterLoad, After: data})
	return st, nil
}

// UpdateStat sets one stat. The change is applied locally first, then
// written, then the sheet reloads whether or not the write succeeded. A
// failed write is logged and not returned.
func (s *Sheet) UpdateStat(ctx context.Context, code model.StatCode, value int) (State, error) {
	if !code.Valid() {
		return s.State(), apperr.InvalidArgumentf("unknown stat %q", code)
	}

	s.mu.Lock()
	if s.data == nil {
		s.mu.Unlock()
		return s.State(), apperr.New(apperr.CodeConflict, "character not loaded")
	}
	before := s.data
	s.mu.Unlock()

	ev := &hook.Event{Name: hook.BeforeStatUpdate, StatCode: code, StatValue: value, Before: before, Started: time.Now()}
	if err := s.fire(ctx, ev); err != nil {
		return s.State(), apperr.WrapWithCode(err, apperr.CodeConflict, "stat update rejected")
	}

	s.mu.Lock()
	optimistic := s.data.Clone()
	if optimistic.Character.Stats == nil {
		optimistic.Character.Stats = make(map[model.StatCode]model.StatValue)
	}
	sv := optimistic.Character.Stats[code]
	sv.Value = value
	optimistic.Character.Stats[code] = sv
	s.data = optimistic
	s.seq++
	s.lastUsed = time.Now()
	s.mu.Unlock()

	saved, err := s.backend.UpdateCharacterStat(ctx, s.id, optimistic)
	if err != nil {
		s.logger.Warn("stat write failed", zap.String("stat", string(code)), zap.Error(err))
	}

	ev.Name = hook.AfterStatUpdate
	ev.After = saved
	ev.Err = err
	ev.Duration = time.Since(ev.Started)
	s.fire(ctx, ev)

	return s.Load(ctx)
}

// Equip moves the named inventory item into slot. Nothing changes locally
// until the backend accepts the move. Displacing a different item needs
// confirm; without it a conflict error carrying the prompt is returned.
func (s *Sheet) Equip(ctx context.Context, itemName string, slot model.Slot, confirm bool) (State, error) {
	s.mu.Lock()
	data := s.data
	s.lastUsed = time.Now()
	s.mu.Unlock()
	if data == nil {
		return s.State(), apperr.New(apperr.CodeConflict, "character not loaded")
	}

	it, ok := data.Inventory.Find(itemName)
	if !ok {
		return s.State(), apperr.NotFound("item not found: " + itemName)
	}
	if !canEquip(it, slot) {
		return s.State(), apperr.InvalidArgumentf("%s cannot be equipped to %s", itemName, slot)
	}
	if !confirm && slot.IsEquip() {
		if prompt := item.ReplacePrompt(data.Inventory, it, slot); prompt != "" {
			return s.State(), apperr.Conflict(prompt).WithMeta("prompt", prompt)
		}
	}

	ev := &hook.Event{Name: hook.BeforeEquip, ItemName: itemName, Slot: slot, Before: data, Started: time.Now()}
	if err := s.fire(ctx, ev); err != nil {
		return s.State(), apperr.WrapWithCode(err, apperr.CodeConflict, "equip rejected")
	}

	saved, err := s.backend.EquipItem(ctx, s.id, itemName, slot)
	ev.Name = hook.AfterEquip
	ev.After = saved
	ev.Err = err
	ev.Duration = time.Since(ev.Started)
	s.fire(ctx, ev)
	if err != nil {
		s.logger.Error("equip failed",
			zap.String("item", itemName), zap.String("slot", string(slot)), zap.Error(err))
		return s.State(), err
	}
	return s.Load(ctx)
}

func canEquip(it model.Item, slot model.Slot) bool {
	if slot == model.SlotBag {
		return true
	}
	for _, s := range item.AvailableSlots(it.Type) {
		if s == slot {
			return true
		}
	}
	return false
}

// fire runs the hooks for ev. Only an interrupt is returned; other hook
// errors are logged.
func (s *Sheet) fire(ctx context.Context, ev *hook.Event) error {
	if s.hooks == nil {
		return nil
	}
	ev.CharacterID = s.id
	if ev.TraceID == "" {
		ev.TraceID = middleware.TraceIDFrom(ctx)
	}
	if ev.PlayerID == "" {
		ev.PlayerID = PlayerIDFrom(ctx)
	}
	err := s.hooks.Trigger(ctx, ev)
	if err == nil {
		return nil
	}
	if errors.Is(err, hook.ErrInterrupt) {
		return err
	}
	s.logger.Warn("hook failed", zap.String("event", ev.Name), zap.Error(err))
	return nil
}

type playerCtxKey struct{}

// WithPlayerID returns ctx carrying the acting player, recorded on hook events.
func WithPlayerID(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, playerCtxKey{}, playerID)
}

// PlayerIDFrom returns the player stored by WithPlayerID, or "".
func PlayerIDFrom(ctx context.Context) string {
	s, _ := ctx.Value(playerCtxKey{}).(string)
	return s
}
