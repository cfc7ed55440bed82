package view

import (
	"context"
	"sync"
	"time"

	"github.com/kasuganosora/charsheet/host"
	"github.com/kasuganosora/charsheet/plugin/hook"
	"github.com/kasuganosora/charsheet/scheduler"
	"go.uber.org/zap"
)

const pruneTask = "view.prune"

// Manager keeps one Sheet per mounted popover.
type Manager struct {
	backend Backend
	hooks   *hook.HookCenter
	logger  *zap.Logger
	idleTTL time.Duration

	mu     sync.Mutex
	sheets map[string]*Sheet
}

func NewManager(backend Backend, hooks *hook.HookCenter, idleTTL time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backend: backend,
		hooks:   hooks,
		logger:  logger,
		idleTTL: idleTTL,
		sheets:  make(map[string]*Sheet),
	}
}

// Mount returns the sheet for popoverID, creating and loading it when the
// popover is new or now shows a different character. An empty popoverID
// uses the character's own popover.
func (m *Manager) Mount(ctx context.Context, popoverID, characterID string) (*Sheet, State, error) {
	if popoverID == "" {
		popoverID = host.PopoverID(characterID)
	}
	m.mu.Lock()
	s, ok := m.sheets[popoverID]
	if ok && s.CharacterID() == characterID {
		m.mu.Unlock()
		s.touch()
		return s, s.State(), nil
	}
	s = NewSheet(characterID, m.backend, m.hooks, m.logger)
	m.sheets[popoverID] = s
	m.mu.Unlock()

	st, err := s.Load(ctx)
	return s, st, err
}

// Get returns the mounted sheet for popoverID.
func (m *Manager) Get(popoverID string) (*Sheet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sheets[popoverID]
	if ok {
		s.touch()
	}
	return s, ok
}

// Unmount drops the sheet for popoverID and reports whether one existed.
func (m *Manager) Unmount(popoverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sheets[popoverID]
	delete(m.sheets, popoverID)
	return ok
}

// Len returns the number of mounted sheets.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sheets)
}

// Prune unmounts sheets unused since before now-idleTTL.
func (m *Manager) Prune(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.idleTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sheets {
		if s.idleSince().Before(cutoff) {
			delete(m.sheets, id)
			n++
		}
	}
	return n
}

// Register unmounts a popover's sheet when the host closes it.
func (m *Manager) Register(hc *hook.HookCenter) {
	hc.Register(hook.OnPopoverClose, 0, "view", func(_ context.Context, ev *hook.Event) error {
		m.Unmount(ev.PopoverID)
		return nil
	})
}

// Schedule prunes idle sheets every interval.
func (m *Manager) Schedule(s *scheduler.Scheduler, interval time.Duration) {
	s.AddTicker(pruneTask, interval, func(context.Context) {
		if n := m.Prune(time.Now()); n > 0 {
			m.logger.Debug("pruned idle sheets", zap.Int("count", n))
		}
	})
}
