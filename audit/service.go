// Package audit records every sheet write in the database. Entries are
// queued and written in batches off the request path.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/charsheet/model"
	"github.com/kasuganosora/charsheet/plugin/hook"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Entry holds one audit event to be logged.
type Entry struct {
	TraceID     string
	CharacterID string
	PlayerID    string
	CharName    string
	Action      string
	Request     any
	Response    any
	Error       string
	IP          string
	DurationMs  int
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.AuditLog
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.AuditLog, queueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an audit entry. When the queue is full the entry is dropped.
func (svc *Service) Log(entry Entry) {
	record := &model.AuditLog{
		TraceID:     entry.TraceID,
		CharacterID: entry.CharacterID,
		PlayerID:    entry.PlayerID,
		CharName:    entry.CharName,
		Action:      entry.Action,
		Request:     toJSON(entry.Request),
		Response:    toJSON(entry.Response),
		Error:       entry.Error,
		IP:          entry.IP,
		DurationMs:  entry.DurationMs,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action),
			zap.String("character_id", entry.CharacterID))
	}
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// Register subscribes the service to the write events of hc.
func (svc *Service) Register(hc *hook.HookCenter) {
	for _, ev := range []string{hook.AfterStatUpdate, hook.AfterEquip} {
		hc.Register(ev, 0, "audit", svc.onWrite)
	}
}

func (svc *Service) onWrite(_ context.Context, ev *hook.Event) error {
	entry := Entry{
		TraceID:     ev.TraceID,
		CharacterID: ev.CharacterID,
		PlayerID:    ev.PlayerID,
		DurationMs:  int(ev.Duration / time.Millisecond),
	}
	if ev.Before != nil {
		entry.CharName = ev.Before.Character.Name
	}
	switch ev.Name {
	case hook.AfterStatUpdate:
		entry.Action = "update_stat"
		entry.Request = map[string]any{"code": ev.StatCode, "value": ev.StatValue}
	case hook.AfterEquip:
		entry.Action = "equip"
		entry.Request = map[string]any{"item_name": ev.ItemName, "slot": ev.Slot}
	}
	if ev.After != nil {
		entry.Response = ev.After.Character
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}
	svc.Log(entry)
	return nil
}

// Recent returns the newest entries for a character, newest first.
func (svc *Service) Recent(ctx context.Context, characterID string, limit int) ([]model.AuditLog, error) {
	if limit <= 0 || limit > batchSize {
		limit = batchSize
	}
	var logs []model.AuditLog
	err := svc.db.WithContext(ctx).
		Where("character_id = ?", characterID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.once.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Error(err), zap.Int("entries", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
