package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kasuganosora/charsheet/model"
	"github.com/kasuganosora/charsheet/plugin/hook"
	"github.com/kasuganosora/charsheet/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLog_EnqueuedAndFlushed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	svc.Log(Entry{
		TraceID:     "trace-123",
		CharacterID: "7",
		PlayerID:    "player-1",
		CharName:    "Solaire",
		Action:      "update_stat",
		Request:     map[string]any{"code": "STR", "value": 17},
		Response:    map[string]bool{"ok": true},
		IP:          "127.0.0.1",
		DurationMs:  42,
	})

	// Stop flushes remaining entries
	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-123", logs[0].TraceID)
	assert.Equal(t, "Solaire", logs[0].CharName)
	assert.Equal(t, "update_stat", logs[0].Action)
	assert.Equal(t, "127.0.0.1", logs[0].IP)
	assert.Equal(t, 42, logs[0].DurationMs)
	assert.JSONEq(t, `{"code":"STR","value":17}`, string(logs[0].Request))
}

func TestLog_BatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	for i := 0; i < batchSize+5; i++ {
		svc.Log(Entry{Action: "batch", CharacterID: "1"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.Equal(t, int64(batchSize+5), count)
}

func TestStop_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	svc.Stop(context.Background())
	assert.NotPanics(t, func() { svc.Stop(context.Background()) })
}

func TestLog_DropsWhenFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	assert.NotPanics(t, func() {
		for i := 0; i < queueSize+10; i++ {
			svc.Log(Entry{Action: "flood"})
		}
	})
	svc.Stop(context.Background())
}

func TestRegister_RecordsWriteEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	hc := hook.NewHookCenter()
	svc.Register(hc)

	before := &model.CharacterData{ID: "7", Character: model.Character{Name: "Solaire"}}
	ctx := context.Background()
	require.NoError(t, hc.Trigger(ctx, &hook.Event{
		Name: hook.AfterStatUpdate, TraceID: "t1", CharacterID: "7", PlayerID: "p1",
		StatCode: model.StatSTR, StatValue: 18, Before: before, After: before,
		Duration: 15 * time.Millisecond,
	}))
	require.NoError(t, hc.Trigger(ctx, &hook.Event{
		Name: hook.AfterEquip, CharacterID: "7", ItemName: "Dagger", Slot: model.SlotLeftHand,
		Before: before, Err: errors.New("Failed to equip item: nope"),
	}))
	svc.Stop(ctx)

	logs, err := svc.Recent(ctx, "7", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "equip", logs[0].Action)
	assert.Equal(t, "Failed to equip item: nope", logs[0].Error)
	assert.Equal(t, "update_stat", logs[1].Action)
	assert.Equal(t, "Solaire", logs[1].CharName)
	assert.Equal(t, 15, logs[1].DurationMs)
	assert.JSONEq(t, `{"code":"STR","value":18}`, string(logs[1].Request))
}

func TestRecent_OtherCharactersExcluded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	svc.Log(Entry{Action: "a", CharacterID: "1"})
	svc.Log(Entry{Action: "b", CharacterID: "2"})
	svc.Stop(context.Background())

	logs, err := svc.Recent(context.Background(), "2", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "b", logs[0].Action)
}
