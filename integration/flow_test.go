package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/kasuganosora/charsheet/api/sse"
	"github.com/kasuganosora/charsheet/host"
	"github.com/kasuganosora/charsheet/model"
	"github.com/kasuganosora/charsheet/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitEvent = 2 * time.Second

func solaire() *model.CharacterData {
	return &model.CharacterData{
		ID: "sun-knight-01",
		Character: model.Character{
			Name:      "Solaire",
			Level:     42,
			Souls:     1200,
			Hollowing: model.Number(0),
			Stats: map[model.StatCode]model.StatValue{
				model.StatSTR: {Value: 18, Modifier: 4},
				model.StatFTH: {Value: 20, Modifier: 5},
			},
			Resources: map[string]model.Resource{"HP": model.Pair(60, 60)},
		},
		Inventory: model.Inventory{
			Weapons: []model.Item{
				{Type: model.ItemWeapon, Name: "Straight Sword", Slot: model.SlotRightHand, DamageType: "standard", Dice: "1d8"},
				{Type: model.ItemWeapon, Name: "Sunlight Spear Blade", Slot: model.SlotBag, Dice: "1d10"},
			},
			Catalysts: []model.Item{
				{Type: model.ItemCatalyst, Name: "Talisman", Slot: model.SlotLeftHand, CatalystType: "miracle"},
			},
		},
	}
}

func hostCommand(t *testing.T, ev Event) host.Command {
	t.Helper()
	var cmd host.Command
	require.NoError(t, json.Unmarshal([]byte(ev.Data), &cmd), ev.Data)
	return cmd
}

func TestHealth(t *testing.T) {
	ts := NewTestServer(t)
	resp := ts.Do(t, http.MethodGet, "/health", nil, "")
	var body map[string]string
	ReadJSON(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestPopoverSheetLifecycle(t *testing.T) {
	ts := NewTestServer(t)
	char := solaire()
	ts.Backend.Put(char)

	token := ts.Session(t, "player-sun")
	events := ts.Connect(t, token, char.ID)
	menu := host.MenuContext{Items: []host.MenuItem{{ID: char.ID, Layer: host.CharacterLayer}}}
	popoverID := host.PopoverID(char.ID)

	// 1. Context menu opens the popover; the shim receives a stale close, then open.
	resp := ts.Do(t, http.MethodPost, "/api/host/context-menu", menu, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var toggled struct {
		Action    string `json:"action"`
		PopoverID string `json:"popover_id"`
	}
	ReadJSON(t, resp, &toggled)
	assert.Equal(t, "opened", toggled.Action)
	assert.Equal(t, popoverID, toggled.PopoverID)

	assert.Equal(t, host.CmdClosePopover, hostCommand(t, events.NextNamed(t, sse.EventHost, waitEvent)).Type)
	open := hostCommand(t, events.NextNamed(t, sse.EventHost, waitEvent))
	require.Equal(t, host.CmdOpenPopover, open.Type)
	require.NotNil(t, open.Popover)
	assert.Equal(t, "http://sheet.test/character/sun-knight-01", open.Popover.URL)
	assert.Equal(t, host.PopoverWidth, open.Popover.Width)

	// 2. The popover mounts the sheet.
	resp = ts.Do(t, http.MethodGet, "/api/characters/"+char.ID+"/sheet?popover="+popoverID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page view.Page
	ReadJSON(t, resp, &page)
	require.NotNil(t, page.Character)
	assert.Equal(t, "Solaire", page.Character.Name)
	_, mounted := ts.Views.Get(popoverID)
	assert.True(t, mounted)

	// 3. A stat edit is written back and announced.
	resp = ts.Do(t, http.MethodPut, "/api/characters/"+char.ID+"/stats/FTH?popover="+popoverID, map[string]int{"value": 22}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ReadJSON(t, resp, &page)
	assert.Equal(t, 22, page.Character.Stats[2].Value)
	assert.Equal(t, 22, ts.Backend.Character(char.ID).Character.Stats[model.StatFTH].Value)

	var update sse.Update
	require.NoError(t, json.Unmarshal([]byte(events.NextNamed(t, sse.EventCharacterUpdated, waitEvent).Data), &update))
	assert.Equal(t, "update_stat", update.Action)
	assert.Equal(t, char.ID, update.CharacterID)
	assert.False(t, update.Failed)

	// 4. Equipping over an occupied hand asks first.
	equip := map[string]any{"item_name": "Sunlight Spear Blade", "slot": "right_hand"}
	resp = ts.Do(t, http.MethodPost, "/api/characters/"+char.ID+"/equip?popover="+popoverID, equip, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var conflict map[string]any
	ReadJSON(t, resp, &conflict)
	assert.Contains(t, conflict["prompt"], "This will unequip Straight Sword.")

	equip["confirm"] = true
	resp = ts.Do(t, http.MethodPost, "/api/characters/"+char.ID+"/equip?popover="+popoverID, equip, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ReadJSON(t, resp, &page)
	assert.Equal(t, "Sunlight Spear Blade", page.Equipment.Equipped[0].Item.Name)
	require.NoError(t, json.Unmarshal([]byte(events.NextNamed(t, sse.EventCharacterUpdated, waitEvent).Data), &update))
	assert.Equal(t, "equip", update.Action)

	// 5. Both writes are in the audit history.
	ts.Audit.Stop(context.Background())
	resp = ts.Do(t, http.MethodGet, "/api/characters/"+char.ID+"/history", nil, "")
	var history struct {
		History []model.AuditLog `json:"history"`
	}
	ReadJSON(t, resp, &history)
	require.Len(t, history.History, 2)
	assert.Equal(t, "equip", history.History[0].Action)
	assert.Equal(t, "update_stat", history.History[1].Action)
	assert.NotEmpty(t, history.History[1].TraceID)

	// 6. After a reload the shim restores the open popover.
	resp = ts.Do(t, http.MethodPost, "/api/host/restore", nil, token)
	var restored struct {
		Restored []string `json:"restored"`
	}
	ReadJSON(t, resp, &restored)
	assert.Equal(t, []string{popoverID}, restored.Restored)

	// 7. Clicking again closes it and drops the mounted sheet.
	resp = ts.Do(t, http.MethodPost, "/api/host/context-menu", menu, token)
	ReadJSON(t, resp, &toggled)
	assert.Equal(t, "closed", toggled.Action)

	deadline := time.Now().Add(waitEvent)
	for {
		cmd := hostCommand(t, events.NextNamed(t, sse.EventHost, time.Until(deadline)))
		if cmd.Type == host.CmdClosePopover {
			assert.Equal(t, popoverID, cmd.PopoverID)
			break
		}
	}
	_, mounted = ts.Views.Get(popoverID)
	assert.False(t, mounted)

	resp = ts.Do(t, http.MethodGet, "/api/host/popovers", nil, token)
	var listed struct {
		Popovers []string `json:"popovers"`
	}
	ReadJSON(t, resp, &listed)
	assert.Empty(t, listed.Popovers)
}

func TestSessionsAreScopedPerPlayer(t *testing.T) {
	ts := NewTestServer(t)
	ts.Backend.Put(solaire())
	menu := host.MenuContext{Items: []host.MenuItem{{ID: "sun-knight-01", Layer: host.CharacterLayer}}}

	alice := ts.Session(t, "alice")
	bob := ts.Session(t, "bob")

	resp := ts.Do(t, http.MethodPost, "/api/host/context-menu", menu, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var listed struct {
		Popovers []string `json:"popovers"`
	}
	ReadJSON(t, ts.Do(t, http.MethodGet, "/api/host/popovers", nil, alice), &listed)
	assert.Len(t, listed.Popovers, 1)
	ReadJSON(t, ts.Do(t, http.MethodGet, "/api/host/popovers", nil, bob), &listed)
	assert.Empty(t, listed.Popovers)
}

func TestWriteFailureKeepsBackendValue(t *testing.T) {
	ts := NewTestServer(t)
	char := solaire()
	ts.Backend.Put(char)
	ts.Backend.FailWrites(true)

	resp := ts.Do(t, http.MethodPut, "/api/characters/"+char.ID+"/stats/STR", map[string]int{"value": 40}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page view.Page
	ReadJSON(t, resp, &page)
	assert.Equal(t, 18, page.Character.Stats[0].Value)
	assert.Empty(t, page.Error)
}

func TestPanelHTML(t *testing.T) {
	ts := NewTestServer(t)
	ts.Backend.Put(solaire())

	resp := ts.Do(t, http.MethodGet, "/character/sun-knight-01?tab=equipment", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	resp.Body.Close()
}
