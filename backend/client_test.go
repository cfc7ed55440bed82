package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kasuganosora/charsheet/apperr"
	"github.com/kasuganosora/charsheet/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyBody = `{
	"id": 7,
	"character": {
		"name": "Solaire",
		"level": 12,
		"hollowing": 2,
		"souls": 1500,
		"stats": {"STR": {"value": 16, "modifier": 3}, "DEX": {"value": 12, "modifier": 1}},
		"resources": [
			{"name": "HP", "current": 10, "max": 30},
			{"name": "Stamina", "current": 5, "max": 20}
		]
	},
	"inventory": {
		"weapons": [
			{"type": "weapon", "name": "Straight Sword", "slot": "right_hand", "dice": "1d8", "uses": 3},
			{"type": "weapon", "name": "Dagger", "slot": "bag"}
		],
		"spells": [{"type": "spell", "name": "Lightning Spear", "slot": "spell_1", "uses": 2, "max_uses": 4}]
	}
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, nil)
}

func TestFetchCharacter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/characters/7", r.URL.Path)
		assert.Equal(t, model.SchemaVersion, r.Header.Get(SchemaHeader))
		_, _ = io.WriteString(w, legacyBody)
	})

	data, err := c.FetchCharacter(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "7", data.ID)
	assert.Equal(t, "Solaire", data.Character.Name)
	assert.Equal(t, model.Number(2), data.Character.Hollowing)
	assert.Equal(t, model.StatValue{Value: 16, Modifier: 3}, data.Character.Stats[model.StatSTR])
	assert.Equal(t, model.BasePower{
		HP:         model.ResourceValue{Value: 10, Max: 30},
		AP:         model.ResourceValue{Value: 5, Max: 20},
		Attunement: model.ResourceValue{Value: 0, Max: 0},
	}, data.Character.BasePower)
	assert.Equal(t, model.Pair(5, 20), data.Character.Resources["Stamina"])

	require.Len(t, data.Inventory.Weapons, 2)
	assert.Nil(t, data.Inventory.Weapons[0].Uses, "weapons do not track uses")
	require.Len(t, data.Inventory.Spells, 1)
	require.NotNil(t, data.Inventory.Spells[0].Uses)
	assert.Equal(t, 2, *data.Inventory.Spells[0].Uses)
}

func TestFetchCharacter_NotFoundMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	data, err := c.FetchCharacter(context.Background(), "404")
	require.Error(t, err)
	assert.Nil(t, data)
	assert.Equal(t, "Character not found", err.Error())
	assert.True(t, apperr.IsNotFound(err))
}

func TestFetchCharacter_AnyNonSuccessIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.FetchCharacter(context.Background(), "1")
	assert.EqualError(t, err, MsgNotFound)
}

func TestFetchCharacter_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, time.Second, nil)

	_, err := c.FetchCharacter(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
}

func TestFetchCharacter_RejectsOtherSchema(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"schema": "charsheet/v2", "id": 7, "character": {"name": "Solaire"}}`)
	})

	_, err := c.FetchCharacter(context.Background(), "7")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), `unsupported schema "charsheet/v2"`)
}

func TestUpdateCharacterStat_ServerErrorReturnsOriginal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	original, err := Normalize([]byte(legacyBody), "7")
	require.NoError(t, err)
	snapshot := original.Clone()

	got, err := c.UpdateCharacterStat(context.Background(), "7", original)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)
}

func TestUpdateCharacterStat_SendsLegacyPayload(t *testing.T) {
	var sent map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		_, _ = io.WriteString(w, legacyBody)
	})
	data, err := Normalize([]byte(legacyBody), "7")
	require.NoError(t, err)
	data.Character.Stats[model.StatSTR] = model.StatValue{Value: 17, Modifier: 3}

	got, err := c.UpdateCharacterStat(context.Background(), "7", data)
	require.NoError(t, err)
	assert.Equal(t, 16, got.Character.Stats[model.StatSTR].Value, "server response wins")

	character := sent["character"].(map[string]any)
	resources := character["resources"].([]any)
	require.GreaterOrEqual(t, len(resources), 3)
	assert.Equal(t, "HP", resources[0].(map[string]any)["name"])
	assert.Equal(t, float64(17), character["stats"].(map[string]any)["STR"].(map[string]any)["value"])

	equipment := sent["equipment"].(map[string]any)
	assert.Equal(t, "Straight Sword", equipment["right_hand"].(map[string]any)["name"])
	assert.Equal(t, "Lightning Spear", equipment["spell_1"].(map[string]any)["name"])
	assert.NotContains(t, equipment, "bag")
}

func TestUpdateCharacterStat_TransportErrorKeepsOriginal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, time.Second, nil)
	original := &model.CharacterData{ID: "1", Character: model.Character{Name: "Oscar"}}

	got, err := c.UpdateCharacterStat(context.Background(), "1", original)
	require.Error(t, err)
	assert.Same(t, original, got)
}

func TestEquipItem(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/characters/7/equip", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{"item_name": "Dagger", "slot": "left_hand"}, req)
		_, _ = io.WriteString(w, legacyBody)
	})

	data, err := c.EquipItem(context.Background(), "7", "Dagger", model.SlotLeftHand)
	require.NoError(t, err)
	assert.Equal(t, "Solaire", data.Character.Name)
}

func TestEquipItem_FailureCarriesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "slot occupied")
	})

	_, err := c.EquipItem(context.Background(), "7", "Dagger", model.SlotLeftHand)
	require.Error(t, err)
	assert.Equal(t, "Failed to equip item: slot occupied", err.Error())
	assert.True(t, apperr.IsEquipFailed(err))
}
