package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/charsheet/model"
)

// FakeCharacterAPI is an in-memory stand-in for the external character
// backend, speaking the same routes and payloads.
type FakeCharacterAPI struct {
	URL string

	mu         sync.Mutex
	characters map[string]*model.CharacterData
	failWrites bool
	equipError string
	calls      []string
}

// NewFakeCharacterAPI starts the fake on a local port; it is closed when
// the test ends.
func NewFakeCharacterAPI(t *testing.T) *FakeCharacterAPI {
	t.Helper()
	f := &FakeCharacterAPI{characters: make(map[string]*model.CharacterData)}
	r := gin.New()
	r.GET("/characters/:id", f.get)
	r.PUT("/characters/:id", f.put)
	r.PATCH("/characters/:id/equip", f.equip)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	f.URL = srv.URL
	return f
}

// Put stores d under its ID.
func (f *FakeCharacterAPI) Put(d *model.CharacterData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.characters[d.ID] = d.Clone()
}

// Character returns a copy of the stored character.
func (f *FakeCharacterAPI) Character(id string) *model.CharacterData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.characters[id].Clone()
}

// FailWrites makes PUT answer 500.
func (f *FakeCharacterAPI) FailWrites(fail bool) {
	f.mu.Lock()
	f.failWrites = fail
	f.mu.Unlock()
}

// FailEquip makes PATCH answer 400 with msg as body; "" restores success.
func (f *FakeCharacterAPI) FailEquip(msg string) {
	f.mu.Lock()
	f.equipError = msg
	f.mu.Unlock()
}

// Calls lists "METHOD path" for every request served.
func (f *FakeCharacterAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeCharacterAPI) record(c *gin.Context) {
	f.calls = append(f.calls, c.Request.Method+" "+c.Request.URL.Path)
}

func (f *FakeCharacterAPI) get(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(c)
	d, ok := f.characters[c.Param("id")]
	if !ok {
		c.String(http.StatusNotFound, "no such character")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (f *FakeCharacterAPI) put(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(c)
	d, ok := f.characters[c.Param("id")]
	if !ok || f.failWrites {
		c.String(http.StatusInternalServerError, "write failed")
		return
	}
	var body struct {
		Character struct {
			Stats map[model.StatCode]model.StatValue `json:"stats"`
		} `json:"character"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	d.Character.Stats = body.Character.Stats
	c.JSON(http.StatusOK, d)
}

func (f *FakeCharacterAPI) equip(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(c)
	d, ok := f.characters[c.Param("id")]
	if !ok {
		c.String(http.StatusNotFound, "no such character")
		return
	}
	if f.equipError != "" {
		c.String(http.StatusBadRequest, f.equipError)
		return
	}
	var req struct {
		ItemName string     `json:"item_name"`
		Slot     model.Slot `json:"slot"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	found := false
	for _, coll := range []*[]model.Item{
		&d.Inventory.Weapons, &d.Inventory.Armors, &d.Inventory.Catalysts,
		&d.Inventory.Items, &d.Inventory.Spells,
	} {
		for i := range *coll {
			it := &(*coll)[i]
			switch {
			case it.Name == req.ItemName:
				it.Slot = req.Slot
				found = true
			case it.Slot == req.Slot && req.Slot != model.SlotBag:
				it.Slot = model.SlotBag
			}
		}
	}
	if !found {
		c.String(http.StatusBadRequest, "item not in inventory")
		return
	}
	c.JSON(http.StatusOK, d)
}
