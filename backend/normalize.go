package backend

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/kasuganosora/charsheet/game/item"
	"github.com/kasuganosora/charsheet/model"
	"github.com/tidwall/gjson"
)

// NamedResource is one entry of the backend's free-form resource list.
type NamedResource struct {
	Name    string
	Current int
	Max     int
	Pair    bool
}

// resourceRule maps resource names onto one BasePower member.
type resourceRule struct {
	needles []string
	target  func(*model.BasePower) *model.ResourceValue
}

var basePowerRules = []resourceRule{
	{needles: []string{"hp", "health"}, target: func(b *model.BasePower) *model.ResourceValue { return &b.HP }},
	{needles: []string{"ap", "stamina"}, target: func(b *model.BasePower) *model.ResourceValue { return &b.AP }},
	{needles: []string{"attunement", "focus"}, target: func(b *model.BasePower) *model.ResourceValue { return &b.Attunement }},
}

func (r resourceRule) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, n := range r.needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// MapBasePower assigns hp, ap and attunement from a named resource list.
// Names match case-insensitively by substring and the first match wins.
// A target without a match is {0, 0}.
func MapBasePower(resources []NamedResource) model.BasePower {
	var bp model.BasePower
	for _, rule := range basePowerRules {
		for _, r := range resources {
			if rule.matches(r.Name) {
				*rule.target(&bp) = model.ResourceValue{Value: r.Current, Max: r.Max}
				break
			}
		}
	}
	return bp
}

// basePowerSources picks, per rule, the one resource BuildWritePayload
// replaces with the canonical HP, AP or Attunement entry. The resource map
// has no order, so a name whose value equals the mapped base power is
// preferred and ties go to the first name in sorted order.
func basePowerSources(c model.Character) map[string]bool {
	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]bool, len(basePowerRules))
	for _, rule := range basePowerRules {
		bp := c.BasePower
		target := *rule.target(&bp)
		pick := ""
		for _, name := range names {
			if !rule.matches(name) || out[name] {
				continue
			}
			if pick == "" {
				pick = name
			}
			if r := c.Resources[name]; r.Current == target.Value && r.Maximum == target.Max {
				pick = name
				break
			}
		}
		if pick != "" {
			out[pick] = true
		}
	}
	return out
}

// parseResources accepts the legacy [{name, current, max}] array or a
// name-keyed map of numbers and pairs. Document order is kept.
func parseResources(raw json.RawMessage) []NamedResource {
	if len(raw) == 0 {
		return nil
	}
	res := gjson.ParseBytes(raw)
	var out []NamedResource
	switch {
	case res.IsArray():
		for _, e := range res.Array() {
			name := e.Get("name").String()
			if name == "" {
				continue
			}
			out = append(out, NamedResource{
				Name:    name,
				Current: int(e.Get("current").Int()),
				Max:     int(maxOf(e).Int()),
				Pair:    true,
			})
		}
	case res.IsObject():
		res.ForEach(func(k, v gjson.Result) bool {
			r := NamedResource{Name: k.String()}
			if v.IsObject() {
				r.Current = int(v.Get("current").Int())
				r.Max = int(maxOf(v).Int())
				r.Pair = true
			} else {
				r.Current = int(v.Int())
			}
			out = append(out, r)
			return true
		})
	}
	return out
}

func maxOf(v gjson.Result) gjson.Result {
	if m := v.Get("max"); m.Exists() {
		return m
	}
	return v.Get("maximum")
}

type rawCharacter struct {
	Name      string                             `json:"name"`
	Level     int                                `json:"level"`
	Hollowing model.Resource                     `json:"hollowing"`
	Souls     int                                `json:"souls"`
	Stats     map[model.StatCode]model.StatValue `json:"stats"`
	Resources json.RawMessage                    `json:"resources"`
	BasePower *model.BasePower                   `json:"basePower"`
	Image     string                             `json:"image"`
}

type rawPayload struct {
	Schema    string                `json:"schema"`
	ID        json.RawMessage       `json:"id"`
	Character rawCharacter          `json:"character"`
	Inventory json.RawMessage       `json:"inventory"`
	Equipment map[string]model.Item `json:"equipment"`
	Spells    []model.Item          `json:"spells"`
}

// legacySlots maps old equipment keys onto slots.
var legacySlots = map[string]model.Slot{
	"main_hand": model.SlotRightHand,
	"off_hand":  model.SlotLeftHand,
}

// Normalize decodes a backend character payload into the canonical schema.
// fallbackID is used when the payload carries no id. A payload declaring a
// schema other than model.SchemaVersion is rejected; an undeclared one is
// treated as legacy and mapped.
func Normalize(body []byte, fallbackID string) (*model.CharacterData, error) {
	var raw rawPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw.Schema != "" && raw.Schema != model.SchemaVersion {
		return nil, fmt.Errorf("unsupported schema %q, want %q", raw.Schema, model.SchemaVersion)
	}

	c := raw.Character
	data := &model.CharacterData{
		ID: idString(raw.ID, fallbackID),
		Character: model.Character{
			Name:      c.Name,
			Level:     c.Level,
			Hollowing: c.Hollowing,
			Souls:     c.Souls,
			Stats:     c.Stats,
			Image:     c.Image,
		},
	}

	resources := parseResources(c.Resources)
	if len(resources) > 0 {
		data.Character.BasePower = MapBasePower(resources)
		data.Character.Resources = make(map[string]model.Resource, len(resources))
		for _, r := range resources {
			if r.Pair {
				data.Character.Resources[r.Name] = model.Pair(r.Current, r.Max)
			} else {
				data.Character.Resources[r.Name] = model.Number(r.Current)
			}
		}
	} else if c.BasePower != nil {
		data.Character.BasePower = *c.BasePower
	}

	inv, err := parseInventory(raw.Inventory)
	if err != nil {
		return nil, err
	}
	for _, sp := range raw.Spells {
		if _, dup := inv.Find(sp.Name); !dup {
			inv.Spells = append(inv.Spells, sp)
		}
	}
	mergeEquipment(&inv, raw.Equipment)
	sanitize(&inv)
	data.Inventory = inv
	return data, nil
}

func idString(raw json.RawMessage, fallback string) string {
	v := gjson.ParseBytes(raw)
	switch v.Type {
	case gjson.String:
		if v.Str != "" {
			return v.Str
		}
	case gjson.Number:
		return strconv.FormatInt(v.Int(), 10)
	}
	return fallback
}

// parseInventory accepts the canonical collections object or a legacy flat
// item list, which is sorted into collections by type.
func parseInventory(raw json.RawMessage) (model.Inventory, error) {
	var inv model.Inventory
	if len(raw) == 0 || gjson.ParseBytes(raw).Type == gjson.Null {
		return inv, nil
	}
	if !gjson.ParseBytes(raw).IsArray() {
		err := json.Unmarshal(raw, &inv)
		return inv, err
	}
	var flat []model.Item
	if err := json.Unmarshal(raw, &flat); err != nil {
		return inv, err
	}
	for _, it := range flat {
		addItem(&inv, it)
	}
	return inv, nil
}

// legacyShield is the item type older payloads use for off-hand shields.
const legacyShield model.ItemType = "shield"

// legacyType maps item types older payloads use onto the canonical set.
// Shields are weapons; an untyped item takes its type from the slot it
// occupies.
func legacyType(t model.ItemType, slot model.Slot) model.ItemType {
	switch {
	case t == legacyShield:
		return model.ItemWeapon
	case t == "" && slot.IsHand():
		return model.ItemWeapon
	case t == "" && slot == model.SlotArmor:
		return model.ItemArmor
	}
	return t
}

func addItem(inv *model.Inventory, it model.Item) {
	it.Type = legacyType(it.Type, it.Slot)
	switch it.Type {
	case model.ItemWeapon:
		inv.Weapons = append(inv.Weapons, it)
	case model.ItemArmor:
		inv.Armors = append(inv.Armors, it)
	case model.ItemCatalyst:
		inv.Catalysts = append(inv.Catalysts, it)
	case model.ItemSpell:
		inv.Spells = append(inv.Spells, it)
	default:
		inv.Items = append(inv.Items, it)
	}
}

// mergeEquipment folds a legacy slot->item map into inv. Items already in
// the inventory take the slot, moving collection when the slot settles an
// untyped item; unknown ones are added with it.
func mergeEquipment(inv *model.Inventory, equipment map[string]model.Item) {
	keys := make([]string, 0, len(equipment))
	for k := range equipment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		it := equipment[key]
		if it.Name == "" {
			continue
		}
		slot, ok := legacySlots[key]
		if !ok {
			slot = model.Slot(key)
		}
		if !slot.IsEquip() {
			continue
		}
		if coll, i := locate(inv, it.Name); coll != nil {
			existing := (*coll)[i]
			existing.Slot = slot
			if t := legacyType(existing.Type, slot); t != existing.Type {
				*coll = slices.Delete(*coll, i, i+1)
				addItem(inv, existing)
			} else {
				(*coll)[i] = existing
			}
			continue
		}
		it.Slot = slot
		addItem(inv, it)
	}
}

func locate(inv *model.Inventory, name string) (*[]model.Item, int) {
	for _, coll := range []*[]model.Item{&inv.Weapons, &inv.Armors, &inv.Catalysts, &inv.Items, &inv.Spells} {
		for i := range *coll {
			if (*coll)[i].Name == name {
				return coll, i
			}
		}
	}
	return nil, -1
}

// sanitize drops use counters from item types that do not track them and
// puts slotless items in the bag.
func sanitize(inv *model.Inventory) {
	for _, coll := range inv.Collections() {
		for i := range coll {
			if !coll[i].TracksUses() {
				coll[i].Uses = nil
				coll[i].MaxUses = nil
			}
			if coll[i].Slot == "" {
				coll[i].Slot = model.SlotBag
			}
		}
	}
}

type legacyResource struct {
	Name    string `json:"name"`
	Current int    `json:"current"`
	Max     int    `json:"max"`
}

type legacyCharacter struct {
	Name      string                             `json:"name"`
	Level     int                                `json:"level"`
	Hollowing model.Resource                     `json:"hollowing"`
	Souls     int                                `json:"souls"`
	Stats     map[model.StatCode]model.StatValue `json:"stats"`
	Resources []legacyResource                   `json:"resources"`
	Image     string                             `json:"image,omitempty"`
}

// WritePayload is the combined body sent with PUT /characters/{id}.
type WritePayload struct {
	ID        string                    `json:"id"`
	Character legacyCharacter           `json:"character"`
	Equipment map[model.Slot]model.Item `json:"equipment"`
	Inventory model.Inventory           `json:"inventory"`
	Spells    []model.Item              `json:"spells"`
}

// BuildWritePayload converts d into the backend's combined write shape.
// Equipment is derived by resolving every non-bag slot.
func BuildWritePayload(d *model.CharacterData) WritePayload {
	c := d.Character
	bp := c.BasePower
	resources := []legacyResource{
		{Name: "HP", Current: bp.HP.Value, Max: bp.HP.Max},
		{Name: "AP", Current: bp.AP.Value, Max: bp.AP.Max},
		{Name: "Attunement", Current: bp.Attunement.Value, Max: bp.Attunement.Max},
	}
	mapped := basePowerSources(c)
	extra := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		if !mapped[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		r := c.Resources[name]
		resources = append(resources, legacyResource{Name: name, Current: r.Current, Max: r.Maximum})
	}

	equipment := item.EquippedSet(d.Inventory)
	return WritePayload{
		ID: d.ID,
		Character: legacyCharacter{
			Name:      c.Name,
			Level:     c.Level,
			Hollowing: c.Hollowing,
			Souls:     c.Souls,
			Stats:     c.Stats,
			Resources: resources,
			Image:     c.Image,
		},
		Equipment: equipment,
		Inventory: d.Inventory,
		Spells:    d.Inventory.Spells,
	}
}
