package view

import (
	"strconv"

	"github.com/kasuganosora/charsheet/game/item"
	"github.com/kasuganosora/charsheet/model"
	"github.com/kasuganosora/charsheet/render"
)

// DefaultCharacterName is shown for a character without a name.
const DefaultCharacterName = "Unknown Character"

// Tabs.
const (
	TabCharacter = "character"
	TabEquipment = "equipment"
)

const iconBase = "https://darksouls3.wdfiles.com/local--files/image-sets:menu-icons/"

// RowConfig is a label and icon for one row of the character tab.
type RowConfig struct {
	Key   string
	Label string
	Icon  string
}

// StatConfigs are the stat rows in display order.
var StatConfigs = []RowConfig{
	{string(model.StatSTR), "Strength", iconBase + "strength.png"},
	{string(model.StatDEX), "Dexterity", iconBase + "dexterity.png"},
	{string(model.StatFTH), "Faith", iconBase + "faith.png"},
	{string(model.StatINT), "Intelligence", iconBase + "intelligence.png"},
	{string(model.StatVIT), "Vigor", iconBase + "vigor.png"},
	{string(model.StatEND), "Endurance", iconBase + "endurance.png"},
}

// ResourceConfigs are the resource rows in display order.
var ResourceConfigs = []RowConfig{
	{"level", "Level", iconBase + "level.png"},
	{"souls", "Souls", iconBase + "souls.png"},
	{"hollowing", "Hollowing", iconBase + "hollowing.png"},
	{"HP", "Health Points", iconBase + "hp.png"},
	{"AP", "Action Points", iconBase + "stamina.png"},
	{"SpellSlots", "Spell Slots", iconBase + "fp.png"},
}

type StatRow struct {
	Code         model.StatCode `json:"code"`
	Label        string         `json:"label"`
	Icon         string         `json:"icon"`
	Value        int            `json:"value"`
	Modifier     int            `json:"modifier"`
	ModifierText string         `json:"modifier_text"`
}

type ResourceRow struct {
	Key     string         `json:"key"`
	Label   string         `json:"label"`
	Icon    string         `json:"icon"`
	Value   model.Resource `json:"value"`
	Display string         `json:"display"`
}

type CharacterPanel struct {
	Name      string        `json:"name"`
	Image     string        `json:"image,omitempty"`
	Portrait  string        `json:"portrait,omitempty"`
	Stats     []StatRow     `json:"stats"`
	Resources []ResourceRow `json:"resources"`
	Details   *render.Node  `json:"details"`
}

type EquippedSlot struct {
	Slot        model.Slot    `json:"slot"`
	DisplayName string        `json:"display_name"`
	Item        *model.Item   `json:"item,omitempty"`
	Tooltip     *item.Tooltip `json:"tooltip,omitempty"`
}

// GridCell is one cell of the unified inventory grid. Empty cells have no Item.
type GridCell struct {
	Index    int                `json:"index"`
	Item     *model.Item        `json:"item,omitempty"`
	Icon     string             `json:"icon,omitempty"`
	Equipped bool               `json:"equipped"`
	Tooltip  *item.Tooltip      `json:"tooltip,omitempty"`
	Options  []item.EquipOption `json:"options,omitempty"`
}

type EquipmentPanel struct {
	Equipped []EquippedSlot `json:"equipped"`
	Grid     []GridCell     `json:"grid"`
}

// Page is everything a panel needs to draw a sheet.
type Page struct {
	Schema      string          `json:"schema"`
	CharacterID string          `json:"character_id"`
	Loading     bool            `json:"loading"`
	Error       string          `json:"error,omitempty"`
	Character   *CharacterPanel `json:"character,omitempty"`
	Equipment   *EquipmentPanel `json:"equipment,omitempty"`
}

// Compose builds the page for a sheet state. Without data only the loading
// flag and error are set.
func Compose(st State) Page {
	p := Page{Schema: model.SchemaVersion, CharacterID: st.CharacterID, Loading: st.Loading, Error: st.Err}
	if st.Data == nil {
		return p
	}
	p.Character = composeCharacter(st.Data.Character)
	p.Equipment = composeEquipment(st.Data.Inventory)
	return p
}

func composeCharacter(c model.Character) *CharacterPanel {
	name := c.Name
	if name == "" {
		name = DefaultCharacterName
	}
	panel := &CharacterPanel{Name: name, Image: c.Image, Details: render.Render(c, name)}
	if c.Image == "" {
		panel.Portrait = render.PortraitPlaceholder
	}
	for _, cfg := range StatConfigs {
		code := model.StatCode(cfg.Key)
		sv := c.Stats[code]
		panel.Stats = append(panel.Stats, StatRow{
			Code:         code,
			Label:        cfg.Label,
			Icon:         cfg.Icon,
			Value:        sv.Value,
			Modifier:     sv.Modifier,
			ModifierText: render.SignedModifier(float64(sv.Modifier)),
		})
	}
	for _, cfg := range ResourceConfigs {
		r := ResourceFor(c, cfg.Key)
		panel.Resources = append(panel.Resources, ResourceRow{
			Key:     cfg.Key,
			Label:   cfg.Label,
			Icon:    cfg.Icon,
			Value:   r,
			Display: ResourceDisplay(r),
		})
	}
	return panel
}

// ResourceFor returns the value of a resource row. Named resources win;
// level, souls and hollowing fall back to the character fields and the
// base-power rows to the normalized base power.
func ResourceFor(c model.Character, key string) model.Resource {
	if key == "hollowing" {
		for _, k := range []string{"Hollowing", "hollowing"} {
			if r, ok := c.Resources[k]; ok {
				return r
			}
		}
		return c.Hollowing
	}
	if r, ok := c.Resources[key]; ok {
		return r
	}
	switch key {
	case "level":
		return model.Number(c.Level)
	case "souls":
		return model.Number(c.Souls)
	case "HP":
		return basePowerResource(c.BasePower.HP)
	case "AP":
		return basePowerResource(c.BasePower.AP)
	case "SpellSlots":
		return basePowerResource(c.BasePower.Attunement)
	}
	return model.Resource{}
}

func basePowerResource(v model.ResourceValue) model.Resource {
	if v.Max == 0 {
		return model.Number(v.Value)
	}
	return model.Pair(v.Value, v.Max)
}

// ResourceDisplay renders "c / m" for pairs and the bare number otherwise.
// A zero bare number shows as "0".
func ResourceDisplay(r model.Resource) string {
	if r.Pair {
		return strconv.Itoa(r.Current) + " / " + strconv.Itoa(r.Maximum)
	}
	return strconv.Itoa(r.Current)
}

func composeEquipment(inv model.Inventory) *EquipmentPanel {
	panel := &EquipmentPanel{}
	for _, slot := range model.EquipSlots {
		es := EquippedSlot{Slot: slot, DisplayName: item.SlotDisplayName(slot)}
		if it, ok := item.ResolveEquipped(inv, slot); ok {
			tt := item.Describe(it)
			es.Item = &it
			es.Tooltip = &tt
		}
		panel.Equipped = append(panel.Equipped, es)
	}
	for i, it := range item.CollectUnified(inv) {
		cell := GridCell{Index: i}
		if it != nil {
			tt := item.Describe(*it)
			cell.Item = it
			cell.Icon = item.TypeIcon(it.Type)
			cell.Equipped = it.Equipped()
			cell.Tooltip = &tt
			cell.Options = item.Options(inv, *it)
		}
		panel.Grid = append(panel.Grid, cell)
	}
	return panel
}
