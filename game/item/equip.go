package item

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/charsheet/model"
)

// emptyItemName is the placeholder name some backends use for a vacant slot.
const emptyItemName = "Empty"

// ResolveEquipped returns the item occupying slot. Hand slots only look at
// weapons; other slots search weapons, armors, catalysts, consumables and
// spells in that order and the first match wins. An empty slot is not an error.
func ResolveEquipped(inv model.Inventory, slot model.Slot) (model.Item, bool) {
	if slot.IsHand() {
		return findInSlot(inv.Weapons, slot)
	}
	for _, coll := range inv.Collections() {
		if it, ok := findInSlot(coll, slot); ok {
			return it, true
		}
	}
	return model.Item{}, false
}

func findInSlot(items []model.Item, slot model.Slot) (model.Item, bool) {
	for _, it := range items {
		if it.Slot == slot {
			return it, true
		}
	}
	return model.Item{}, false
}

// EquippedSet maps every equipment slot to its resolved occupant. Vacant
// slots are absent.
func EquippedSet(inv model.Inventory) map[model.Slot]model.Item {
	out := make(map[model.Slot]model.Item, len(model.EquipSlots))
	for _, slot := range model.EquipSlots {
		if it, ok := ResolveEquipped(inv, slot); ok {
			out[slot] = it
		}
	}
	return out
}

// AvailableSlots returns the slots an item of the given type may be equipped to.
func AvailableSlots(t model.ItemType) []model.Slot {
	switch t {
	case model.ItemWeapon, model.ItemCatalyst:
		return []model.Slot{model.SlotRightHand, model.SlotLeftHand}
	case model.ItemArmor:
		return []model.Slot{model.SlotArmor}
	case model.ItemSpell:
		return []model.Slot{model.SlotSpell1, model.SlotSpell2, model.SlotSpell3, model.SlotSpell4}
	default:
		return []model.Slot{model.SlotConsumable}
	}
}

// SlotDisplayName is the label shown on equip buttons.
func SlotDisplayName(slot model.Slot) string {
	switch slot {
	case model.SlotRightHand:
		return "Right Hand (Primary)"
	case model.SlotLeftHand:
		return "Left Hand (Secondary)"
	case model.SlotArmor:
		return "Body Armor"
	case model.SlotConsumable:
		return "Quick Slot"
	case model.SlotSpell1:
		return "Spell Slot 1"
	case model.SlotSpell2:
		return "Spell Slot 2"
	case model.SlotSpell3:
		return "Spell Slot 3"
	case model.SlotSpell4:
		return "Spell Slot 4"
	default:
		return spacedSlot(slot)
	}
}

func spacedSlot(slot model.Slot) string {
	return strings.Replace(string(slot), "_", " ", 1)
}

// EquipOption describes one slot an item can be moved into.
type EquipOption struct {
	Slot        model.Slot  `json:"slot"`
	DisplayName string      `json:"display_name"`
	Current     *model.Item `json:"current,omitempty"`
	WillReplace bool        `json:"will_replace"`
}

// Options lists the equip choices for it against the current inventory.
func Options(inv model.Inventory, it model.Item) []EquipOption {
	slots := AvailableSlots(it.Type)
	out := make([]EquipOption, 0, len(slots))
	for _, slot := range slots {
		opt := EquipOption{Slot: slot, DisplayName: SlotDisplayName(slot)}
		if cur, ok := ResolveEquipped(inv, slot); ok {
			opt.Current = &cur
			opt.WillReplace = cur.Name != emptyItemName
		}
		out = append(out, opt)
	}
	return out
}

// ReplacePrompt returns the confirmation text shown when equipping it into
// slot would displace another item, or "" when no confirmation is needed.
func ReplacePrompt(inv model.Inventory, it model.Item, slot model.Slot) string {
	cur, ok := ResolveEquipped(inv, slot)
	if !ok || cur.Name == emptyItemName || cur.Name == it.Name {
		return ""
	}
	return fmt.Sprintf("Equip %s to %s?\n\nThis will unequip %s.", it.Name, spacedSlot(slot), cur.Name)
}
