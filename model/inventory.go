package model

// ItemType tags the Item union.
type ItemType string

const (
	ItemWeapon     ItemType = "weapon"
	ItemArmor      ItemType = "armor"
	ItemSpell      ItemType = "spell"
	ItemCatalyst   ItemType = "catalyst"
	ItemConsumable ItemType = "consumable"
)

// Slot is an equipment slot, or SlotBag for unequipped items.
type Slot string

const (
	SlotArmor      Slot = "armor"
	SlotRightHand  Slot = "right_hand"
	SlotLeftHand   Slot = "left_hand"
	SlotConsumable Slot = "consumable"
	SlotSpell1     Slot = "spell_1"
	SlotSpell2     Slot = "spell_2"
	SlotSpell3     Slot = "spell_3"
	SlotSpell4     Slot = "spell_4"
	SlotBag        Slot = "bag"
)

// EquipSlots lists every non-bag slot in display order.
var EquipSlots = []Slot{
	SlotRightHand, SlotLeftHand, SlotArmor, SlotConsumable,
	SlotSpell1, SlotSpell2, SlotSpell3, SlotSpell4,
}

// IsEquip reports whether s is one of the fixed equipment slots.
func (s Slot) IsEquip() bool {
	for _, e := range EquipSlots {
		if e == s {
			return true
		}
	}
	return false
}

// Valid reports whether s is an equipment slot or the bag.
func (s Slot) Valid() bool { return s == SlotBag || s.IsEquip() }

// IsHand reports whether s is one of the two weapon hands.
func (s Slot) IsHand() bool { return s == SlotRightHand || s == SlotLeftHand }

// Item is a weapon, armor, spell, catalyst or consumable. Fields outside the
// item's type are left zero.
type Item struct {
	Type  ItemType `json:"type"`
	Name  string   `json:"name"`
	Image string   `json:"image,omitempty"`
	Slot  Slot     `json:"slot"`

	// weapon
	DamageType string `json:"damageType,omitempty"`
	TwoHanded  *bool  `json:"twoHanded,omitempty"`

	// weapon, spell
	Dice        string   `json:"dice,omitempty"`
	ScalingStat StatCode `json:"scalingStat,omitempty"`

	// weapon, armor, catalyst
	FlatBonus *int `json:"flatBonus,omitempty"`

	// armor
	ArmorType string `json:"armorType,omitempty"`

	// spell
	SpellType        string `json:"spellType,omitempty"`
	EffectType       string `json:"effectType,omitempty"`
	RequiresCatalyst string `json:"requiresCatalyst,omitempty"`
	Cost             *int   `json:"cost,omitempty"`
	Duration         *int   `json:"duration,omitempty"`

	// catalyst
	CatalystType string `json:"catalystType,omitempty"`

	// consumable
	ConsumableType string `json:"consumableType,omitempty"`
	Effect         string `json:"effect,omitempty"`

	// spell, consumable
	Uses    *int `json:"uses,omitempty"`
	MaxUses *int `json:"max_uses,omitempty"`
}

// TracksUses reports whether Uses/MaxUses are meaningful for the item type.
func (it Item) TracksUses() bool {
	return it.Type == ItemSpell || it.Type == ItemConsumable
}

// Equipped reports whether the item occupies an equipment slot.
func (it Item) Equipped() bool { return it.Slot.IsEquip() }

func (it Item) clone() Item {
	out := it
	out.TwoHanded = clonePtr(it.TwoHanded)
	out.FlatBonus = clonePtr(it.FlatBonus)
	out.Cost = clonePtr(it.Cost)
	out.Duration = clonePtr(it.Duration)
	out.Uses = clonePtr(it.Uses)
	out.MaxUses = clonePtr(it.MaxUses)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Inventory holds the five item collections in their fixed order.
type Inventory struct {
	Weapons   []Item `json:"weapons"`
	Armors    []Item `json:"armors"`
	Catalysts []Item `json:"catalysts"`
	Items     []Item `json:"items"`
	Spells    []Item `json:"spells"`
}

// Collections returns the five collections as weapons, armors, catalysts,
// consumables, spells.
func (inv Inventory) Collections() [][]Item {
	return [][]Item{inv.Weapons, inv.Armors, inv.Catalysts, inv.Items, inv.Spells}
}

// Find returns the first item with the given name across all collections.
func (inv Inventory) Find(name string) (Item, bool) {
	for _, coll := range inv.Collections() {
		for _, it := range coll {
			if it.Name == name {
				return it, true
			}
		}
	}
	return Item{}, false
}

// Clone returns a deep copy of inv. Nil collections stay nil.
func (inv Inventory) Clone() Inventory {
	return Inventory{
		Weapons:   cloneItems(inv.Weapons),
		Armors:    cloneItems(inv.Armors),
		Catalysts: cloneItems(inv.Catalysts),
		Items:     cloneItems(inv.Items),
		Spells:    cloneItems(inv.Spells),
	}
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}
