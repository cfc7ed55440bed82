package item

import "github.com/kasuganosora/charsheet/model"

// The unified inventory grid is GridColumns wide and GridRows tall.
const (
	GridColumns = 6
	GridRows    = 8
	GridSlots   = GridColumns * GridRows
)

// CollectUnified concatenates weapons, armors, catalysts, consumables and
// spells, then pads with nil up to GridSlots. Equipped items are included.
// When the inventory holds more than GridSlots items nothing is dropped.
func CollectUnified(inv model.Inventory) []*model.Item {
	out := make([]*model.Item, 0, GridSlots)
	for _, coll := range inv.Collections() {
		for i := range coll {
			it := coll[i]
			out = append(out, &it)
		}
	}
	for len(out) < GridSlots {
		out = append(out, nil)
	}
	return out
}
