package item

import (
	"strings"
	"testing"

	"github.com/kasuganosora/charsheet/model"
	"github.com/stretchr/testify/assert"
)

func TestDescribe_Weapon(t *testing.T) {
	tt := Describe(model.Item{
		Type: model.ItemWeapon, Name: "Longsword",
		DamageType: "slashing", Dice: "1d8", ScalingStat: model.StatSTR,
		TwoHanded: boolp(false), FlatBonus: intp(2),
	})
	assert.Equal(t, "⚔️", tt.Icon)
	assert.Equal(t, []string{"Slashing 1d8", "Scales with Strength", "One-Handed", "Attack +2"}, tt.Text())
	assert.Equal(t, "#8B4513", tt.Lines[0].Color)
}

func TestDescribe_WeaponMissingOptionals(t *testing.T) {
	tt := Describe(model.Item{Type: model.ItemWeapon, Name: "Stick", Dice: "1d4"})
	assert.Equal(t, []string{"1d4"}, tt.Text())
	assert.Equal(t, defaultColor, tt.Lines[0].Color)
}

func TestDescribe_Armor(t *testing.T) {
	tt := Describe(model.Item{Type: model.ItemArmor, Name: "Chain", ArmorType: "medium", FlatBonus: intp(3)})
	assert.Equal(t, []string{"Medium Armor", "Defense +3"}, tt.Text())
}

func TestDescribe_Catalyst(t *testing.T) {
	tt := Describe(model.Item{Type: model.ItemCatalyst, Name: "Talisman", CatalystType: "talisman", FlatBonus: intp(1)})
	assert.Equal(t, []string{"Talisman", "Spell Power +1"}, tt.Text())
	assert.Equal(t, "#9932CC", tt.Lines[0].Color)
}

func TestDescribe_ConsumableHidesGenericType(t *testing.T) {
	tt := Describe(model.Item{
		Type: model.ItemConsumable, Name: "Estus",
		ConsumableType: "consumable", Effect: "Restores HP", Uses: intp(3), MaxUses: intp(5),
	})
	assert.Equal(t, []string{"Restores HP", "3 / 5"}, tt.Text())

	tt = Describe(model.Item{Type: model.ItemConsumable, Name: "Firebomb", ConsumableType: "throwable", Uses: intp(2)})
	assert.Equal(t, []string{"Throwable", "2"}, tt.Text())
}

func TestDescribe_Spell(t *testing.T) {
	tt := Describe(model.Item{
		Type: model.ItemSpell, Name: "Great Heal",
		SpellType: "miracle", EffectType: "heal", Dice: "3d8", ScalingStat: model.StatFTH,
		RequiresCatalyst: "talisman", Cost: intp(2), Uses: intp(1), MaxUses: intp(2), Duration: intp(30),
	})
	assert.Equal(t, []string{
		"Miracle",
		"Heal: 3d8 (scales with Faith)",
		"Requires: Talisman",
		"Cost: 2",
		"1 / 2",
		"Duration: 30s",
	}, tt.Text())
	assert.Equal(t, "#FF4500", tt.Lines[0].Color)
}

func TestDescribe_SpellSparse(t *testing.T) {
	tt := Describe(model.Item{Type: model.ItemSpell, Name: "Mystery", EffectType: "buff"})
	assert.Equal(t, []string{"Buff"}, tt.Text())
	for _, line := range tt.Text() {
		assert.False(t, strings.Contains(line, "undefined"))
	}
}

func TestFullStatName(t *testing.T) {
	assert.Equal(t, "Intelligence", FullStatName(model.StatINT))
	assert.Equal(t, "LCK", FullStatName("LCK"))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Two words", capitalize("two words"))
	assert.Equal(t, "", capitalize(""))
	assert.Equal(t, "Éclair", capitalize("éclair"))
}
