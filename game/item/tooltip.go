package item

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kasuganosora/charsheet/model"
)

const defaultColor = "#CCCCCC"

var typeIcons = map[model.ItemType]string{
	model.ItemWeapon:     "⚔️",
	model.ItemArmor:      "🛡️",
	model.ItemCatalyst:   "🔮",
	model.ItemConsumable: "🧪",
	model.ItemSpell:      "✨",
}

var damageColors = map[string]string{
	"slashing":    "#8B4513",
	"piercing":    "#4169E1",
	"bludgeoning": "#696969",
	"fire":        "#FF4500",
	"lightning":   "#FFD700",
	"magic":       "#9932CC",
	"dark":        "#2F2F2F",
	"frost":       "#00CED1",
}

var statNames = map[model.StatCode]string{
	model.StatSTR: "Strength",
	model.StatDEX: "Dexterity",
	model.StatFTH: "Faith",
	model.StatINT: "Intelligence",
	model.StatVIT: "Vigor",
	model.StatEND: "Endurance",
}

// TypeIcon returns the glyph shown next to an item of type t.
func TypeIcon(t model.ItemType) string { return typeIcons[t] }

// DamageColor returns the colour for a damage type, or a neutral grey.
func DamageColor(damageType string) string {
	if c, ok := damageColors[damageType]; ok {
		return c
	}
	return defaultColor
}

// FullStatName expands a stat abbreviation; unknown codes pass through.
func FullStatName(code model.StatCode) string {
	if n, ok := statNames[code]; ok {
		return n
	}
	return string(code)
}

// Line is one row of an item description.
type Line struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

// Tooltip is the formatted description of an item.
type Tooltip struct {
	Icon  string `json:"icon"`
	Name  string `json:"name"`
	Lines []Line `json:"lines"`
}

// Text returns the description rows as plain strings.
func (t Tooltip) Text() []string {
	out := make([]string, len(t.Lines))
	for i, l := range t.Lines {
		out[i] = l.Text
	}
	return out
}

// Describe formats it by type. Missing optional fields are left out.
func Describe(it model.Item) Tooltip {
	tt := Tooltip{Icon: TypeIcon(it.Type), Name: it.Name}
	var b lineBuilder
	switch it.Type {
	case model.ItemWeapon:
		color := DamageColor(it.DamageType)
		b.add("damage", joinNonEmpty(" ", capitalize(it.DamageType), it.Dice), color)
		if it.ScalingStat != "" {
			b.add("scaling", "Scales with "+FullStatName(it.ScalingStat), "")
		}
		if it.TwoHanded != nil {
			handed := "One-Handed"
			if *it.TwoHanded {
				handed = "Two-Handed"
			}
			b.add("handed", handed, "")
		}
		if it.FlatBonus != nil {
			b.add("bonus", fmt.Sprintf("Attack +%d", *it.FlatBonus), "")
		}
	case model.ItemArmor:
		if it.ArmorType != "" {
			b.add("armor-type", capitalize(it.ArmorType)+" Armor", DamageColor(it.ArmorType))
		}
		if it.FlatBonus != nil {
			b.add("bonus", fmt.Sprintf("Defense +%d", *it.FlatBonus), "")
		}
	case model.ItemCatalyst:
		b.add("catalyst-type", capitalize(it.CatalystType), DamageColor("magic"))
		if it.FlatBonus != nil {
			b.add("bonus", fmt.Sprintf("Spell Power +%d", *it.FlatBonus), "")
		}
	case model.ItemConsumable:
		if it.ConsumableType != string(model.ItemConsumable) {
			b.add("consumable-type", capitalize(it.ConsumableType), "")
		}
		b.add("effect", it.Effect, "")
		b.add("uses", usesText(it), "")
	case model.ItemSpell:
		b.add("spell-type", capitalize(it.SpellType), spellColor(it.SpellType))
		b.add("effect", spellEffect(it), "")
		if it.RequiresCatalyst != "" {
			b.add("catalyst", "Requires: "+capitalize(it.RequiresCatalyst), "")
		}
		if it.Cost != nil {
			b.add("cost", fmt.Sprintf("Cost: %d", *it.Cost), "")
		}
		b.add("uses", usesText(it), "")
		if it.Duration != nil && *it.Duration > 0 {
			b.add("duration", fmt.Sprintf("Duration: %ds", *it.Duration), "")
		}
	}
	tt.Lines = b.lines
	return tt
}

type lineBuilder struct {
	lines []Line
}

func (b *lineBuilder) add(kind, text, color string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.lines = append(b.lines, Line{Kind: kind, Text: text, Color: color})
}

func spellColor(spellType string) string {
	switch spellType {
	case "magic":
		return DamageColor("magic")
	case "miracle":
		return DamageColor("fire")
	default:
		return DamageColor("frost")
	}
}

func spellEffect(it model.Item) string {
	text := it.Dice
	if it.ScalingStat != "" {
		text = joinNonEmpty(" ", text, "(scales with "+FullStatName(it.ScalingStat)+")")
	}
	if it.EffectType == "" {
		return text
	}
	if text == "" {
		return capitalize(it.EffectType)
	}
	return capitalize(it.EffectType) + ": " + text
}

func usesText(it model.Item) string {
	if it.Uses == nil {
		return ""
	}
	if it.MaxUses != nil && *it.MaxUses > 0 {
		return fmt.Sprintf("%d / %d", *it.Uses, *it.MaxUses)
	}
	return fmt.Sprintf("%d", *it.Uses)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// capitalize upper-cases only the first rune.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
