package model

import (
	"encoding/json"
	"errors"
	"maps"
)

// SchemaVersion identifies the canonical character payload accepted and
// produced by this service.
const SchemaVersion = "charsheet/v1"

// StatCode is one of the six fixed stat abbreviations.
type StatCode string

const (
	StatSTR StatCode = "STR"
	StatDEX StatCode = "DEX"
	StatFTH StatCode = "FTH"
	StatINT StatCode = "INT"
	StatVIT StatCode = "VIT"
	StatEND StatCode = "END"
)

// StatCodes lists the closed stat set in display order.
var StatCodes = []StatCode{StatSTR, StatDEX, StatFTH, StatINT, StatVIT, StatEND}

// Valid reports whether c belongs to the closed stat set.
func (c StatCode) Valid() bool {
	for _, s := range StatCodes {
		if s == c {
			return true
		}
	}
	return false
}

// StatValue is a stat's base value and its modifier.
type StatValue struct {
	Value    int `json:"value"`
	Modifier int `json:"modifier"`
}

// Resource is either a bare number or a current/maximum pair.
type Resource struct {
	Current int
	Maximum int
	Pair    bool
}

// Number returns a bare-number resource.
func Number(n int) Resource { return Resource{Current: n} }

// Pair returns a current/maximum resource.
func Pair(current, maximum int) Resource {
	return Resource{Current: current, Maximum: maximum, Pair: true}
}

type resourcePair struct {
	Current int  `json:"current"`
	Maximum *int `json:"maximum,omitempty"`
	Max     *int `json:"max,omitempty"`
}

func (r Resource) MarshalJSON() ([]byte, error) {
	if !r.Pair {
		return json.Marshal(r.Current)
	}
	m := r.Maximum
	return json.Marshal(resourcePair{Current: r.Current, Maximum: &m})
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Resource{}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*r = Number(int(n))
		return nil
	}
	var p resourcePair
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.New("resource: want number or {current, maximum}")
	}
	maximum := 0
	switch {
	case p.Maximum != nil:
		maximum = *p.Maximum
	case p.Max != nil:
		maximum = *p.Max
	}
	*r = Pair(p.Current, maximum)
	return nil
}

// ResourceValue is the normalized value/max form used for hp, ap and attunement.
type ResourceValue struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// BasePower groups the three resources every sheet shows.
type BasePower struct {
	HP         ResourceValue `json:"hp"`
	AP         ResourceValue `json:"ap"`
	Attunement ResourceValue `json:"attunement"`
}

// Character is the canonical character block.
type Character struct {
	Name      string                 `json:"name"`
	Level     int                    `json:"level"`
	Hollowing Resource               `json:"hollowing"`
	Souls     int                    `json:"souls"`
	Stats     map[StatCode]StatValue `json:"stats"`
	Resources map[string]Resource    `json:"resources,omitempty"`
	BasePower BasePower              `json:"basePower"`
	Image     string                 `json:"image,omitempty"`
}

// CharacterData is one character plus its inventory. It is replaced
// wholesale on refresh and only mutated through Clone'd copies.
type CharacterData struct {
	ID        string    `json:"id"`
	Character Character `json:"character"`
	Inventory Inventory `json:"inventory"`
}

// Clone returns a deep copy of d.
func (d *CharacterData) Clone() *CharacterData {
	if d == nil {
		return nil
	}
	out := *d
	out.Character.Stats = maps.Clone(d.Character.Stats)
	out.Character.Resources = maps.Clone(d.Character.Resources)
	out.Inventory = d.Inventory.Clone()
	return &out
}
