package render

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Shape is the classification of a JSON object that gets special display.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeResource
	ShapeStat
	ShapeModifier
	ShapeLabeled
)

func (s Shape) String() string {
	switch s {
	case ShapeResource:
		return "resource"
	case ShapeStat:
		return "stat"
	case ShapeModifier:
		return "modifier"
	case ShapeLabeled:
		return "labeled"
	default:
		return "none"
	}
}

// Matcher pairs a shape with its predicate.
type Matcher struct {
	Shape Shape
	Match func(Fields) bool
}

// Matchers are evaluated in order; the first match wins.
var Matchers = []Matcher{
	{Shape: ShapeResource, Match: func(f Fields) bool { return f.IsNumber("current") && f.IsNumber("max") }},
	{Shape: ShapeStat, Match: func(f Fields) bool { return f.IsNumber("value") && f.IsNumber("max") }},
	{Shape: ShapeModifier, Match: func(f Fields) bool { return f.IsNumber("value") && f.IsNumber("modifier") }},
	{Shape: ShapeLabeled, Match: func(f Fields) bool { return f.IsNumber("value") && f.Has("label") && f.Has("icon") }},
}

// Detect returns the first matching shape for f, or ShapeNone.
func Detect(f Fields) Shape {
	for _, m := range Matchers {
		if m.Match(f) {
			return m.Shape
		}
	}
	return ShapeNone
}

// Fields is an object's entries after noise filtering, in document order.
type Fields struct {
	keys []string
	vals map[string]gjson.Result
}

// FieldsOf filters obj's entries: the "id" key, null values and strings that
// are blank after trimming are dropped. A repeated key keeps its first
// position and its last value.
func FieldsOf(obj gjson.Result) Fields {
	f := Fields{vals: make(map[string]gjson.Result)}
	if !obj.IsObject() {
		return f
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if dropped(k.Str, v) {
			return true
		}
		if _, seen := f.vals[k.Str]; !seen {
			f.keys = append(f.keys, k.Str)
		}
		f.vals[k.Str] = v
		return true
	})
	return f
}

func dropped(key string, v gjson.Result) bool {
	switch {
	case key == "id":
		return true
	case !v.Exists() || v.Type == gjson.Null:
		return true
	case v.Type == gjson.String && strings.TrimSpace(v.Str) == "":
		return true
	}
	return false
}

// Keys returns the kept keys in order.
func (f Fields) Keys() []string { return f.keys }

// Len is the number of kept fields.
func (f Fields) Len() int { return len(f.keys) }

// Get returns the value stored under key.
func (f Fields) Get(key string) (gjson.Result, bool) {
	v, ok := f.vals[key]
	return v, ok
}

// Has reports whether key survived filtering.
func (f Fields) Has(key string) bool {
	_, ok := f.vals[key]
	return ok
}

// IsNumber reports whether key holds a JSON number.
func (f Fields) IsNumber(key string) bool {
	v, ok := f.vals[key]
	return ok && v.Type == gjson.Number
}

// Str returns key's string value, or "".
func (f Fields) Str(key string) string {
	if v, ok := f.vals[key]; ok && v.Type == gjson.String {
		return v.Str
	}
	return ""
}
