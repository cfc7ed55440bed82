// Package render turns loosely typed JSON into a display tree.
//
// Objects are first filtered (see FieldsOf), then classified by the ordered
// Matchers; anything unrecognized falls back to nested sections, positional
// array elements and capitalized key/value fields. Every input produces a
// tree; there is no error path.
package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Kind identifies a node's role in the display tree.
type Kind string

const (
	KindRoot     Kind = "root"
	KindSection  Kind = "section"
	KindArray    Kind = "array"
	KindElement  Kind = "element"
	KindField    Kind = "field"
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindResource Kind = "resource"
	KindStat     Kind = "stat"
	KindModifier Kind = "modifier"
	KindLabeled  Kind = "labeled"
)

// PortraitPlaceholder is shown in place of an image that fails to load.
const PortraitPlaceholder = "👤"

// Node is one element of the display tree.
type Node struct {
	Kind     Kind    `json:"kind"`
	Key      string  `json:"key,omitempty"`
	Label    string  `json:"label,omitempty"`
	Text     string  `json:"text,omitempty"`
	Suffix   string  `json:"suffix,omitempty"`
	Icon     string  `json:"icon,omitempty"`
	Src      string  `json:"src,omitempty"`
	Fallback string  `json:"fallback,omitempty"`
	Index    int     `json:"index,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Find returns the first node in depth-first order whose key equals key.
func (n *Node) Find(key string) *Node {
	if n == nil {
		return nil
	}
	if n.Key == key {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(key); found != nil {
			return found
		}
	}
	return nil
}

// Walk calls fn for n and every descendant, depth first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Render builds the display tree for value. Go values are encoded to JSON
// first; json.RawMessage and []byte holding valid JSON are used as is.
func Render(value any, title string) *Node {
	root := &Node{Kind: KindRoot, Label: Capitalize(title)}
	res := parse(value)
	if res.IsObject() {
		f := FieldsOf(res)
		if Detect(f) == ShapeNone {
			root.Children = renderFields(f)
			return root
		}
	}
	root.Children = []*Node{renderValue("", res)}
	return root
}

func parse(value any) gjson.Result {
	switch v := value.(type) {
	case gjson.Result:
		return v
	case json.RawMessage:
		if gjson.ValidBytes(v) {
			return gjson.ParseBytes(v)
		}
		return stringResult(string(v))
	case []byte:
		if gjson.ValidBytes(v) {
			return gjson.ParseBytes(v)
		}
		return stringResult(string(v))
	}
	b, err := json.Marshal(value)
	if err != nil {
		return stringResult(fmt.Sprint(value))
	}
	return gjson.ParseBytes(b)
}

func stringResult(s string) gjson.Result {
	raw, _ := json.Marshal(s)
	return gjson.Result{Type: gjson.String, Str: s, Raw: string(raw)}
}

func renderFields(f Fields) []*Node {
	nodes := make([]*Node, 0, f.Len())
	for _, k := range f.Keys() {
		v, _ := f.Get(k)
		nodes = append(nodes, renderValue(k, v))
	}
	return nodes
}

// renderValue classifies v, stored under key, and renders it.
func renderValue(key string, v gjson.Result) *Node {
	label := Capitalize(key)
	if strings.EqualFold(key, "image") && v.Type == gjson.String {
		return &Node{Kind: KindImage, Key: key, Label: label, Src: v.Str, Fallback: PortraitPlaceholder}
	}
	switch {
	case v.IsObject():
		f := FieldsOf(v)
		if n := renderShape(key, label, f); n != nil {
			return n
		}
		return &Node{Kind: KindSection, Key: key, Label: label, Children: renderFields(f)}
	case v.IsArray():
		arr := renderArray(v)
		if key == "" {
			return arr
		}
		return &Node{Kind: KindSection, Key: key, Label: label, Children: []*Node{arr}}
	case key == "":
		return &Node{Kind: KindText, Text: Stringify(v)}
	default:
		return &Node{Kind: KindField, Key: key, Label: label, Text: Stringify(v)}
	}
}

func renderArray(v gjson.Result) *Node {
	arr := &Node{Kind: KindArray}
	for i, elem := range v.Array() {
		el := &Node{Kind: KindElement, Index: i}
		if elem.IsObject() {
			f := FieldsOf(elem)
			if n := renderShape("", "", f); n != nil {
				el.Children = []*Node{n}
			} else {
				el.Children = renderFields(f)
			}
		} else {
			el.Children = []*Node{renderValue("", elem)}
		}
		arr.Children = append(arr.Children, el)
	}
	return arr
}

func renderShape(key, label string, f Fields) *Node {
	switch Detect(f) {
	case ShapeResource:
		n := &Node{Kind: KindResource, Key: key, Label: label, Icon: f.Str("icon")}
		if l := f.Str("label"); l != "" {
			n.Label = l
		}
		n.Text = number(f, "current") + "/" + number(f, "max")
		return n
	case ShapeStat:
		n := &Node{Kind: KindStat, Key: key, Label: label, Text: number(f, "value")}
		if m, _ := f.Get("max"); m.Num > 0 {
			n.Suffix = "/" + number(f, "max")
		}
		return n
	case ShapeModifier:
		n := &Node{Kind: KindModifier, Key: key, Label: label, Text: number(f, "value")}
		n.Suffix = SignedModifier(numValue(f, "modifier"))
		return n
	case ShapeLabeled:
		return &Node{
			Kind:  KindLabeled,
			Key:   key,
			Label: Stringify(mustGet(f, "label")),
			Icon:  f.Str("icon"),
			Text:  number(f, "value"),
		}
	}
	return nil
}

func mustGet(f Fields, key string) gjson.Result {
	v, _ := f.Get(key)
	return v
}

func numValue(f Fields, key string) float64 {
	return mustGet(f, key).Num
}

func number(f Fields, key string) string {
	return FormatNumber(numValue(f, key))
}

// SignedModifier renders a modifier as "+n" when non-negative, "n" otherwise.
func SignedModifier(m float64) string {
	if m >= 0 {
		return "+" + FormatNumber(m)
	}
	return FormatNumber(m)
}

// FormatNumber prints whole numbers without a fractional part. Negative
// zero prints as 0.
func FormatNumber(f float64) string {
	if f == 0 {
		f = 0
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Stringify renders a primitive the way it appears on the sheet.
func Stringify(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		if !v.Exists() {
			return "undefined"
		}
		return "null"
	case gjson.False:
		return "false"
	case gjson.True:
		return "true"
	case gjson.Number:
		return FormatNumber(v.Num)
	case gjson.String:
		return v.Str
	default:
		return v.Raw
	}
}

// Capitalize upper-cases the first rune only; "hit points" becomes "Hit points".
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
