package entity

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Node is one element of an accessibility snapshot as reported by the backend.
// Empty strings mean the attribute is absent. A nil Visible means unknown and
// is treated as visible.
type Node struct {
	Role       string  `json:"role,omitempty"`
	Identifier string  `json:"identifier,omitempty"`
	Label      string  `json:"label,omitempty"`
	Value      string  `json:"value,omitempty"`
	Frame      *Frame  `json:"frame,omitempty"`
	Visible    *bool   `json:"visible,omitempty"`
	Children   []*Node `json:"children,omitempty"`
}

func (n *Node) CanonicalRole() Role {
	return CanonicalRole(n.Role)
}

func (n *Node) IsHidden() bool {
	return n.Visible != nil && !*n.Visible
}

// UnmarshalJSON accepts both the native field names and the AX* names used by
// accessibility dumps. Malformed frames and children are dropped rather than
// failing the whole document.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role         json.RawMessage `json:"role"`
		Type         json.RawMessage `json:"type"`
		AXRole       json.RawMessage `json:"AXRole"`
		Identifier   json.RawMessage `json:"identifier"`
		AXIdentifier json.RawMessage `json:"AXIdentifier"`
		Label        json.RawMessage `json:"label"`
		AXLabel      json.RawMessage `json:"AXLabel"`
		Value        json.RawMessage `json:"value"`
		AXValue      json.RawMessage `json:"AXValue"`
		Frame        json.RawMessage `json:"frame"`
		AXFrame      json.RawMessage `json:"AXFrame"`
		Visible      json.RawMessage `json:"visible"`
		Children     json.RawMessage `json:"children"`
		Nodes        json.RawMessage `json:"nodes"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.Role = firstNonEmpty(scalarString(raw.Role), scalarString(raw.Type), scalarString(raw.AXRole))
	n.Identifier = firstNonEmpty(scalarString(raw.Identifier), scalarString(raw.AXIdentifier))
	n.Label = firstNonEmpty(scalarString(raw.Label), scalarString(raw.AXLabel))
	n.Value = firstNonEmpty(scalarString(raw.Value), scalarString(raw.AXValue))

	n.Frame = ParseFrameJSON(raw.Frame)
	if n.Frame == nil {
		n.Frame = ParseFrameJSON(raw.AXFrame)
	}

	n.Visible = parseVisible(raw.Visible)

	n.Children = DecodeNodes(raw.Children)
	if len(n.Children) == 0 {
		n.Children = DecodeNodes(raw.Nodes)
	}

	return nil
}

// DecodeNodes reads a JSON array of nodes, skipping entries that are not
// objects or do not decode. Anything other than an array yields nil.
func DecodeNodes(data json.RawMessage) []*Node {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}

	var nodes []*Node
	for _, item := range items {
		if !isObject(item) {
			continue
		}

		var node Node
		if err := json.Unmarshal(item, &node); err != nil {
			continue
		}
		nodes = append(nodes, &node)
	}

	return nodes
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Frame is a rectangle in screen points.
type Frame struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (f *Frame) HasValidDimensions() bool {
	return f != nil && f.Width > 0 && f.Height > 0
}

func (f *Frame) Center() Point {
	return Point{
		X: f.X + f.Width/2,
		Y: f.Y + f.Height/2,
	}
}

// IsFinite reports whether every component is a real number.
func (f *Frame) IsFinite() bool {
	for _, v := range []float64{f.X, f.Y, f.Width, f.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

func (f *Frame) String() string {
	parts := []string{
		formatFloat(f.X),
		formatFloat(f.Y),
		formatFloat(f.Width),
		formatFloat(f.Height),
	}

	return strings.Join(parts, ",")
}

// ParseFrameJSON reads {x,y,width,height} (or w/h) with numeric or numeric
// string members. Returns nil when any of the four is missing or not a number.
func ParseFrameJSON(data json.RawMessage) *Frame {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	lookup := func(keys ...string) (float64, bool, bool) {
		for _, key := range keys {
			raw, ok := fields[key]
			if !ok {
				continue
			}
			v, ok := parseNumber(raw)

			return v, true, ok
		}

		return 0, false, true
	}

	x, hasX, okX := lookup("x", "X")
	y, hasY, okY := lookup("y", "Y")
	w, hasW, okW := lookup("width", "w", "Width")
	h, hasH, okH := lookup("height", "h", "Height")
	if !hasX || !hasY || !hasW || !hasH || !okX || !okY || !okW || !okH {
		return nil
	}

	return &Frame{X: x, Y: y, Width: w, Height: h}
}

type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point) String() string {
	return formatFloat(p.X) + "," + formatFloat(p.Y)
}

// Screen is the logical size of the simulator display in points.
type Screen struct {
	Width  float64
	Height float64
}

func DefaultScreen() Screen {
	return Screen{Width: 375, Height: 812}
}

type Device struct {
	UDID    string `json:"udid" yaml:"udid"`
	Name    string `json:"name" yaml:"name"`
	State   string `json:"state,omitempty" yaml:"state,omitempty"`
	Runtime string `json:"runtime,omitempty" yaml:"runtime,omitempty"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

func parseVisible(raw json.RawMessage) *bool {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseBool(s); err == nil {
			return &v
		}
	}

	return nil
}

// scalarString renders strings, numbers and booleans. Objects and arrays are
// treated as absent.
func scalarString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" || trimmed[0] == '{' || trimmed[0] == '[' {
		return ""
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}

	return string(trimmed)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
