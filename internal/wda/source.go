package wda

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"pippin/internal/entity"
	"strconv"
	"strings"
)

const (
	elementTypePrefix = "XCUIElementType"
	appiumRootTag     = "AppiumAUT"
)

type xmlElement struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Children []xmlElement `xml:",any"`
}

type sourceEnvelope struct {
	Value json.RawMessage `json:"value"`
}

// DecodeSource extracts the XML document from a /source response body, which
// WDA sends either wrapped as {"value": "<xml>"} or raw.
func DecodeSource(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)

	var env sourceEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil || len(env.Value) == 0 {
		return trimmed
	}

	var doc string
	if err := json.Unmarshal(env.Value, &doc); err != nil {
		return trimmed
	}

	return []byte(doc)
}

// ParseSource converts a WDA XML page source into a node tree.
func ParseSource(doc []byte) (*entity.Node, error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, errors.New("empty page source")
	}

	var root xmlElement
	if err := xml.Unmarshal(doc, &root); err != nil {
		return nil, err
	}

	return root.toNode(), nil
}

func (e xmlElement) toNode() *entity.Node {
	attrs := make(map[string]string, len(e.Attrs))
	for _, a := range e.Attrs {
		attrs[a.Name.Local] = a.Value
	}

	n := &entity.Node{
		Role:       elementRole(e.XMLName.Local, attrs["type"]),
		Identifier: attrs["name"],
		Label:      attrs["label"],
		Value:      attrs["value"],
		Frame:      elementFrame(attrs),
	}

	if attrs["visible"] == "false" {
		visible := false
		n.Visible = &visible
	}

	for _, child := range e.Children {
		n.Children = append(n.Children, child.toNode())
	}

	return n
}

func elementRole(tag, typeAttr string) string {
	if typeAttr != "" {
		return strings.TrimPrefix(typeAttr, elementTypePrefix)
	}
	if tag == appiumRootTag {
		return string(entity.RoleApplication)
	}

	return strings.TrimPrefix(tag, elementTypePrefix)
}

// elementFrame needs all four of x, y, width and height. A missing or
// unparsable one drops the frame entirely.
func elementFrame(attrs map[string]string) *entity.Frame {
	values := make([]float64, 4)
	for i, key := range []string{"x", "y", "width", "height"} {
		raw, ok := attrs[key]
		if !ok {
			return nil
		}

		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		values[i] = v
	}

	return &entity.Frame{X: values[0], Y: values[1], Width: values[2], Height: values[3]}
}
