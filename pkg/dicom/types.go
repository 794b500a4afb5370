package dicom

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// Dataset represents a complete DICOM dataset, or one item of a sequence
type Dataset struct {
	Elements map[Tag]*Element
}

// Element represents a single DICOM element
type Element struct {
	Tag   Tag
	VR    string      // Value Representation
	Value interface{} // Parsed value, []*Dataset for sequences
}

// Tag alias to avoid duplication
type Tag = tag.Tag

// FindElement returns an element by tag
func (ds *Dataset) FindElement(group, element uint16) (*Element, bool) {
	if ds == nil {
		return nil, false
	}
	elem, ok := ds.Elements[Tag{Group: group, Element: element}]
	return elem, ok
}

// Get returns the element for t
func (ds *Dataset) Get(t Tag) (*Element, bool) {
	return ds.FindElement(t.Group, t.Element)
}

// GetString returns the trimmed string value of t, "" when absent
func (ds *Dataset) GetString(t Tag) string {
	if elem, ok := ds.Get(t); ok {
		if s, ok := elem.GetString(); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Text returns t as a tri-state value: absent, present-but-empty, or present
func (ds *Dataset) Text(t Tag) opt.Text {
	elem, ok := ds.Get(t)
	if !ok {
		return opt.Unset()
	}
	if elem.Value == nil {
		return opt.Empty()
	}
	s, ok := elem.GetString()
	if !ok {
		return opt.Empty()
	}
	return opt.Of(s)
}

// Int returns the integer value of t
func (ds *Dataset) Int(t Tag) (int, bool) {
	if elem, ok := ds.Get(t); ok {
		return elem.GetInt()
	}
	return 0, false
}

// Sequence returns the items of a sequence element
func (ds *Dataset) Sequence(t Tag) []*Dataset {
	if elem, ok := ds.Get(t); ok {
		if items, ok := elem.GetSequence(); ok {
			return items
		}
	}
	return nil
}

// GetString returns a string value from an element
func (elem *Element) GetString() (string, bool) {
	switch v := elem.Value.(type) {
	case string:
		return v, true
	case []string:
		return strings.Join(v, `\`), true
	}
	return "", false
}

// GetStrings splits a multi-valued string on the backslash delimiter
func (elem *Element) GetStrings() ([]string, bool) {
	switch v := elem.Value.(type) {
	case []string:
		return v, true
	case string:
		if v == "" {
			return nil, true
		}
		parts := strings.Split(v, `\`)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, true
	}
	return nil, false
}

// GetSequence returns the items of a sequence element
func (elem *Element) GetSequence() ([]*Dataset, bool) {
	items, ok := elem.Value.([]*Dataset)
	return items, ok
}

// GetInt returns an int value from an element
func (elem *Element) GetInt() (int, bool) {
	switch v := elem.Value.(type) {
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case int:
		return v, true
	case int32:
		return int(v), true
	case int16:
		return int(v), true
	case []uint32:
		if len(v) > 0 {
			return int(v[0]), true
		}
	case []uint16:
		if len(v) > 0 {
			return int(v[0]), true
		}
	case string:
		s := strings.TrimSpace(v)
		if i := strings.IndexByte(s, '\\'); i >= 0 {
			s = s[:i]
		}
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
	case []byte:
		if len(v) == 2 {
			return int(binary.LittleEndian.Uint16(v)), true
		}
		if len(v) == 4 {
			return int(binary.LittleEndian.Uint32(v)), true
		}
	}
	return 0, false
}

// GetFloat returns a float value from a DS or binary float element
func (elem *Element) GetFloat() (float64, bool) {
	switch v := elem.Value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// IsEmpty reports an element without a usable value
func (elem *Element) IsEmpty() bool {
	if elem == nil || elem.Value == nil {
		return true
	}
	switch v := elem.Value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []byte:
		return len(v) == 0
	case []uint16:
		return len(v) == 0
	case []*Dataset:
		return len(v) == 0
	default:
		return false
	}
}

// String renders the element for dumps and error messages
func (elem *Element) String() string {
	return fmt.Sprintf("%v %s %s", elem.Tag, elem.VR, describe(elem.Value))
}

// describe renders an element value
func describe(v interface{}) string {
	switch val := v.(type) {
	case []*Dataset:
		return fmt.Sprintf("sequence of %d item(s)", len(val))
	case []byte:
		return fmt.Sprintf("%d bytes", len(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}
