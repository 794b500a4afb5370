package dicom

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Dump renders the dataset as an indented listing, descending into sequence items
func (ds *Dataset) Dump() string {
	var b strings.Builder
	ds.dump(&b, 0)
	return b.String()
}

func (ds *Dataset) dump(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, elem := range ds.sortedElements() {
		tagName := elem.Tag.LookupName()
		if tagName != "" {
			tagName = " " + tagName
		}
		items, isSeq := elem.Value.([]*Dataset)
		if !isSeq {
			fmt.Fprintf(b, "%s[%s] %s%s: %s\n", indent, elem.Tag, elem.VR, tagName, dumpValue(elem.Value))
			continue
		}
		fmt.Fprintf(b, "%s[%s] %s%s: %d item(s)\n", indent, elem.Tag, elem.VR, tagName, len(items))
		for i, item := range items {
			fmt.Fprintf(b, "%s  > item %d\n", indent, i+1)
			item.dump(b, depth+2)
		}
	}
}

func dumpValue(v interface{}) string {
	switch val := v.(type) {
	case []byte:
		if len(val) > 20 {
			return fmt.Sprintf("Binary Data (%d bytes)", len(val))
		}
		return fmt.Sprintf("%v", val)
	case []uint16:
		if len(val) > 10 {
			return fmt.Sprintf("Array of %d values", len(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return describe(v)
	}
}

// MarshalJSON returns a JSON representation of the Element
func (e *Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Tag   string      `json:"tag"`
		Name  string      `json:"name,omitempty"`
		VR    string      `json:"vr"`
		Value interface{} `json:"value"`
	}{
		Tag:   e.Tag.String(),
		Name:  e.Tag.LookupName(),
		VR:    e.VR,
		Value: e.Value,
	})
}

// String returns a flat listing of the dataset
func (ds *Dataset) String() string {
	if ds == nil {
		return "<nil>"
	}
	return ds.Dump()
}

// MarshalJSON returns a sorted array of Elements instead of a map.
// Sequence items marshal recursively through the same method.
func (ds *Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(ds.sortedElements())
}

func (ds *Dataset) sortedElements() []*Element {
	keys := make([]Tag, 0, len(ds.Elements))
	for k := range ds.Elements {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
	elements := make([]*Element, 0, len(keys))
	for _, k := range keys {
		elements = append(elements, ds.Elements[k])
	}
	return elements
}
