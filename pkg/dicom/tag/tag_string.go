package tag

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// String returns a string representation of the Tag (GGGG,EEEE)
func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// MarshalJSON returns a JSON representation of the Tag
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Parse accepts "(GGGG,EEEE)", "GGGG,EEEE", "GGGGEEEE" or a dictionary keyword
func Parse(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	for t, info := range dictionary {
		if info.Keyword == s {
			return t, nil
		}
	}
	hex := strings.NewReplacer("(", "", ")", "", ",", "").Replace(s)
	if len(hex) != 8 {
		return Tag{}, fmt.Errorf("invalid tag %q", s)
	}
	g, err := strconv.ParseUint(hex[:4], 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag group %q: %w", s, err)
	}
	e, err := strconv.ParseUint(hex[4:], 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag element %q: %w", s, err)
	}
	return Tag{Group: uint16(g), Element: uint16(e)}, nil
}
