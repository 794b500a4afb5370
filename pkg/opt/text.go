// Package opt models attribute values that must keep "absent", "present but empty"
// and "present with a value" apart.
package opt

import "strings"

// State is the presence state of a Text
type State uint8

const (
	// StateUnset means the attribute was absent
	StateUnset State = iota
	// StateEmpty means the attribute was present with a zero length value
	StateEmpty
	// StatePresent means the attribute carried a value
	StatePresent
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePresent:
		return "present"
	default:
		return "unset"
	}
}

// ParseState is the inverse of State.String; unknown input yields StateUnset
func ParseState(s string) State {
	switch s {
	case "empty":
		return StateEmpty
	case "present":
		return StatePresent
	default:
		return StateUnset
	}
}

// Text is a tri-state string. The zero value is Unset.
type Text struct {
	state State
	value string
}

// Unset returns an absent value
func Unset() Text { return Text{} }

// Empty returns a present, zero length value
func Empty() Text { return Text{state: StateEmpty} }

// Of returns a present value; an all-blank string collapses to Empty
func Of(s string) Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return Empty()
	}
	return Text{state: StatePresent, value: s}
}

// FromPtr maps nil to Unset and anything else through Of
func FromPtr(s *string) Text {
	if s == nil {
		return Unset()
	}
	return Of(*s)
}

// State returns the presence state
func (t Text) State() State { return t.state }

// IsSet is true for Empty and Present
func (t Text) IsSet() bool { return t.state != StateUnset }

// IsPresent is true only when a non-empty value is held
func (t Text) IsPresent() bool { return t.state == StatePresent }

// String returns the held value, "" for Unset and Empty
func (t Text) String() string { return t.value }

// Or returns the value when present, otherwise def
func (t Text) Or(def string) string {
	if t.state == StatePresent {
		return t.value
	}
	return def
}

// Ptr returns nil unless a value is present
func (t Text) Ptr() *string {
	if t.state != StatePresent {
		return nil
	}
	v := t.value
	return &v
}

// IsPlaceholder reports values that only hold DICOM filler: dashes, carets,
// spaces. A referring physician of "^^^^" or "-" names nobody.
func (t Text) IsPlaceholder() bool {
	if t.state != StatePresent {
		return true
	}
	return strings.Trim(t.value, "-^= ") == ""
}
