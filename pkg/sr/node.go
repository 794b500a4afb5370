// Package sr models the Structured Report content tree of a Key Object Selection
// document: the recursive content items, their coded concept names and payloads,
// and the conversions to and from Content Sequence items.
package sr

import (
	"fmt"
	"strings"

	"github.com/jpfielding/mado.go/pkg/opt"
)

// ValueType is the Value Type (0040,A040) of a content item
type ValueType string

const (
	Container ValueType = "CONTAINER"
	Text      ValueType = "TEXT"
	CodeValue ValueType = "CODE"
	UIDRef    ValueType = "UIDREF"
	PName     ValueType = "PNAME"
	Image     ValueType = "IMAGE"
	Composite ValueType = "COMPOSITE"
	Waveform  ValueType = "WAVEFORM"
	Num       ValueType = "NUM"
)

// IsReference reports value types whose payload is a list of SOP references
func (v ValueType) IsReference() bool {
	return v == Image || v == Composite || v == Waveform
}

// IsKnown reports value types a manifest may carry
func (v ValueType) IsKnown() bool {
	switch v {
	case Container, Text, CodeValue, UIDRef, PName, Image, Composite, Waveform, Num:
		return true
	}
	return false
}

// RelationshipType is the Relationship Type (0040,A010) of a content item
type RelationshipType string

const (
	Contains      RelationshipType = "CONTAINS"
	HasConceptMod RelationshipType = "HAS_CONCEPT_MOD"
	HasObsContext RelationshipType = "HAS_OBS_CONTEXT"
	HasAcqContext RelationshipType = "HAS_ACQ_CONTEXT"
	InferredFrom  RelationshipType = "INFERRED_FROM"
	SelectedFrom  RelationshipType = "SELECTED_FROM"
)

// IsKnown reports relationship types a manifest may carry
func (r RelationshipType) IsKnown() bool {
	switch r {
	case Contains, HasConceptMod, HasObsContext, HasAcqContext, InferredFrom, SelectedFrom:
		return true
	}
	return false
}

// Code is a coded entry triple
type Code struct {
	Value   string `json:"value"`
	Scheme  string `json:"scheme"`
	Meaning string `json:"meaning"`
}

// Is compares value and scheme, ignoring meaning
func (c Code) Is(other Code) bool {
	return c.Value == other.Value && c.Scheme == other.Scheme
}

// IsComplete reports a code with value, scheme and meaning all present
func (c Code) IsComplete() bool {
	return strings.TrimSpace(c.Value) != "" && strings.TrimSpace(c.Scheme) != "" && strings.TrimSpace(c.Meaning) != ""
}

func (c Code) String() string {
	return fmt.Sprintf("(%s, %s, %q)", c.Value, c.Scheme, c.Meaning)
}

// SOPRef is one referenced SOP instance of an IMAGE, COMPOSITE or WAVEFORM item
type SOPRef struct {
	ClassUID    string `json:"classUID"`
	InstanceUID string `json:"instanceUID"`
	Frames      []int  `json:"frames,omitempty"`
}

// Numeric is the measured value of a NUM item
type Numeric struct {
	Value string `json:"value"`
	Unit  *Code  `json:"unit,omitempty"`
}

// Node is one content item. Only the payload field matching ValueType is meaningful.
type Node struct {
	ValueType        ValueType        `json:"valueType"`
	RelationshipType RelationshipType `json:"relationshipType,omitempty"`
	ConceptName      *Code            `json:"conceptName,omitempty"`

	TextValue  opt.Text `json:"-"`
	Codes      []Code   `json:"codes,omitempty"`
	UID        opt.Text `json:"-"`
	PersonName opt.Text `json:"-"`
	Numeric    *Numeric `json:"numeric,omitempty"`
	References []SOPRef `json:"references,omitempty"`

	// HasPurposeOfReference marks a reference item carrying a Purpose of Reference code
	HasPurposeOfReference bool `json:"-"`

	Children []*Node `json:"children,omitempty"`
}

// Named reports whether the concept name matches c
func (n *Node) Named(c Code) bool {
	return n != nil && n.ConceptName != nil && n.ConceptName.Is(c)
}

// Code returns the first coded payload, if any
func (n *Node) Code() (Code, bool) {
	if len(n.Codes) == 0 {
		return Code{}, false
	}
	return n.Codes[0], true
}

// IsLeaf reports a node without children
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Add appends children and returns the node
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// NewContainer builds a CONTAINER item
func NewContainer(rel RelationshipType, concept Code, children ...*Node) *Node {
	return &Node{ValueType: Container, RelationshipType: rel, ConceptName: &concept, Children: children}
}

// NewText builds a TEXT item
func NewText(rel RelationshipType, concept Code, text string) *Node {
	return &Node{ValueType: Text, RelationshipType: rel, ConceptName: &concept, TextValue: opt.Of(text)}
}

// NewCode builds a CODE item
func NewCode(rel RelationshipType, concept Code, value Code) *Node {
	return &Node{ValueType: CodeValue, RelationshipType: rel, ConceptName: &concept, Codes: []Code{value}}
}

// NewUIDRef builds a UIDREF item
func NewUIDRef(rel RelationshipType, concept Code, uid string) *Node {
	return &Node{ValueType: UIDRef, RelationshipType: rel, ConceptName: &concept, UID: opt.Of(uid)}
}

// NewPName builds a PNAME item
func NewPName(rel RelationshipType, concept Code, name string) *Node {
	return &Node{ValueType: PName, RelationshipType: rel, ConceptName: &concept, PersonName: opt.Of(name)}
}

// NewNum builds a NUM item
func NewNum(rel RelationshipType, concept Code, value string, unit Code) *Node {
	return &Node{ValueType: Num, RelationshipType: rel, ConceptName: &concept, Numeric: &Numeric{Value: value, Unit: &unit}}
}

// NewImage builds an IMAGE item. Key image designations carry a concept name;
// plain library entries may omit it.
func NewImage(rel RelationshipType, concept *Code, refs ...SOPRef) *Node {
	return &Node{ValueType: Image, RelationshipType: rel, ConceptName: concept, References: refs}
}
