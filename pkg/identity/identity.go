// Package identity derives the resource identifiers of a converted bundle. In
// deterministic mode an identifier is a name-based UUID over a role-tagged canonical
// string, so converting the same manifest twice yields the same identifiers.
package identity

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// Role names the resource an identifier is derived for
type Role string

const (
	Bundle       Role = "bundle"
	Composition  Role = "composition"
	Patient      Role = "patient"
	ImagingStudy Role = "imagingstudy"
	Device       Role = "device"
	Practitioner Role = "practitioner"
	Endpoint     Role = "endpoint"
	Selection    Role = "selection"
)

// Namespace scopes every name-based identifier
var Namespace = uuid.MustParse("6f6b1c0e-5a4d-5e2b-9c3a-4d4144f4d41e")

const (
	separator = "|"
	// emptyMarker stands in for both unset and empty inputs
	emptyMarker = "0:"
)

// Generator produces identifiers; the zero value is random
type Generator struct {
	deterministic bool
}

// New returns a generator in deterministic or random mode
func New(deterministic bool) Generator {
	return Generator{deterministic: deterministic}
}

// Deterministic returns a name-based generator
func Deterministic() Generator {
	return New(true)
}

// IsDeterministic reports the generator's mode
func (g Generator) IsDeterministic() bool {
	return g.deterministic
}

// ID returns a UUID for role and inputs
func (g Generator) ID(role Role, inputs ...opt.Text) string {
	if !g.deterministic {
		return uuid.NewString()
	}
	return uuid.NewSHA1(Namespace, []byte(Canonical(role, inputs...))).String()
}

// IDOf is ID over plain strings
func (g Generator) IDOf(role Role, inputs ...string) string {
	return g.ID(role, texts(inputs)...)
}

// URN returns the bundle-local reference form of ID
func (g Generator) URN(role Role, inputs ...opt.Text) string {
	return URN(g.ID(role, inputs...))
}

// URNOf is URN over plain strings
func (g Generator) URNOf(role Role, inputs ...string) string {
	return URN(g.IDOf(role, inputs...))
}

// URN prefixes an id as a urn:uuid reference
func URN(id string) string {
	return "urn:uuid:" + id
}

// FromURN strips the urn:uuid prefix
func FromURN(ref string) string {
	return strings.TrimPrefix(ref, "urn:uuid:")
}

// Canonical renders the hashed form of role and inputs. Inputs are trimmed and
// length prefixed, so a separator inside a value cannot shift a boundary; unset and
// empty inputs share one marker.
func Canonical(role Role, inputs ...opt.Text) string {
	parts := make([]string, 0, len(inputs)+1)
	parts = append(parts, string(role))
	for _, in := range inputs {
		if !in.IsPresent() {
			parts = append(parts, emptyMarker)
			continue
		}
		v := in.String()
		parts = append(parts, strconv.Itoa(len(v))+":"+v)
	}
	return strings.Join(parts, separator)
}

func texts(inputs []string) []opt.Text {
	out := make([]opt.Text, len(inputs))
	for i, s := range inputs {
		out[i] = opt.Of(s)
	}
	return out
}
