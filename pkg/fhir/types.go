package fhir

import (
	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/identity"
)

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// Str returns a pointer to s, nil when s is empty
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Val dereferences a primitive, the zero value when nil
func Val[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Count returns n as an unsignedInt, nil when n is not positive
func Count(n int) *uint32 {
	if n <= 0 {
		return nil
	}
	u := uint32(n)
	return &u
}

// Ref returns a typed bundle-local reference to the resource with id
func Ref(resourceType, id string) r4.Reference {
	return r4.Reference{Reference: Ptr(identity.URN(id)), Type: Ptr(resourceType)}
}

// RefPtr is Ref for optional reference elements
func RefPtr(resourceType, id string) *r4.Reference {
	r := Ref(resourceType, id)
	return &r
}

// NewCoding builds a coding, leaving empty parts out
func NewCoding(system, code, display string) r4.Coding {
	return r4.Coding{System: Str(system), Code: Str(code), Display: Str(display)}
}

// FirstCoding returns the first coding of cc
func FirstCoding(cc *r4.CodeableConcept) (r4.Coding, bool) {
	if cc == nil || len(cc.Coding) == 0 {
		return r4.Coding{}, false
	}
	return cc.Coding[0], true
}

// FindCoding returns the first coding of cc with the given system
func FindCoding(cc *r4.CodeableConcept, system string) (r4.Coding, bool) {
	if cc == nil {
		return r4.Coding{}, false
	}
	for _, c := range cc.Coding {
		if Val(c.System) == system {
			return c, true
		}
	}
	return r4.Coding{}, false
}
