// Package fhir holds the bundle, reference and extension helpers the mapper uses
// over the generated R4 model in github.com/gofhir/fhir/r4.
package fhir

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/identity"
)

// Add appends r as an entry whose fullUrl is the urn:uuid form of its id
func Add(b *r4.Bundle, r r4.Resource) {
	b.Entry = append(b.Entry, r4.BundleEntry{FullUrl: Ptr(identity.URN(Val(r.GetId()))), Resource: r})
}

// Resources returns the entries' resources in order
func Resources(b *r4.Bundle) []r4.Resource {
	out := make([]r4.Resource, 0, len(b.Entry))
	for _, e := range b.Entry {
		if e.Resource != nil {
			out = append(out, e.Resource)
		}
	}
	return out
}

// Of returns every resource of type T in entry order
func Of[T r4.Resource](b *r4.Bundle) []T {
	if b == nil {
		return nil
	}
	var out []T
	for _, e := range b.Entry {
		if r, ok := e.Resource.(T); ok {
			out = append(out, r)
		}
	}
	return out
}

// Resolve returns the entry with the given fullUrl
func Resolve(b *r4.Bundle, fullURL string) (r4.BundleEntry, bool) {
	for _, e := range b.Entry {
		if Val(e.FullUrl) == fullURL {
			return e, true
		}
	}
	return r4.BundleEntry{}, false
}

// ResolveAs follows a bundle-local reference to a resource of type T
func ResolveAs[T r4.Resource](b *r4.Bundle, ref *r4.Reference) (T, bool) {
	var zero T
	if ref == nil || Val(ref.Reference) == "" {
		return zero, false
	}
	e, ok := Resolve(b, *ref.Reference)
	if !ok {
		return zero, false
	}
	r, ok := e.Resource.(T)
	return r, ok
}

// Decode reads a bundle from JSON
func Decode(r io.Reader) (*r4.Bundle, error) {
	var b r4.Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	if b.ResourceType != "" && b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("decoding bundle: resourceType is %q", b.ResourceType)
	}
	return &b, nil
}

// ReadFile reads a bundle from a JSON file
func ReadFile(path string) (*r4.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes any resource as indented JSON
func Encode(w io.Writer, r r4.Resource) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
