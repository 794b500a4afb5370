// Package mado maps IHE MADO manifests between a DICOM Key Object Selection document
// and a FHIR document bundle. The forward direction is total: absent attributes are
// replaced with documented defaults and their original state is preserved in
// extensions. The reverse direction rejects bundles that are not MADO documents.
package mado

import (
	"errors"
	"log/slog"

	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/identity"
	"github.com/jpfielding/mado.go/pkg/report"
)

// Reverse mapping preconditions
var (
	ErrNotDocumentBundle   = errors.New("bundle is not a document")
	ErrCompositionNotFirst = errors.New("first bundle entry is not a Composition")
	ErrMissingPatient      = errors.New("bundle has no Patient")
	ErrMissingImagingStudy = errors.New("bundle has no ImagingStudy")
)

// Defaults substituted for absent equipment attributes
const (
	DefaultManufacturer    = "Unknown Manufacturer"
	DefaultInstitution     = "Unknown Institution"
	DefaultSoftwareVersion = "Unknown"
)

// Conversion is a forward mapping result with the notes taken along the way
type Conversion struct {
	Bundle *r4.Bundle
	Notes  *report.Result
}

// Mapper converts in both directions. It holds only configuration and may be
// shared by concurrent conversions.
type Mapper struct {
	ids             identity.Generator
	manufacturer    string
	institution     string
	softwareVersion string
	log             *slog.Logger
}

// Option configures a Mapper
type Option func(*Mapper)

// New returns a deterministic mapper with the package defaults
func New(opts ...Option) *Mapper {
	m := &Mapper{
		ids:             identity.Deterministic(),
		manufacturer:    DefaultManufacturer,
		institution:     DefaultInstitution,
		softwareVersion: DefaultSoftwareVersion,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	return m
}

// WithDeterministic selects name-based or random identifiers
func WithDeterministic(deterministic bool) Option {
	return func(m *Mapper) {
		m.ids = identity.New(deterministic)
	}
}

// WithGenerator sets the identifier generator
func WithGenerator(g identity.Generator) Option {
	return func(m *Mapper) {
		m.ids = g
	}
}

// WithDefaultManufacturer overrides the manufacturer used when none is recorded
func WithDefaultManufacturer(s string) Option {
	return func(m *Mapper) {
		if s != "" {
			m.manufacturer = s
		}
	}
}

// WithDefaultInstitution overrides the institution used when none is recorded
func WithDefaultInstitution(s string) Option {
	return func(m *Mapper) {
		if s != "" {
			m.institution = s
		}
	}
}

// WithDefaultSoftwareVersion overrides the software version used when none is recorded
func WithDefaultSoftwareVersion(s string) Option {
	return func(m *Mapper) {
		if s != "" {
			m.softwareVersion = s
		}
	}
}

// WithLogger sets the logger for mapping diagnostics; nil keeps slog.Default
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) {
		if l != nil {
			m.log = l
		}
	}
}
