package mado

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/fhir"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// ExtensionBase prefixes every preservation extension URL
const ExtensionBase = "https://jpfielding.github.io/mado.go/StructureDefinition/"

// Composition extensions
const (
	ExtKeyObjectDescription   = ExtensionBase + "key-object-description"
	ExtTitleModifier          = ExtensionBase + "document-title-modifier"
	ExtManifestSeriesUID      = ExtensionBase + "manifest-series-instance-uid"
	ExtManifestSeriesNumber   = ExtensionBase + "manifest-series-number"
	ExtManifestInstanceNumber = ExtensionBase + "manifest-instance-number"
	ExtContentDate            = ExtensionBase + "content-date"
	ExtContentTime            = ExtensionBase + "content-time"
	ExtTimezoneOffset         = ExtensionBase + "timezone-offset-from-utc"
	ExtSeriesDate             = ExtensionBase + "series-date"
	ExtSeriesTime             = ExtensionBase + "series-time"
	ExtSeriesDescription      = ExtensionBase + "series-description"
)

// Patient extensions
const (
	ExtPatientID         = ExtensionBase + "patient-id"
	ExtIssuerOfPatientID = ExtensionBase + "issuer-of-patient-id"
	ExtTypeOfPatientID   = ExtensionBase + "type-of-patient-id"
	ExtPatientName       = ExtensionBase + "patient-name"
	ExtPatientBirthDate  = ExtensionBase + "patient-birth-date"
	ExtPatientSex        = ExtensionBase + "patient-sex"
)

// Device extensions
const (
	ExtManufacturer      = ExtensionBase + "manufacturer"
	ExtManufacturerModel = ExtensionBase + "manufacturer-model-name"
	ExtSoftwareVersions  = ExtensionBase + "software-versions"
	ExtInstitutionName   = ExtensionBase + "institution-name"
)

// ImagingStudy extensions, including those on series, instances and basedOn references
const (
	ExtStudyID                       = ExtensionBase + "study-id"
	ExtStudyDate                     = ExtensionBase + "study-date"
	ExtStudyTime                     = ExtensionBase + "study-time"
	ExtStudyDescription              = ExtensionBase + "study-description"
	ExtAccessionNumber               = ExtensionBase + "accession-number"
	ExtIssuerOfAccessionNumber       = ExtensionBase + "issuer-of-accession-number"
	ExtReferringPhysicianName        = ExtensionBase + "referring-physician-name"
	ExtRequestStudyInstanceUID       = ExtensionBase + "request-study-instance-uid"
	ExtRequestedProcedureID          = ExtensionBase + "requested-procedure-id"
	ExtRequestedProcedureDescription = ExtensionBase + "requested-procedure-description"
	ExtPlacerOrderNumber             = ExtensionBase + "placer-order-number"
	ExtFillerOrderNumber             = ExtensionBase + "filler-order-number"
	ExtStudyInstanceUID              = ExtensionBase + "study-instance-uid"
	ExtRetrieveURL                   = ExtensionBase + "retrieve-url"
	ExtRetrieveAETitle               = ExtensionBase + "retrieve-ae-title"
	ExtRetrieveLocationUID           = ExtensionBase + "retrieve-location-uid"
	ExtRows                          = ExtensionBase + "rows"
	ExtColumns                       = ExtensionBase + "columns"
	ExtNumberOfFrames                = ExtensionBase + "number-of-frames"
	ExtDimensions                    = ExtensionBase + "dimensions"
)

// Key image selection extensions
const (
	ExtImagingStudy     = ExtensionBase + "imaging-study"
	ExtSelectedInstance = ExtensionBase + "selected-instance"

	subSOPInstanceUID = "sopInstanceUid"
	subSOPClassUID    = "sopClassUid"
	subFrames         = "frames"
	subModifier       = "modifier"
	subState          = "state"
)

// preserve records a tri-state value. Present values are a valueString; empty and
// unset values are a complex extension holding only their state.
func preserve(url string, t opt.Text) r4.Extension {
	if t.IsPresent() {
		return fhir.StringExtension(url, t.String())
	}
	return r4.Extension{Url: url, Extension: []r4.Extension{{Url: subState, ValueCode: fhir.Ptr(t.State().String())}}}
}

// recovered reads a value written by preserve; found is false when no extension exists
func recovered(exts fhir.Extensions, url string) (t opt.Text, found bool) {
	x, ok := exts.Find(url)
	if !ok {
		return opt.Unset(), false
	}
	if v := fhir.Val(x.ValueString); v != "" {
		return opt.Of(v), true
	}
	for _, sub := range x.Extension {
		if sub.Url == subState && opt.ParseState(fhir.Val(sub.ValueCode)) == opt.StateEmpty {
			return opt.Empty(), true
		}
	}
	return opt.Unset(), true
}

// recoverOr prefers a preserved value over the one read from a native field
func recoverOr(exts fhir.Extensions, url string, fallback opt.Text) opt.Text {
	if t, ok := recovered(exts, url); ok {
		return t
	}
	return fallback
}

// textOf maps a native FHIR string to a tri-state value
func textOf(s string) opt.Text {
	if s == "" {
		return opt.Unset()
	}
	return opt.Of(s)
}

func appendString(exts fhir.Extensions, url, value string) fhir.Extensions {
	if value == "" {
		return exts
	}
	return append(exts, fhir.StringExtension(url, value))
}

func appendInt(exts fhir.Extensions, url string, value int) fhir.Extensions {
	if value <= 0 {
		return exts
	}
	return append(exts, fhir.IntegerExtension(url, value))
}

// dimensions renders the compact rows x columns x frames description
func dimensions(rows, cols, frames int) string {
	if rows <= 0 || cols <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%dx%d", rows, cols, frames)
}

// parseDimensions reads a compact description; unknown parts are zero
func parseDimensions(s string) (rows, cols, frames int) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	vals := make([]int, 3)
	for i := 0; i < len(parts) && i < 3; i++ {
		vals[i], _ = strconv.Atoi(strings.TrimSpace(parts[i]))
	}
	return vals[0], vals[1], vals[2]
}

func formatFrames(frames []int) string {
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = strconv.Itoa(f)
	}
	return strings.Join(parts, ",")
}

func parseFrames(s string) []int {
	if s == "" {
		return nil
	}
	var out []int
	for _, p := range strings.Split(s, ",") {
		if f, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// numeric reads the integer part of a NUM value such as "2" or "2.0"
func numeric(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}
