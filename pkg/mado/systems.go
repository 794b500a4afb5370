package mado

import (
	"strings"

	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/fhir"
	"github.com/jpfielding/mado.go/pkg/sr"
)

// FHIR code systems and identifier systems
const (
	SystemDCM        = "http://dicom.nema.org/resources/ontology/DCM"
	SystemSCT        = "http://snomed.info/sct"
	SystemSRT        = "http://snomed.info/srt"
	SystemLOINC      = "http://loinc.org"
	SystemUCUM       = "http://unitsofmeasure.org"
	SystemURI        = "urn:ietf:rfc:3986"
	SystemDICOMUID   = "urn:dicom:uid"
	SystemV2ID       = "http://terminology.hl7.org/CodeSystem/v2-0203"
	SystemConnection = "http://terminology.hl7.org/CodeSystem/endpoint-connection-type"
)

// LOINC document type of an imaging manifest
var manifestDocumentType = fhir.NewCoding(SystemLOINC, "18748-4", "Diagnostic imaging study")

var schemeSystems = map[string]string{
	sr.SchemeDCM:  SystemDCM,
	sr.SchemeSCT:  SystemSCT,
	sr.SchemeSRT:  SystemSRT,
	sr.SchemeLN:   SystemLOINC,
	sr.SchemeUCUM: SystemUCUM,
}

var systemSchemes = func() map[string]string {
	m := make(map[string]string, len(schemeSystems))
	for scheme, system := range schemeSystems {
		m[system] = scheme
	}
	return m
}()

// SystemFor returns the FHIR system of a coding scheme designator. Unknown schemes
// pass through unchanged.
func SystemFor(scheme string) string {
	if s, ok := schemeSystems[scheme]; ok {
		return s
	}
	return scheme
}

// SchemeFor is the inverse of SystemFor
func SchemeFor(system string) string {
	if s, ok := systemSchemes[system]; ok {
		return s
	}
	return system
}

// coding converts a content tree code
func coding(c sr.Code) r4.Coding {
	return fhir.NewCoding(SystemFor(c.Scheme), c.Value, c.Meaning)
}

// codeOf converts a coding back into a content tree code
func codeOf(c r4.Coding) sr.Code {
	return sr.Code{Value: fhir.Val(c.Code), Scheme: SchemeFor(fhir.Val(c.System)), Meaning: fhir.Val(c.Display)}
}

var modalityNames = map[string]string{
	"CR": "Computed Radiography",
	"CT": "Computed Tomography",
	"DX": "Digital Radiography",
	"IO": "Intra-oral Radiography",
	"KO": "Key Object Selection",
	"MG": "Mammography",
	"MR": "Magnetic Resonance",
	"NM": "Nuclear Medicine",
	"OT": "Other",
	"PR": "Presentation State",
	"PT": "Positron emission tomography",
	"RF": "Radio Fluoroscopy",
	"SC": "Secondary Capture",
	"SR": "SR Document",
	"US": "Ultrasound",
	"XA": "X-Ray Angiography",
}

// modalityCode returns the DCM code of a modality, named from the table when known
func modalityCode(modality string) sr.Code {
	return sr.Code{Value: modality, Scheme: sr.SchemeDCM, Meaning: modalityNames[modality]}
}

// sopClassDisplay names a SOP Class, "" when the class is not in the dictionary
func sopClassDisplay(uid string) string {
	if name := dicom.SOPClassName(uid); name != uid {
		return name
	}
	return ""
}

func oidURN(uid string) string {
	if uid == "" {
		return ""
	}
	return "urn:oid:" + uid
}

func fromOIDURN(s string) string {
	return strings.TrimPrefix(s, "urn:oid:")
}
