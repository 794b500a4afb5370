package dicom

import (
	"fmt"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
)

// AttributeType represents DICOM attribute type requirements
type AttributeType int

const (
	// Type1 - Required, must have value
	Type1 AttributeType = 1
	// Type1C - Conditionally required, must have value if present
	Type1C AttributeType = 2
	// Type2 - Required, may be empty
	Type2 AttributeType = 3
	// Type2C - Conditionally required, may be empty if present
	Type2C AttributeType = 4
	// Type3 - Optional
	Type3 AttributeType = 5
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Tag        tag.Tag
	Type       AttributeType
	Message    string
	IsCritical bool // Type 1 and 1C violations are critical
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("(%04X,%04X) %s: %s", e.Tag.Group, e.Tag.Element, e.typeName(), e.Message)
}

func (e ValidationError) typeName() string {
	switch e.Type {
	case Type1:
		return "Type 1"
	case Type1C:
		return "Type 1C"
	case Type2:
		return "Type 2"
	case Type2C:
		return "Type 2C"
	case Type3:
		return "Type 3"
	default:
		return "Unknown"
	}
}

// ValidationResult contains all validation errors for a dataset
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no critical errors
func (r ValidationResult) IsValid() bool {
	for _, err := range r.Errors {
		if err.IsCritical {
			return false
		}
	}
	return true
}

// HasErrors returns true if there are any errors
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any warnings
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// IODRequirement defines a required attribute for an IOD
type IODRequirement struct {
	Tag       tag.Tag
	Type      AttributeType
	Condition func(*Dataset) bool // For Type 1C/2C, returns true if attribute is required
}

// ValidateDataset validates a dataset against a set of requirements
func ValidateDataset(ds *Dataset, requirements []IODRequirement) ValidationResult {
	result := ValidationResult{}

	for _, req := range requirements {
		elem, exists := ds.FindElement(req.Tag.Group, req.Tag.Element)

		switch req.Type {
		case Type1:
			if !exists {
				result.Errors = append(result.Errors, ValidationError{
					Tag:        req.Tag,
					Type:       Type1,
					Message:    "Required attribute missing",
					IsCritical: true,
				})
			} else if elem.IsEmpty() {
				result.Errors = append(result.Errors, ValidationError{
					Tag:        req.Tag,
					Type:       Type1,
					Message:    "Required attribute is empty",
					IsCritical: true,
				})
			}

		case Type1C:
			if req.Condition != nil && req.Condition(ds) {
				if !exists {
					result.Errors = append(result.Errors, ValidationError{
						Tag:        req.Tag,
						Type:       Type1C,
						Message:    "Conditionally required attribute missing",
						IsCritical: true,
					})
				} else if elem.IsEmpty() {
					result.Errors = append(result.Errors, ValidationError{
						Tag:        req.Tag,
						Type:       Type1C,
						Message:    "Conditionally required attribute is empty",
						IsCritical: true,
					})
				}
			}

		case Type2:
			if !exists {
				result.Warnings = append(result.Warnings, ValidationError{
					Tag:        req.Tag,
					Type:       Type2,
					Message:    "Required attribute missing (may be empty)",
					IsCritical: false,
				})
			}

		case Type2C:
			if req.Condition != nil && req.Condition(ds) && !exists {
				result.Warnings = append(result.Warnings, ValidationError{
					Tag:        req.Tag,
					Type:       Type2C,
					Message:    "Conditionally required attribute missing (may be empty)",
					IsCritical: false,
				})
			}

		case Type3:
			// Optional - no validation needed
		}
	}

	return result
}

// Key Object Selection Document IOD requirements (PS3.3 A.35.4)

// PatientModuleRequirements defines required attributes for Patient Module
var PatientModuleRequirements = []IODRequirement{
	{Tag: tag.PatientName, Type: Type2},
	{Tag: tag.PatientID, Type: Type2},
	{Tag: tag.PatientBirthDate, Type: Type2},
	{Tag: tag.PatientSex, Type: Type2},
}

// GeneralStudyModuleRequirements defines required attributes for General Study Module
var GeneralStudyModuleRequirements = []IODRequirement{
	{Tag: tag.StudyInstanceUID, Type: Type1},
	{Tag: tag.StudyDate, Type: Type2},
	{Tag: tag.StudyTime, Type: Type2},
	{Tag: tag.ReferringPhysicianName, Type: Type2},
	{Tag: tag.StudyID, Type: Type2},
	{Tag: tag.AccessionNumber, Type: Type2},
}

// KeyObjectDocumentSeriesRequirements defines required attributes for the Key Object Document Series Module
var KeyObjectDocumentSeriesRequirements = []IODRequirement{
	{Tag: tag.Modality, Type: Type1},
	{Tag: tag.SeriesInstanceUID, Type: Type1},
	{Tag: tag.SeriesNumber, Type: Type1},
	{Tag: tag.ReferencedPerformedProcedureStepSequence, Type: Type2},
}

// GeneralEquipmentModuleRequirements defines required attributes for General Equipment Module
var GeneralEquipmentModuleRequirements = []IODRequirement{
	{Tag: tag.Manufacturer, Type: Type2},
}

// KeyObjectDocumentRequirements defines required attributes for the Key Object Document Module
var KeyObjectDocumentRequirements = []IODRequirement{
	{Tag: tag.InstanceNumber, Type: Type1},
	{Tag: tag.ContentDate, Type: Type1},
	{Tag: tag.ContentTime, Type: Type1},
	{Tag: tag.CurrentRequestedProcedureEvidenceSequence, Type: Type1},
	{Tag: tag.ReferencedRequestSequence, Type: Type1C, Condition: func(ds *Dataset) bool {
		// Required when the manifest was created for an identified order
		return ds.GetString(tag.AccessionNumber) != ""
	}},
}

// SRDocumentContentRequirements defines required attributes for the root content item
var SRDocumentContentRequirements = []IODRequirement{
	{Tag: tag.ValueType, Type: Type1},
	{Tag: tag.ConceptNameCodeSequence, Type: Type1},
	{Tag: tag.ContinuityOfContent, Type: Type1},
	{Tag: tag.ContentTemplateSequence, Type: Type1},
	{Tag: tag.ContentSequence, Type: Type1},
}

// SOPCommonModuleRequirements defines required attributes for SOP Common Module
var SOPCommonModuleRequirements = []IODRequirement{
	{Tag: tag.SOPClassUID, Type: Type1},
	{Tag: tag.SOPInstanceUID, Type: Type1},
}

// KeyObjectSelectionRequirements combines all requirements for the KOS IOD
var KeyObjectSelectionRequirements = concatRequirements(
	PatientModuleRequirements,
	GeneralStudyModuleRequirements,
	KeyObjectDocumentSeriesRequirements,
	GeneralEquipmentModuleRequirements,
	KeyObjectDocumentRequirements,
	SRDocumentContentRequirements,
	SOPCommonModuleRequirements,
)

func concatRequirements(groups ...[]IODRequirement) []IODRequirement {
	var all []IODRequirement
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

// ValidateKeyObjectSelection validates a KOS dataset against its IOD attribute types
func ValidateKeyObjectSelection(ds *Dataset) ValidationResult {
	return ValidateDataset(ds, KeyObjectSelectionRequirements)
}

// QuickValidate performs basic structural validation of a DICOM dataset.
//
// Checks:
//   - SOP Class UID and SOP Instance UID present
//   - Transfer Syntax UID present
func QuickValidate(ds *Dataset) []error {
	var errs []error
	if !HasElement(ds, tag.SOPClassUID) {
		errs = append(errs, fmt.Errorf("missing required element: SOP Class UID %v", tag.SOPClassUID))
	}
	if !HasElement(ds, tag.SOPInstanceUID) {
		errs = append(errs, fmt.Errorf("missing required element: SOP Instance UID %v", tag.SOPInstanceUID))
	}
	if !HasElement(ds, tag.TransferSyntaxUID) {
		errs = append(errs, fmt.Errorf("missing required element: Transfer Syntax UID %v", tag.TransferSyntaxUID))
	}
	return errs
}
