// Package kos extracts Key Object Selection manifests from DICOM datasets and renders
// them back. A Manifest is the header metadata, the content tree and the evidence
// hierarchy; both mapping directions and the validator work on this shape.
package kos

import (
	"errors"
	"fmt"

	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/dicom/module"
	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/jpfielding/mado.go/pkg/sr"
)

// ErrUnsupportedDocument is returned when a dataset is not a Key Object Selection document
var ErrUnsupportedDocument = errors.New("unsupported document type")

// Manifest is a parsed Key Object Selection document
type Manifest struct {
	Meta     Metadata
	Root     *sr.Node
	Evidence Evidence
}

// Extract reads a manifest, failing with ErrUnsupportedDocument for any SOP Class
// other than Key Object Selection Document Storage
func Extract(ds *dicom.Dataset) (*Manifest, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: no dataset", ErrUnsupportedDocument)
	}
	if !dicom.IsKeyObjectSelection(ds) {
		return nil, fmt.Errorf("%w: SOP Class %q is not %s", ErrUnsupportedDocument,
			dicom.GetSOPClassUID(ds), dicom.SOPClassName(dicom.KeyObjectSelectionStorageUID))
	}
	return Parse(ds), nil
}

// Parse reads a manifest without checking the SOP Class
func Parse(ds *dicom.Dataset) *Manifest {
	root := sr.ParseRoot(ds)
	return &Manifest{
		Meta:     extractMetadata(ds, root),
		Root:     root,
		Evidence: parseEvidence(ds),
	}
}

// ReadFile reads and extracts a manifest from a Part 10 file
func ReadFile(path string) (*Manifest, error) {
	ds, err := dicom.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Extract(ds)
}

// Dataset renders the manifest as a Key Object Selection dataset with file meta
func (m *Manifest) Dataset() (*dicom.Dataset, error) {
	meta := m.Meta
	sopClass := meta.SOPClassUID
	if sopClass == "" {
		sopClass = dicom.KeyObjectSelectionStorageUID
	}

	patient := module.PatientModule{
		PatientName:       meta.PatientName,
		PatientID:         meta.PatientID,
		IssuerOfPatientID: meta.IssuerOfPatientID,
		TypeOfPatientID:   meta.TypeOfPatientID,
		PatientBirthDate:  meta.PatientBirthDate,
		PatientSex:        meta.PatientSex,
	}
	study := module.GeneralStudyModule{
		StudyInstanceUID:        meta.StudyInstanceUID,
		StudyDate:               meta.StudyDate,
		StudyTime:               meta.StudyTime,
		ReferringPhysicianName:  meta.ReferringPhysicianName,
		StudyID:                 meta.StudyID,
		AccessionNumber:         meta.AccessionNumber,
		IssuerOfAccessionNumber: meta.IssuerOfAccessionNumber,
		StudyDescription:        meta.StudyDescription,
	}
	series := module.KeyObjectDocumentSeriesModule{
		SeriesInstanceUID: meta.SeriesInstanceUID,
		SeriesNumber:      meta.SeriesNumber,
		SeriesDate:        meta.SeriesDate,
		SeriesTime:        meta.SeriesTime,
		SeriesDescription: meta.SeriesDescription,
	}
	equipment := module.GeneralEquipmentModule{
		Manufacturer:      meta.Manufacturer,
		InstitutionName:   meta.InstitutionName,
		ManufacturerModel: meta.ManufacturerModel,
		SoftwareVersions:  meta.SoftwareVersions,
	}
	document := module.KeyObjectDocumentModule{
		InstanceNumber:     meta.InstanceNumber,
		ContentDate:        meta.ContentDate,
		ContentTime:        meta.ContentTime,
		ReferencedRequests: meta.Requests,
	}
	content := module.SRDocumentContentModule{Title: sr.ModuleCode(meta.Title)}
	sop := module.SOPCommonModule{
		SOPClassUID:           sopClass,
		SOPInstanceUID:        meta.SOPInstanceUID,
		SpecificCharacterSet:  "ISO_IR 192",
		InstanceCreationDate:  meta.ContentDate,
		InstanceCreationTime:  meta.ContentTime,
		TimezoneOffsetFromUTC: meta.TimezoneOffset,
	}

	evidence, err := m.Evidence.option()
	if err != nil {
		return nil, fmt.Errorf("evidence: %w", err)
	}
	var children []*sr.Node
	if m.Root != nil {
		children = m.Root.Children
	}
	items, err := sr.EncodeContent(children)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}

	return dicom.NewDataset(
		dicom.WithFileMeta(sopClass, meta.SOPInstanceUID, dicom.ExplicitVRLittleEndian),
		dicom.WithModule(patient.ToTags()),
		dicom.WithModule(study.ToTags()),
		dicom.WithModule(series.ToTags()),
		dicom.WithModule(equipment.ToTags()),
		dicom.WithModule(document.ToTags()),
		dicom.WithModule(content.ToTags()),
		dicom.WithModule(sop.ToTags()),
		evidence,
		dicom.WithSequence(tag.ContentSequence, items...),
	)
}

// WriteFile renders the manifest and writes it as a Part 10 file
func (m *Manifest) WriteFile(path string) (int64, error) {
	ds, err := m.Dataset()
	if err != nil {
		return 0, err
	}
	return dicom.WriteFile(path, ds)
}

// KeyObjectDescription returns the text of the first root-level description item
func (m *Manifest) KeyObjectDescription() opt.Text {
	if m.Root == nil {
		return opt.Unset()
	}
	if n := m.Root.Child(sr.KeyObjectDescription); n != nil {
		return n.TextValue
	}
	return opt.Unset()
}
