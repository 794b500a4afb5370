package kos

import (
	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/dicom/module"
	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/jpfielding/mado.go/pkg/sr"
)

// Request is one Referenced Request Sequence entry, one per order the manifest fulfils
type Request = module.ReferencedRequest

// Metadata is the flat header of a manifest. Fields that must survive a round trip
// with their absent/empty distinction intact are tri-state.
type Metadata struct {
	SOPClassUID    string
	SOPInstanceUID string

	PatientID         opt.Text
	IssuerOfPatientID opt.Text
	TypeOfPatientID   opt.Text
	PatientName       opt.Text
	PatientBirthDate  opt.Text
	PatientSex        opt.Text

	StudyInstanceUID        string
	AccessionNumber         opt.Text
	IssuerOfAccessionNumber opt.Text
	StudyDate               opt.Text
	StudyTime               opt.Text
	StudyDescription        opt.Text
	StudyID                 opt.Text
	ReferringPhysicianName  opt.Text

	SeriesInstanceUID string
	SeriesNumber      int
	SeriesDate        opt.Text
	SeriesTime        opt.Text
	SeriesDescription opt.Text
	InstanceNumber    int
	ContentDate       opt.Text
	ContentTime       opt.Text
	TimezoneOffset    opt.Text

	Manufacturer      opt.Text
	ManufacturerModel opt.Text
	SoftwareVersions  opt.Text
	InstitutionName   opt.Text

	// Title is the document title, the root concept name
	Title sr.Code
	// TargetRegion is the code payload of the Target Region item, nil when absent
	TargetRegion *sr.Code

	Requests []Request
}

// ContentDateTime renders content date, time and timezone as ISO 8601
func (m Metadata) ContentDateTime() string {
	return module.DateTime(m.ContentDate.String(), m.ContentTime.String(), m.TimezoneOffset.String())
}

// SeriesDateTime renders series date, time and timezone as ISO 8601
func (m Metadata) SeriesDateTime() string {
	return module.DateTime(m.SeriesDate.String(), m.SeriesTime.String(), m.TimezoneOffset.String())
}

// StudyDateTime renders study date, time and timezone as ISO 8601
func (m Metadata) StudyDateTime() string {
	return module.DateTime(m.StudyDate.String(), m.StudyTime.String(), m.TimezoneOffset.String())
}

// extractMetadata reads header attributes; root is the already parsed content tree
func extractMetadata(ds *dicom.Dataset, root *sr.Node) Metadata {
	m := Metadata{
		SOPClassUID:    dicom.GetSOPClassUID(ds),
		SOPInstanceUID: dicom.GetSOPInstanceUID(ds),

		PatientID:         ds.Text(tag.PatientID),
		IssuerOfPatientID: ds.Text(tag.IssuerOfPatientID),
		TypeOfPatientID:   ds.Text(tag.TypeOfPatientID),
		PatientName:       ds.Text(tag.PatientName),
		PatientBirthDate:  ds.Text(tag.PatientBirthDate),
		PatientSex:        ds.Text(tag.PatientSex),

		StudyInstanceUID:        ds.GetString(tag.StudyInstanceUID),
		AccessionNumber:         ds.Text(tag.AccessionNumber),
		IssuerOfAccessionNumber: issuer(ds, tag.IssuerOfAccessionNumberSequence),
		StudyDate:               ds.Text(tag.StudyDate),
		StudyTime:               ds.Text(tag.StudyTime),
		StudyDescription:        ds.Text(tag.StudyDescription),
		StudyID:                 ds.Text(tag.StudyID),
		ReferringPhysicianName:  ds.Text(tag.ReferringPhysicianName),

		SeriesInstanceUID: ds.GetString(tag.SeriesInstanceUID),
		SeriesDate:        ds.Text(tag.SeriesDate),
		SeriesTime:        ds.Text(tag.SeriesTime),
		SeriesDescription: ds.Text(tag.SeriesDescription),
		ContentDate:       ds.Text(tag.ContentDate),
		ContentTime:       ds.Text(tag.ContentTime),
		TimezoneOffset:    ds.Text(tag.TimezoneOffsetFromUTC),

		Manufacturer:      ds.Text(tag.Manufacturer),
		ManufacturerModel: ds.Text(tag.ManufacturerModelName),
		SoftwareVersions:  ds.Text(tag.SoftwareVersions),
		InstitutionName:   ds.Text(tag.InstitutionName),
	}
	m.SeriesNumber, _ = ds.Int(tag.SeriesNumber)
	m.InstanceNumber, _ = ds.Int(tag.InstanceNumber)

	if root != nil {
		if root.ConceptName != nil {
			m.Title = *root.ConceptName
		}
		if region := root.FindNamed(sr.TargetRegion); region != nil {
			if c, ok := region.Code(); ok {
				m.TargetRegion = &c
			}
		}
	}

	for _, item := range ds.Sequence(tag.ReferencedRequestSequence) {
		m.Requests = append(m.Requests, Request{
			StudyInstanceUID:              item.GetString(tag.StudyInstanceUID),
			AccessionNumber:               item.Text(tag.AccessionNumber),
			IssuerOfAccessionNumber:       issuer(item, tag.IssuerOfAccessionNumberSequence),
			RequestedProcedureID:          item.Text(tag.RequestedProcedureID),
			RequestedProcedureDescription: item.Text(tag.RequestedProcedureDescription),
			PlacerOrderNumber:             item.Text(tag.PlacerOrderNumberImagingServiceRequest),
			FillerOrderNumber:             item.Text(tag.FillerOrderNumberImagingServiceRequest),
		})
	}
	return m
}

// issuer reads an HL7v2 hierarchic designator, preferring the universal entity ID
func issuer(ds *dicom.Dataset, t tag.Tag) opt.Text {
	items := ds.Sequence(t)
	if len(items) == 0 {
		return opt.Unset()
	}
	if u := items[0].Text(tag.UniversalEntityID); u.IsPresent() {
		return u
	}
	return items[0].Text(tag.LocalNamespaceEntityID)
}
