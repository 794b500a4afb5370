// Package tag defines the DICOM tags used by Key Object Selection manifests
package tag

import "github.com/jpfielding/mado.go/pkg/dicom/vr"

// Tag represents a DICOM tag with Group and Element
type Tag struct {
	Group   uint16
	Element uint16
}

// New creates a new Tag
func New(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// Equals compares two tags
func (t Tag) Equals(other Tag) bool {
	return t.Group == other.Group && t.Element == other.Element
}

// IsPrivate returns true if this is a private tag (odd group number)
func (t Tag) IsPrivate() bool {
	return t.Group%2 == 1
}

// IsGroup0002 returns true if this tag is in the File Meta Information group
func (t Tag) IsGroup0002() bool {
	return t.Group == 0x0002
}

// Less orders tags by group then element, the on-disk order
func (t Tag) Less(other Tag) bool {
	if t.Group != other.Group {
		return t.Group < other.Group
	}
	return t.Element < other.Element
}

// File Meta Information (Group 0002)
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	FileMetaInformationVersion     = Tag{0x0002, 0x0001}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
	ImplementationVersionName      = Tag{0x0002, 0x0013}
	SpecificCharacterSet           = Tag{0x0008, 0x0005}
)

// Patient Module
var (
	PatientName       = Tag{0x0010, 0x0010}
	PatientID         = Tag{0x0010, 0x0020}
	IssuerOfPatientID = Tag{0x0010, 0x0021}
	TypeOfPatientID   = Tag{0x0010, 0x0022}
	PatientBirthDate  = Tag{0x0010, 0x0030}
	PatientSex        = Tag{0x0010, 0x0040}
)

// General Study Module
var (
	StudyDate                       = Tag{0x0008, 0x0020}
	StudyTime                       = Tag{0x0008, 0x0030}
	AccessionNumber                 = Tag{0x0008, 0x0050}
	IssuerOfAccessionNumberSequence = Tag{0x0008, 0x0051}
	ReferringPhysicianName          = Tag{0x0008, 0x0090}
	StudyDescription                = Tag{0x0008, 0x1030}
	StudyInstanceUID                = Tag{0x0020, 0x000D}
	StudyID                         = Tag{0x0020, 0x0010}
)

// HL7v2 Hierarchic Designator Macro
var (
	LocalNamespaceEntityID = Tag{0x0040, 0x0031}
	UniversalEntityID      = Tag{0x0040, 0x0032}
	UniversalEntityIDType  = Tag{0x0040, 0x0033}
)

// Key Object Document Series Module
var (
	Modality                                 = Tag{0x0008, 0x0060}
	SeriesInstanceUID                        = Tag{0x0020, 0x000E}
	SeriesNumber                             = Tag{0x0020, 0x0011}
	SeriesDescription                        = Tag{0x0008, 0x103E}
	SeriesDate                               = Tag{0x0008, 0x0021}
	SeriesTime                               = Tag{0x0008, 0x0031}
	ReferencedPerformedProcedureStepSequence = Tag{0x0008, 0x1111}
)

// General Equipment Module
var (
	Manufacturer          = Tag{0x0008, 0x0070}
	InstitutionName       = Tag{0x0008, 0x0080}
	StationName           = Tag{0x0008, 0x1010}
	ManufacturerModelName = Tag{0x0008, 0x1090}
	DeviceSerialNumber    = Tag{0x0018, 0x1000}
	SoftwareVersions      = Tag{0x0018, 0x1020}
)

// SOP Common Module
var (
	SOPClassUID           = Tag{0x0008, 0x0016}
	SOPInstanceUID        = Tag{0x0008, 0x0018}
	InstanceCreationDate  = Tag{0x0008, 0x0012}
	InstanceCreationTime  = Tag{0x0008, 0x0013}
	TimezoneOffsetFromUTC = Tag{0x0008, 0x0201}
)

// Key Object Document Module
var (
	InstanceNumber = Tag{0x0020, 0x0013}
	ContentDate    = Tag{0x0008, 0x0023}
	ContentTime    = Tag{0x0008, 0x0033}

	ReferencedRequestSequence                 = Tag{0x0040, 0xA370}
	CurrentRequestedProcedureEvidenceSequence = Tag{0x0040, 0xA375}
	RequestedProcedureID                      = Tag{0x0040, 0x1001}
	RequestedProcedureDescription             = Tag{0x0032, 0x1060}
	PlacerOrderNumberImagingServiceRequest    = Tag{0x0040, 0x2016}
	FillerOrderNumberImagingServiceRequest    = Tag{0x0040, 0x2017}
)

// Hierarchical SOP Instance Reference Macro
var (
	ReferencedSeriesSequence = Tag{0x0008, 0x1115}
	ReferencedSOPSequence    = Tag{0x0008, 0x1199}
	ReferencedSOPClassUID    = Tag{0x0008, 0x1150}
	ReferencedSOPInstanceUID = Tag{0x0008, 0x1155}
	ReferencedFrameNumber    = Tag{0x0008, 0x1160}
	RetrieveAETitle          = Tag{0x0008, 0x0054}
	RetrieveURL              = Tag{0x0008, 0x1190}
	RetrieveLocationUID      = Tag{0x0040, 0xE011}
)

// Image Pixel attributes carried on evidence instances
var (
	Rows           = Tag{0x0028, 0x0010}
	Columns        = Tag{0x0028, 0x0011}
	NumberOfFrames = Tag{0x0028, 0x0008}
)

// SR Document Content Module
var (
	ValueType                       = Tag{0x0040, 0xA040}
	RelationshipType                = Tag{0x0040, 0xA010}
	ConceptNameCodeSequence         = Tag{0x0040, 0xA043}
	ConceptCodeSequence             = Tag{0x0040, 0xA168}
	TextValue                       = Tag{0x0040, 0xA160}
	UID                             = Tag{0x0040, 0xA124}
	PersonName                      = Tag{0x0040, 0xA123}
	MeasuredValueSequence           = Tag{0x0040, 0xA300}
	NumericValue                    = Tag{0x0040, 0xA30A}
	MeasurementUnitsCodeSequence    = Tag{0x0040, 0x08EA}
	ContentSequence                 = Tag{0x0040, 0xA730}
	ContinuityOfContent             = Tag{0x0040, 0xA050}
	ContentTemplateSequence         = Tag{0x0040, 0xA504}
	TemplateIdentifier              = Tag{0x0040, 0xDB00}
	MappingResource                 = Tag{0x0008, 0x0105}
	PurposeOfReferenceCodeSequence  = Tag{0x0040, 0xA170}
	CodeValue                       = Tag{0x0008, 0x0100}
	CodingSchemeDesignator          = Tag{0x0008, 0x0102}
	CodingSchemeVersion             = Tag{0x0008, 0x0103}
	CodeMeaning                     = Tag{0x0008, 0x0104}
	ObservationDateTime             = Tag{0x0040, 0xA032}
	ReferencedContentItemIdentifier = Tag{0x0040, 0xDB73}
)

// Sequence delimiters
var (
	Item                     = Tag{0xFFFE, 0xE000}
	ItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)

// Info is a dictionary entry
type Info struct {
	VR      vr.VR
	Keyword string
}

var dictionary = map[Tag]Info{
	FileMetaInformationGroupLength: {vr.UL, "FileMetaInformationGroupLength"},
	FileMetaInformationVersion:     {vr.OB, "FileMetaInformationVersion"},
	MediaStorageSOPClassUID:        {vr.UI, "MediaStorageSOPClassUID"},
	MediaStorageSOPInstanceUID:     {vr.UI, "MediaStorageSOPInstanceUID"},
	TransferSyntaxUID:              {vr.UI, "TransferSyntaxUID"},
	ImplementationClassUID:         {vr.UI, "ImplementationClassUID"},
	ImplementationVersionName:      {vr.SH, "ImplementationVersionName"},
	SpecificCharacterSet:           {vr.CS, "SpecificCharacterSet"},

	PatientName:       {vr.PN, "PatientName"},
	PatientID:         {vr.LO, "PatientID"},
	IssuerOfPatientID: {vr.LO, "IssuerOfPatientID"},
	TypeOfPatientID:   {vr.CS, "TypeOfPatientID"},
	PatientBirthDate:  {vr.DA, "PatientBirthDate"},
	PatientSex:        {vr.CS, "PatientSex"},

	StudyDate:                       {vr.DA, "StudyDate"},
	StudyTime:                       {vr.TM, "StudyTime"},
	AccessionNumber:                 {vr.SH, "AccessionNumber"},
	IssuerOfAccessionNumberSequence: {vr.SQ, "IssuerOfAccessionNumberSequence"},
	ReferringPhysicianName:          {vr.PN, "ReferringPhysicianName"},
	StudyDescription:                {vr.LO, "StudyDescription"},
	StudyInstanceUID:                {vr.UI, "StudyInstanceUID"},
	StudyID:                         {vr.SH, "StudyID"},

	LocalNamespaceEntityID: {vr.UT, "LocalNamespaceEntityID"},
	UniversalEntityID:      {vr.UT, "UniversalEntityID"},
	UniversalEntityIDType:  {vr.CS, "UniversalEntityIDType"},

	Modality:                                 {vr.CS, "Modality"},
	SeriesInstanceUID:                        {vr.UI, "SeriesInstanceUID"},
	SeriesNumber:                             {vr.IS, "SeriesNumber"},
	SeriesDescription:                        {vr.LO, "SeriesDescription"},
	SeriesDate:                               {vr.DA, "SeriesDate"},
	SeriesTime:                               {vr.TM, "SeriesTime"},
	ReferencedPerformedProcedureStepSequence: {vr.SQ, "ReferencedPerformedProcedureStepSequence"},

	Manufacturer:          {vr.LO, "Manufacturer"},
	InstitutionName:       {vr.LO, "InstitutionName"},
	StationName:           {vr.SH, "StationName"},
	ManufacturerModelName: {vr.LO, "ManufacturerModelName"},
	DeviceSerialNumber:    {vr.LO, "DeviceSerialNumber"},
	SoftwareVersions:      {vr.LO, "SoftwareVersions"},

	SOPClassUID:           {vr.UI, "SOPClassUID"},
	SOPInstanceUID:        {vr.UI, "SOPInstanceUID"},
	InstanceCreationDate:  {vr.DA, "InstanceCreationDate"},
	InstanceCreationTime:  {vr.TM, "InstanceCreationTime"},
	TimezoneOffsetFromUTC: {vr.SH, "TimezoneOffsetFromUTC"},

	InstanceNumber: {vr.IS, "InstanceNumber"},
	ContentDate:    {vr.DA, "ContentDate"},
	ContentTime:    {vr.TM, "ContentTime"},

	ReferencedRequestSequence:                 {vr.SQ, "ReferencedRequestSequence"},
	CurrentRequestedProcedureEvidenceSequence: {vr.SQ, "CurrentRequestedProcedureEvidenceSequence"},
	RequestedProcedureID:                      {vr.SH, "RequestedProcedureID"},
	RequestedProcedureDescription:             {vr.LO, "RequestedProcedureDescription"},
	PlacerOrderNumberImagingServiceRequest:    {vr.LO, "PlacerOrderNumberImagingServiceRequest"},
	FillerOrderNumberImagingServiceRequest:    {vr.LO, "FillerOrderNumberImagingServiceRequest"},

	ReferencedSeriesSequence: {vr.SQ, "ReferencedSeriesSequence"},
	ReferencedSOPSequence:    {vr.SQ, "ReferencedSOPSequence"},
	ReferencedSOPClassUID:    {vr.UI, "ReferencedSOPClassUID"},
	ReferencedSOPInstanceUID: {vr.UI, "ReferencedSOPInstanceUID"},
	ReferencedFrameNumber:    {vr.IS, "ReferencedFrameNumber"},
	RetrieveAETitle:          {vr.AE, "RetrieveAETitle"},
	RetrieveURL:              {vr.UR, "RetrieveURL"},
	RetrieveLocationUID:      {vr.UI, "RetrieveLocationUID"},

	Rows:           {vr.US, "Rows"},
	Columns:        {vr.US, "Columns"},
	NumberOfFrames: {vr.IS, "NumberOfFrames"},

	ValueType:                       {vr.CS, "ValueType"},
	RelationshipType:                {vr.CS, "RelationshipType"},
	ConceptNameCodeSequence:         {vr.SQ, "ConceptNameCodeSequence"},
	ConceptCodeSequence:             {vr.SQ, "ConceptCodeSequence"},
	TextValue:                       {vr.UT, "TextValue"},
	UID:                             {vr.UI, "UID"},
	PersonName:                      {vr.PN, "PersonName"},
	MeasuredValueSequence:           {vr.SQ, "MeasuredValueSequence"},
	NumericValue:                    {vr.DS, "NumericValue"},
	MeasurementUnitsCodeSequence:    {vr.SQ, "MeasurementUnitsCodeSequence"},
	ContentSequence:                 {vr.SQ, "ContentSequence"},
	ContinuityOfContent:             {vr.CS, "ContinuityOfContent"},
	ContentTemplateSequence:         {vr.SQ, "ContentTemplateSequence"},
	TemplateIdentifier:              {vr.CS, "TemplateIdentifier"},
	MappingResource:                 {vr.CS, "MappingResource"},
	PurposeOfReferenceCodeSequence:  {vr.SQ, "PurposeOfReferenceCodeSequence"},
	CodeValue:                       {vr.SH, "CodeValue"},
	CodingSchemeDesignator:          {vr.SH, "CodingSchemeDesignator"},
	CodingSchemeVersion:             {vr.SH, "CodingSchemeVersion"},
	CodeMeaning:                     {vr.LO, "CodeMeaning"},
	ObservationDateTime:             {vr.DT, "ObservationDateTime"},
	ReferencedContentItemIdentifier: {vr.UL, "ReferencedContentItemIdentifier"},
}

// Lookup returns the dictionary entry for a tag
func Lookup(t Tag) (Info, bool) {
	info, ok := dictionary[t]
	return info, ok
}

// VROf returns the dictionary VR for a tag, UN when unknown
func VROf(t Tag) vr.VR {
	if info, ok := dictionary[t]; ok {
		return info.VR
	}
	if t.Group == 0x0002 {
		return vr.UI
	}
	return vr.UN
}

// LookupName returns the DICOM keyword for known tags
func (t Tag) LookupName() string {
	return dictionary[t].Keyword
}
