// Package dicom provides the DICOM dataset model used to read and write Key Object
// Selection manifests.
//
// This package provides:
//   - Part 10 parsing and writing (explicit and implicit VR little endian, nested sequences)
//   - Functional dataset builders and a sequence builder
//   - IOD module structs (see the module sub-package) and attribute type checks
//
// Basic usage:
//
//	// Read a manifest
//	ds, err := dicom.ReadFile("/path/to/manifest.dcm")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if dicom.IsKeyObjectSelection(ds) {
//		items := ds.Sequence(tag.ContentSequence)
//		...
//	}
package dicom

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/dicom/transfer"
)

// Re-export commonly used types from subpackages
type (
	// TransferSyntax represents a DICOM transfer syntax
	TransferSyntax = transfer.Syntax
)

// Transfer syntax constants
const (
	ExplicitVRLittleEndian = transfer.ExplicitVRLittleEndian
	ImplicitVRLittleEndian = transfer.ImplicitVRLittleEndian
)

// SOP Class UIDs
const (
	KeyObjectSelectionStorageUID = "1.2.840.10008.5.1.4.1.1.88.59"

	CTImageStorageUID               = "1.2.840.10008.5.1.4.1.1.2"
	EnhancedCTImageStorageUID       = "1.2.840.10008.5.1.4.1.1.2.1"
	MRImageStorageUID               = "1.2.840.10008.5.1.4.1.1.4"
	EnhancedMRImageStorageUID       = "1.2.840.10008.5.1.4.1.1.4.1"
	CRImageStorageUID               = "1.2.840.10008.5.1.4.1.1.1"
	DXImageStorageUID               = "1.2.840.10008.5.1.4.1.1.1.1"
	MGImageStorageUID               = "1.2.840.10008.5.1.4.1.1.1.2"
	USImageStorageUID               = "1.2.840.10008.5.1.4.1.1.6.1"
	USMultiframeImageStorageUID     = "1.2.840.10008.5.1.4.1.1.3.1"
	SecondaryCaptureImageStorageUID = "1.2.840.10008.5.1.4.1.1.7"
	XAImageStorageUID               = "1.2.840.10008.5.1.4.1.1.12.1"
	NMImageStorageUID               = "1.2.840.10008.5.1.4.1.1.20"
	PETImageStorageUID              = "1.2.840.10008.5.1.4.1.1.128"
	BasicTextSRStorageUID           = "1.2.840.10008.5.1.4.1.1.88.11"
	EnhancedSRStorageUID            = "1.2.840.10008.5.1.4.1.1.88.22"
	ComprehensiveSRStorageUID       = "1.2.840.10008.5.1.4.1.1.88.33"
	EncapsulatedPDFStorageUID       = "1.2.840.10008.5.1.4.1.1.104.1"
	TwelveLeadECGStorageUID         = "1.2.840.10008.5.1.4.1.1.9.1.1"
)

var sopClassNames = map[string]string{
	KeyObjectSelectionStorageUID:    "Key Object Selection Document Storage",
	CTImageStorageUID:               "CT Image Storage",
	EnhancedCTImageStorageUID:       "Enhanced CT Image Storage",
	MRImageStorageUID:               "MR Image Storage",
	EnhancedMRImageStorageUID:       "Enhanced MR Image Storage",
	CRImageStorageUID:               "Computed Radiography Image Storage",
	DXImageStorageUID:               "Digital X-Ray Image Storage - For Presentation",
	MGImageStorageUID:               "Digital Mammography X-Ray Image Storage - For Presentation",
	USImageStorageUID:               "Ultrasound Image Storage",
	USMultiframeImageStorageUID:     "Ultrasound Multi-frame Image Storage",
	SecondaryCaptureImageStorageUID: "Secondary Capture Image Storage",
	XAImageStorageUID:               "X-Ray Angiographic Image Storage",
	NMImageStorageUID:               "Nuclear Medicine Image Storage",
	PETImageStorageUID:              "Positron Emission Tomography Image Storage",
	BasicTextSRStorageUID:           "Basic Text SR Storage",
	EnhancedSRStorageUID:            "Enhanced SR Storage",
	ComprehensiveSRStorageUID:       "Comprehensive SR Storage",
	EncapsulatedPDFStorageUID:       "Encapsulated PDF Storage",
	TwelveLeadECGStorageUID:         "12-lead ECG Waveform Storage",
}

// SOPClassName returns the registered name of a SOP Class, or the UID itself
func SOPClassName(uid string) string {
	if name, ok := sopClassNames[uid]; ok {
		return name
	}
	return uid
}

// ReadFile reads a DICOM file from disk
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return Parse(bytes.NewReader(data))
}

// ReadBuffer reads a DICOM file from a byte slice
func ReadBuffer(data []byte) (*Dataset, error) {
	return Parse(bytes.NewReader(data))
}

// IsKeyObjectSelection returns true if the dataset is a KOS document
func IsKeyObjectSelection(ds *Dataset) bool {
	return checkSOPClass(ds, KeyObjectSelectionStorageUID)
}

// GetSOPClassUID returns the SOP Class UID, falling back to the file meta copy
func GetSOPClassUID(ds *Dataset) string {
	if s := ds.GetString(tag.SOPClassUID); s != "" {
		return s
	}
	return ds.GetString(tag.MediaStorageSOPClassUID)
}

// GetModality returns the modality string from the dataset
func GetModality(ds *Dataset) string {
	return ds.GetString(tag.Modality)
}

// GetTransferSyntax returns the transfer syntax from the dataset
func GetTransferSyntax(ds *Dataset) TransferSyntax {
	if s := ds.GetString(tag.TransferSyntaxUID); s != "" {
		return transfer.FromUID(s)
	}
	return ExplicitVRLittleEndian // Default
}

// Helper function to check SOP Class UID
func checkSOPClass(ds *Dataset, uids ...string) bool {
	s := strings.TrimSpace(GetSOPClassUID(ds))
	for _, uid := range uids {
		if s == uid {
			return true
		}
	}
	return false
}
