// Package kostest builds Key Object Selection fixtures for tests
package kostest

import (
	"strconv"

	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/kos"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/jpfielding/mado.go/pkg/sr"
)

// Fixture identifiers
const (
	CTImageStorage = dicom.CTImageStorageUID
	StudyUID       = "1.2.826.0.1.3680043.8.498.10"
	SeriesUID      = "1.2.826.0.1.3680043.8.498.11"
	InstanceUID1   = "1.2.826.0.1.3680043.8.498.11.1"
	InstanceUID2   = "1.2.826.0.1.3680043.8.498.11.2"
	ManifestUID    = "1.2.826.0.1.3680043.8.498.20"
	ManifestSeries = "1.2.826.0.1.3680043.8.498.21"
	PatientID      = "PAT-001"
	PatientIssuer  = "1.2.3.4.5.6"
	WadoBase       = "https://pacs.example.org/dicom-web"
	RetrieveURL    = WadoBase + "/studies/" + StudyUID + "/series/" + SeriesUID
)

// ChestSRT is the legacy regional code for the chest
var ChestSRT = sr.Code{Value: "T-D3000", Scheme: sr.SchemeSRT, Meaning: "Chest"}

// Manifest returns a one study, one CT series, two instance manifest with an image library
func Manifest() *kos.Manifest {
	return &kos.Manifest{
		Meta: kos.Metadata{
			SOPClassUID:             dicom.KeyObjectSelectionStorageUID,
			SOPInstanceUID:          ManifestUID,
			PatientID:               opt.Of(PatientID),
			IssuerOfPatientID:       opt.Of(PatientIssuer),
			TypeOfPatientID:         opt.Of("TEXT"),
			PatientName:             opt.Of("Doe^Jane"),
			PatientBirthDate:        opt.Of("19700101"),
			PatientSex:              opt.Of("F"),
			StudyInstanceUID:        StudyUID,
			AccessionNumber:         opt.Of("ACC-1"),
			IssuerOfAccessionNumber: opt.Of("HOSP"),
			StudyDate:               opt.Of("20240102"),
			StudyTime:               opt.Of("101500"),
			StudyDescription:        opt.Of("CT Chest"),
			StudyID:                 opt.Of("S1"),
			ReferringPhysicianName:  opt.Of("Smith^John"),
			SeriesInstanceUID:       ManifestSeries,
			SeriesNumber:            99,
			SeriesDate:              opt.Of("20240102"),
			SeriesTime:              opt.Of("103000"),
			InstanceNumber:          1,
			ContentDate:             opt.Of("20240102"),
			ContentTime:             opt.Of("103000"),
			TimezoneOffset:          opt.Of("+0100"),
			Manufacturer:            opt.Of("ACME"),
			SoftwareVersions:        opt.Of("1.0"),
			InstitutionName:         opt.Of("General Hospital"),
			Title:                   sr.Manifest,
			TargetRegion:            &ChestSRT,
			Requests: []kos.Request{{
				StudyInstanceUID:        StudyUID,
				AccessionNumber:         opt.Of("ACC-1"),
				IssuerOfAccessionNumber: opt.Of("HOSP"),
			}},
		},
		Root: sr.NewContainer("", sr.Manifest,
			sr.NewText(sr.Contains, sr.KeyObjectDescription, "Manifest for CT Chest"),
			sr.NewCode(sr.Contains, sr.TargetRegion, ChestSRT),
			sr.NewContainer(sr.Contains, sr.ImageLibrary,
				sr.NewContainer(sr.Contains, sr.ImageLibraryGroup,
					sr.NewCode(sr.HasAcqContext, sr.Modality, sr.Code{Value: "CT", Scheme: sr.SchemeDCM, Meaning: "Computed Tomography"}),
					sr.NewUIDRef(sr.HasAcqContext, sr.SeriesInstanceUID, SeriesUID),
					sr.NewText(sr.HasAcqContext, sr.SeriesDescription, "Axial 5mm"),
					sr.NewNum(sr.HasAcqContext, sr.SeriesNumber, "2", sr.NoUnits),
					Image(InstanceUID1, 1, 1),
					Image(InstanceUID2, 2, 1),
				),
			),
		),
		Evidence: kos.Evidence{Studies: []*kos.EvidenceStudy{{
			StudyInstanceUID: StudyUID,
			Series: []*kos.EvidenceSeries{{
				SeriesInstanceUID: SeriesUID,
				Modality:          "CT",
				RetrieveURL:       RetrieveURL,
				RetrieveAETitle:   "PACS_AE",
				Instances: []*kos.EvidenceInstance{
					{SOPClassUID: CTImageStorage, SOPInstanceUID: InstanceUID1, Rows: 512, Columns: 512, NumberOfFrames: 1},
					{SOPClassUID: CTImageStorage, SOPInstanceUID: InstanceUID2, Rows: 512, Columns: 512, NumberOfFrames: 1},
				},
			}},
		}}},
	}
}

// Image returns an image library entry with its instance number and frame count
func Image(instanceUID string, number, frames int) *sr.Node {
	return sr.NewImage(sr.Contains, nil, sr.SOPRef{ClassUID: CTImageStorage, InstanceUID: instanceUID}).Add(
		sr.NewNum(sr.HasAcqContext, sr.InstanceNumber, strconv.Itoa(number), sr.NoUnits),
		sr.NewNum(sr.HasAcqContext, sr.NumberOfFrames, strconv.Itoa(frames), sr.NoUnits),
	)
}

// KeyImage returns a key image designation referencing one instance
func KeyImage(designation sr.Code, instanceUID string) *sr.Node {
	return sr.NewImage(sr.Contains, &designation, sr.SOPRef{ClassUID: CTImageStorage, InstanceUID: instanceUID})
}

// Dataset renders Manifest as a dataset
func Dataset() (*dicom.Dataset, error) {
	return Manifest().Dataset()
}
