package kos

import (
	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/dicom/vr"
)

// Evidence is the Current Requested Procedure Evidence hierarchy: every instance the
// manifest claims to reference, grouped Study → Series → SOP Instance
type Evidence struct {
	Studies []*EvidenceStudy
}

// EvidenceStudy is one study of the evidence hierarchy
type EvidenceStudy struct {
	StudyInstanceUID string
	Series           []*EvidenceSeries
}

// EvidenceSeries is one series with its retrieval descriptors
type EvidenceSeries struct {
	SeriesInstanceUID   string
	Modality            string
	RetrieveURL         string
	RetrieveAETitle     string
	RetrieveLocationUID string
	Instances           []*EvidenceInstance
}

// EvidenceInstance is one referenced SOP instance. Zero numeric fields are unknown.
type EvidenceInstance struct {
	SOPClassUID    string
	SOPInstanceUID string
	InstanceNumber int
	Rows           int
	Columns        int
	NumberOfFrames int
}

// Location pins an instance inside the hierarchy
type Location struct {
	Study    *EvidenceStudy
	Series   *EvidenceSeries
	Instance *EvidenceInstance
}

// Find returns the location of a SOP instance UID
func (e Evidence) Find(sopInstanceUID string) (Location, bool) {
	for _, study := range e.Studies {
		for _, series := range study.Series {
			for _, inst := range series.Instances {
				if inst.SOPInstanceUID == sopInstanceUID {
					return Location{Study: study, Series: series, Instance: inst}, true
				}
			}
		}
	}
	return Location{}, false
}

// InstanceUIDs returns the set of every SOP instance UID in the hierarchy
func (e Evidence) InstanceUIDs() map[string]struct{} {
	uids := map[string]struct{}{}
	e.Each(func(_ *EvidenceStudy, _ *EvidenceSeries, inst *EvidenceInstance) {
		uids[inst.SOPInstanceUID] = struct{}{}
	})
	return uids
}

// Each visits every instance in hierarchy order
func (e Evidence) Each(fn func(*EvidenceStudy, *EvidenceSeries, *EvidenceInstance)) {
	for _, study := range e.Studies {
		for _, series := range study.Series {
			for _, inst := range series.Instances {
				fn(study, series, inst)
			}
		}
	}
}

// Counts returns the number of studies, series and instances
func (e Evidence) Counts() (studies, series, instances int) {
	for _, study := range e.Studies {
		studies++
		for _, s := range study.Series {
			series++
			instances += len(s.Instances)
		}
	}
	return studies, series, instances
}

func parseEvidence(ds *dicom.Dataset) Evidence {
	var e Evidence
	for _, studyItem := range ds.Sequence(tag.CurrentRequestedProcedureEvidenceSequence) {
		study := &EvidenceStudy{StudyInstanceUID: studyItem.GetString(tag.StudyInstanceUID)}
		for _, seriesItem := range studyItem.Sequence(tag.ReferencedSeriesSequence) {
			series := &EvidenceSeries{
				SeriesInstanceUID:   seriesItem.GetString(tag.SeriesInstanceUID),
				Modality:            seriesItem.GetString(tag.Modality),
				RetrieveURL:         seriesItem.GetString(tag.RetrieveURL),
				RetrieveAETitle:     seriesItem.GetString(tag.RetrieveAETitle),
				RetrieveLocationUID: seriesItem.GetString(tag.RetrieveLocationUID),
			}
			for _, sopItem := range seriesItem.Sequence(tag.ReferencedSOPSequence) {
				inst := &EvidenceInstance{
					SOPClassUID:    sopItem.GetString(tag.ReferencedSOPClassUID),
					SOPInstanceUID: sopItem.GetString(tag.ReferencedSOPInstanceUID),
				}
				inst.InstanceNumber, _ = sopItem.Int(tag.InstanceNumber)
				inst.Rows, _ = sopItem.Int(tag.Rows)
				inst.Columns, _ = sopItem.Int(tag.Columns)
				inst.NumberOfFrames, _ = sopItem.Int(tag.NumberOfFrames)
				series.Instances = append(series.Instances, inst)
			}
			study.Series = append(study.Series, series)
		}
		e.Studies = append(e.Studies, study)
	}
	return e
}

// option renders the hierarchy as the evidence sequence
func (e Evidence) option() (dicom.Option, error) {
	studies := dicom.NewSequenceBuilder(tag.CurrentRequestedProcedureEvidenceSequence)
	for _, study := range e.Studies {
		seriesSeq := dicom.NewSequenceBuilder(tag.ReferencedSeriesSequence)
		for _, series := range study.Series {
			sops := dicom.NewSequenceBuilder(tag.ReferencedSOPSequence)
			for _, inst := range series.Instances {
				opts := []dicom.Option{
					dicom.WithElement(tag.ReferencedSOPClassUID, inst.SOPClassUID),
					dicom.WithElement(tag.ReferencedSOPInstanceUID, inst.SOPInstanceUID),
				}
				if inst.InstanceNumber > 0 {
					opts = append(opts, dicom.WithElement(tag.InstanceNumber, inst.InstanceNumber))
				}
				if inst.Rows > 0 {
					opts = append(opts, dicom.WithElementVR(tag.Rows, vr.US, uint16(inst.Rows)))
				}
				if inst.Columns > 0 {
					opts = append(opts, dicom.WithElementVR(tag.Columns, vr.US, uint16(inst.Columns)))
				}
				if inst.NumberOfFrames > 0 {
					opts = append(opts, dicom.WithElement(tag.NumberOfFrames, inst.NumberOfFrames))
				}
				sops.AddItem(opts...)
			}
			sopOpt, err := sops.Build()
			if err != nil {
				return nil, err
			}
			opts := []dicom.Option{
				dicom.WithElement(tag.SeriesInstanceUID, series.SeriesInstanceUID),
				sopOpt,
			}
			if series.Modality != "" {
				opts = append(opts, dicom.WithElement(tag.Modality, series.Modality))
			}
			if series.RetrieveURL != "" {
				opts = append(opts, dicom.WithElement(tag.RetrieveURL, series.RetrieveURL))
			}
			if series.RetrieveAETitle != "" {
				opts = append(opts, dicom.WithElement(tag.RetrieveAETitle, series.RetrieveAETitle))
			}
			if series.RetrieveLocationUID != "" {
				opts = append(opts, dicom.WithElement(tag.RetrieveLocationUID, series.RetrieveLocationUID))
			}
			seriesSeq.AddItem(opts...)
		}
		seriesOpt, err := seriesSeq.Build()
		if err != nil {
			return nil, err
		}
		studies.AddItem(
			dicom.WithElement(tag.StudyInstanceUID, study.StudyInstanceUID),
			seriesOpt,
		)
	}
	return studies.Build()
}
