// Package validate checks a Key Object Selection manifest against the TID 2010
// content grammar and the referential integrity of its evidence hierarchy.
// Every rule reports a graded finding; no rule stops the walk.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/kos"
	"github.com/jpfielding/mado.go/pkg/report"
)

const (
	maxUIDLength     = 64
	maxAETitleLength = 16
	evidencePath     = "CurrentRequestedProcedureEvidenceSequence"
	rootPath         = "ContentSequence"
)

var uidPattern = regexp.MustCompile(`^[0-2](\.(0|[1-9][0-9]*))*$`)

// ValidUID reports a syntactically valid UID of at most 64 characters
func ValidUID(uid string) bool {
	return len(uid) <= maxUIDLength && uidPattern.MatchString(uid)
}

// Validator holds the rule configuration. It keeps no state between calls.
type Validator struct {
	allowDuplicates bool
}

// Option configures a Validator
type Option func(*Validator)

// WithAllowDuplicates permits one SOP instance to be referenced more than once,
// as when an instance is both a library entry and a key image
func WithAllowDuplicates(allow bool) Option {
	return func(v *Validator) {
		v.allowDuplicates = allow
	}
}

// New returns a Validator with the strict defaults: repeated references are errors
func New(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks a manifest with a new Validator
func Validate(m *kos.Manifest, opts ...Option) *report.Result {
	return New(opts...).Validate(m)
}

// ValidateDataset checks a dataset with a new Validator
func ValidateDataset(ds *dicom.Dataset, opts ...Option) (*report.Result, error) {
	return New(opts...).ValidateDataset(ds)
}

// ValidateDataset extracts the manifest and adds the IOD attribute checks to the
// manifest rules. Only a dataset that is not a Key Object Selection fails.
func (v *Validator) ValidateDataset(ds *dicom.Dataset) (*report.Result, error) {
	m, err := kos.Extract(ds)
	if err != nil {
		return nil, err
	}
	res := v.Validate(m)
	iod := dicom.ValidateKeyObjectSelection(ds)
	for _, e := range iod.Errors {
		if e.IsCritical {
			res.Errorf(report.CodeRequired, e.Tag.String(), "%s", e.Error())
		} else {
			res.Warnf(report.CodeRequired, e.Tag.String(), "%s", e.Error())
		}
	}
	for _, e := range iod.Warnings {
		res.Warnf(report.CodeRequired, e.Tag.String(), "%s", e.Error())
	}
	return res, nil
}

// Validate runs every rule over the manifest. Evidence rules run first.
func (v *Validator) Validate(m *kos.Manifest) *report.Result {
	res := report.New()
	if m == nil {
		res.Errorf(report.CodeStructure, "", "no manifest")
		return res
	}
	checkEvidence(m.Evidence, res)

	w := &walk{
		v:        v,
		res:      res,
		self:     m.Meta.SOPInstanceUID,
		evidence: m.Evidence.InstanceUIDs(),
		seen:     map[string]string{},
	}
	w.root(m.Root)

	unreferenced := 0
	for si, study := range m.Evidence.Studies {
		for ri, series := range study.Series {
			for ii, inst := range series.Instances {
				if _, ok := w.seen[inst.SOPInstanceUID]; ok || inst.SOPInstanceUID == "" {
					continue
				}
				unreferenced++
				res.Warnf(report.CodeUnused, sopPath(si, ri, ii),
					"evidence instance %s is not referenced by the content tree", inst.SOPInstanceUID)
			}
		}
	}

	studies, series, instances := m.Evidence.Counts()
	res.Infof(report.CodeSummary, "",
		"evidence lists %d study(ies), %d series, %d instance(s); content references %d distinct instance(s), %d unreferenced",
		studies, series, instances, len(w.seen), unreferenced)
	return res
}

func studyPath(si int) string {
	return fmt.Sprintf("%s[%d]", evidencePath, si)
}

func seriesPath(si, ri int) string {
	return fmt.Sprintf("%s.ReferencedSeriesSequence[%d]", studyPath(si), ri)
}

func sopPath(si, ri, ii int) string {
	return fmt.Sprintf("%s.ReferencedSOPSequence[%d]", seriesPath(si, ri), ii)
}

// checkEvidence enforces the completeness of the evidence hierarchy
func checkEvidence(ev kos.Evidence, res *report.Result) {
	if len(ev.Studies) == 0 {
		res.Errorf(report.CodeRequired, evidencePath, "evidence sequence has no study items")
		return
	}
	studies := map[string]bool{}
	for si, study := range ev.Studies {
		path := studyPath(si)
		switch {
		case study.StudyInstanceUID == "":
			res.Errorf(report.CodeRequired, path, "study item has no Study Instance UID")
		case !ValidUID(study.StudyInstanceUID):
			res.Errorf(report.CodeValue, path, "study UID %q is malformed", study.StudyInstanceUID)
		case studies[study.StudyInstanceUID]:
			res.Errorf(report.CodeDuplicate, path, "study %s appears more than once in the evidence", study.StudyInstanceUID)
		}
		studies[study.StudyInstanceUID] = true
		if len(study.Series) == 0 {
			res.Errorf(report.CodeRequired, path, "study %s has no series", study.StudyInstanceUID)
		}

		series := map[string]bool{}
		for ri, s := range study.Series {
			path := seriesPath(si, ri)
			switch {
			case s.SeriesInstanceUID == "":
				res.Errorf(report.CodeRequired, path, "series item has no Series Instance UID")
			case !ValidUID(s.SeriesInstanceUID):
				res.Errorf(report.CodeValue, path, "series UID %q is malformed", s.SeriesInstanceUID)
			case series[s.SeriesInstanceUID]:
				res.Errorf(report.CodeDuplicate, path, "series %s appears more than once in study %s", s.SeriesInstanceUID, study.StudyInstanceUID)
			}
			series[s.SeriesInstanceUID] = true
			if len(s.Instances) == 0 {
				res.Errorf(report.CodeRequired, path, "series %s has no SOP instances", s.SeriesInstanceUID)
			}
			checkRetrieval(s, path, res)

			for ii, inst := range s.Instances {
				path := sopPath(si, ri, ii)
				if inst.SOPInstanceUID == "" {
					res.Errorf(report.CodeRequired, path, "SOP item has no Referenced SOP Instance UID")
				} else if !ValidUID(inst.SOPInstanceUID) {
					res.Errorf(report.CodeValue, path, "SOP instance UID %q is malformed", inst.SOPInstanceUID)
				}
				if inst.SOPClassUID == "" {
					res.Errorf(report.CodeRequired, path, "SOP item has no Referenced SOP Class UID")
				}
			}
		}
	}
}

// checkRetrieval grades the optional retrieval descriptors of a series
func checkRetrieval(s *kos.EvidenceSeries, path string, res *report.Result) {
	if s.RetrieveURL != "" {
		u, err := url.Parse(s.RetrieveURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			res.Warnf(report.CodeRetrieval, path+".RetrieveURL", "retrieve URL %q is not an absolute http(s) URL", s.RetrieveURL)
		} else if !strings.Contains(u.Path, "/studies/") {
			res.Warnf(report.CodeRetrieval, path+".RetrieveURL", "retrieve URL %q has no /studies/ segment", s.RetrieveURL)
		}
	}
	if len(s.RetrieveAETitle) > maxAETitleLength {
		res.Warnf(report.CodeRetrieval, path+".RetrieveAETitle", "AE title %q exceeds %d characters", s.RetrieveAETitle, maxAETitleLength)
	}
	if s.RetrieveLocationUID != "" && !ValidUID(s.RetrieveLocationUID) {
		res.Warnf(report.CodeRetrieval, path+".RetrieveLocationUID", "retrieve location UID %q is malformed", s.RetrieveLocationUID)
	}
}
