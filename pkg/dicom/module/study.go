package module

import (
	"time"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// GeneralStudyModule represents the General Study Module (PS3.3 C.7.2.1)
type GeneralStudyModule struct {
	StudyInstanceUID        string
	StudyDate               opt.Text
	StudyTime               opt.Text
	ReferringPhysicianName  opt.Text
	StudyID                 opt.Text
	AccessionNumber         opt.Text
	IssuerOfAccessionNumber opt.Text
	StudyDescription        opt.Text
}

func NewGeneralStudyModule() GeneralStudyModule {
	t := time.Now()
	return GeneralStudyModule{
		StudyDate: opt.Of(NewDate(t).String()),
		StudyTime: opt.Of(NewTime(t).String()),
	}
}

func (m *GeneralStudyModule) ToTags() []IODElement {
	tags := []IODElement{
		{Tag: tag.StudyInstanceUID, Value: m.StudyInstanceUID},
		{Tag: tag.StudyDate, Value: type2(m.StudyDate)},
		{Tag: tag.StudyTime, Value: type2(m.StudyTime)},
		{Tag: tag.ReferringPhysicianName, Value: type2(m.ReferringPhysicianName)},
		{Tag: tag.StudyID, Value: type2(m.StudyID)},
		{Tag: tag.AccessionNumber, Value: type2(m.AccessionNumber)},
		{Tag: tag.StudyDescription, Value: m.StudyDescription},
	}
	if m.IssuerOfAccessionNumber.IsPresent() {
		tags = append(tags, IssuerSequence(tag.IssuerOfAccessionNumberSequence, m.IssuerOfAccessionNumber.String()))
	}
	return tags
}

// IssuerSequence renders an HL7v2 hierarchic designator sequence. OID-shaped
// issuers are written as the universal entity ID, others as the local namespace.
func IssuerSequence(t tag.Tag, issuer string) IODElement {
	item := []IODElement{{Tag: tag.LocalNamespaceEntityID, Value: issuer}}
	if IsOID(issuer) {
		item = []IODElement{
			{Tag: tag.UniversalEntityID, Value: issuer},
			{Tag: tag.UniversalEntityIDType, Value: "ISO"},
		}
	}
	return sequence(t, item)
}

// IsOID reports a dotted numeric object identifier
func IsOID(s string) bool {
	if s == "" || s[0] == '.' || s[len(s)-1] == '.' {
		return false
	}
	dots := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '.':
			if s[i-1] == '.' {
				return false
			}
			dots++
		case s[i] < '0' || s[i] > '9':
			return false
		}
	}
	return dots > 0
}
