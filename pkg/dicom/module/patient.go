package module

import (
	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// PatientModule represents the Patient Module (PS3.3 C.7.1.1)
type PatientModule struct {
	PatientName       opt.Text
	PatientID         opt.Text
	IssuerOfPatientID opt.Text
	TypeOfPatientID   opt.Text // TEXT, RFID, BARCODE
	PatientBirthDate  opt.Text
	PatientSex        opt.Text // M, F, O
}

func (m *PatientModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.PatientName, Value: type2(m.PatientName)},
		{Tag: tag.PatientID, Value: type2(m.PatientID)},
		{Tag: tag.IssuerOfPatientID, Value: m.IssuerOfPatientID},
		{Tag: tag.TypeOfPatientID, Value: m.TypeOfPatientID},
		{Tag: tag.PatientBirthDate, Value: type2(m.PatientBirthDate)},
		{Tag: tag.PatientSex, Value: type2(m.PatientSex)},
	}
}

// SetPatientName sets the patient's name
func (m *PatientModule) SetPatientName(first, last, middle, prefix, suffix string) {
	m.PatientName = opt.Of(PersonName{
		GivenName:  first,
		FamilyName: last,
		MiddleName: middle,
		Prefix:     prefix,
		Suffix:     suffix,
	}.String())
}
