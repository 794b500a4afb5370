package module

import (
	"strconv"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// KeyObjectDocumentSeriesModule represents the Key Object Document Series Module (PS3.3 C.17.6.1)
type KeyObjectDocumentSeriesModule struct {
	SeriesInstanceUID string
	SeriesNumber      int
	SeriesDate        opt.Text
	SeriesTime        opt.Text
	SeriesDescription opt.Text
}

func (m *KeyObjectDocumentSeriesModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.Modality, Value: "KO"},
		{Tag: tag.SeriesInstanceUID, Value: m.SeriesInstanceUID},
		{Tag: tag.SeriesNumber, Value: strconv.Itoa(m.SeriesNumber)},
		{Tag: tag.SeriesDate, Value: m.SeriesDate},
		{Tag: tag.SeriesTime, Value: m.SeriesTime},
		{Tag: tag.SeriesDescription, Value: m.SeriesDescription},
		sequence(tag.ReferencedPerformedProcedureStepSequence),
	}
}

func (m *KeyObjectDocumentSeriesModule) SetSeriesInstanceUID(uid string) {
	m.SeriesInstanceUID = uid
}
