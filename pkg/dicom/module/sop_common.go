package module

import (
	"time"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// SOPCommonModule represents the SOP Common Module (PS3.3 C.12.1)
type SOPCommonModule struct {
	SOPClassUID           string
	SOPInstanceUID        string
	SpecificCharacterSet  string
	InstanceCreationDate  opt.Text
	InstanceCreationTime  opt.Text
	TimezoneOffsetFromUTC opt.Text
}

func NewSOPCommonModule() SOPCommonModule {
	t := time.Now()
	return SOPCommonModule{
		SpecificCharacterSet: "ISO_IR 192", // UTF-8
		InstanceCreationDate: opt.Of(NewDate(t).String()),
		InstanceCreationTime: opt.Of(NewTime(t).String()),
	}
}

func (m *SOPCommonModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.SOPClassUID, Value: m.SOPClassUID},
		{Tag: tag.SOPInstanceUID, Value: m.SOPInstanceUID},
		{Tag: tag.SpecificCharacterSet, Value: m.SpecificCharacterSet},
		{Tag: tag.InstanceCreationDate, Value: m.InstanceCreationDate},
		{Tag: tag.InstanceCreationTime, Value: m.InstanceCreationTime},
		{Tag: tag.TimezoneOffsetFromUTC, Value: m.TimezoneOffsetFromUTC},
	}
}
