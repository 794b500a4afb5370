package module

import (
	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// GeneralEquipmentModule represents the General Equipment Module (PS3.3 C.7.5.1)
type GeneralEquipmentModule struct {
	Manufacturer      opt.Text
	InstitutionName   opt.Text
	StationName       opt.Text
	ManufacturerModel opt.Text
	DeviceSerial      opt.Text
	SoftwareVersions  opt.Text
}

func (m *GeneralEquipmentModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.Manufacturer, Value: type2(m.Manufacturer)},
		{Tag: tag.InstitutionName, Value: m.InstitutionName},
		{Tag: tag.StationName, Value: m.StationName},
		{Tag: tag.ManufacturerModelName, Value: m.ManufacturerModel},
		{Tag: tag.DeviceSerialNumber, Value: m.DeviceSerial},
		{Tag: tag.SoftwareVersions, Value: m.SoftwareVersions},
	}
}
