package module

import (
	"strconv"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// ReferencedRequest is one item of the Referenced Request Sequence
type ReferencedRequest struct {
	StudyInstanceUID              string
	AccessionNumber               opt.Text
	IssuerOfAccessionNumber       opt.Text
	RequestedProcedureID          opt.Text
	RequestedProcedureDescription opt.Text
	PlacerOrderNumber             opt.Text
	FillerOrderNumber             opt.Text
}

func (r ReferencedRequest) ToTags() []IODElement {
	tags := []IODElement{
		{Tag: tag.StudyInstanceUID, Value: r.StudyInstanceUID},
		{Tag: tag.AccessionNumber, Value: type2(r.AccessionNumber)},
		{Tag: tag.RequestedProcedureID, Value: type2(r.RequestedProcedureID)},
		{Tag: tag.RequestedProcedureDescription, Value: type2(r.RequestedProcedureDescription)},
		{Tag: tag.PlacerOrderNumberImagingServiceRequest, Value: type2(r.PlacerOrderNumber)},
		{Tag: tag.FillerOrderNumberImagingServiceRequest, Value: type2(r.FillerOrderNumber)},
	}
	if r.IssuerOfAccessionNumber.IsPresent() {
		tags = append(tags, IssuerSequence(tag.IssuerOfAccessionNumberSequence, r.IssuerOfAccessionNumber.String()))
	}
	return tags
}

// KeyObjectDocumentModule represents the Key Object Document Module (PS3.3 C.17.6.2).
// The evidence sequence is rendered separately from the evidence hierarchy.
type KeyObjectDocumentModule struct {
	InstanceNumber     int
	ContentDate        opt.Text
	ContentTime        opt.Text
	ReferencedRequests []ReferencedRequest
}

func (m *KeyObjectDocumentModule) ToTags() []IODElement {
	tags := []IODElement{
		{Tag: tag.InstanceNumber, Value: strconv.Itoa(m.InstanceNumber)},
		{Tag: tag.ContentDate, Value: m.ContentDate},
		{Tag: tag.ContentTime, Value: m.ContentTime},
	}
	if len(m.ReferencedRequests) > 0 {
		items := make([][]IODElement, 0, len(m.ReferencedRequests))
		for _, r := range m.ReferencedRequests {
			items = append(items, r.ToTags())
		}
		tags = append(tags, sequence(tag.ReferencedRequestSequence, items...))
	}
	return tags
}

// SRDocumentContentModule holds the root content item attributes (PS3.3 C.17.3).
// The root's children are rendered by the content tree encoder.
type SRDocumentContentModule struct {
	Title Code
}

// Key Object Selection template identification
const (
	TemplateMappingResource = "DCMR"
	KeyObjectTemplateID     = "2010"
)

func (m *SRDocumentContentModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.ValueType, Value: "CONTAINER"},
		sequence(tag.ConceptNameCodeSequence, m.Title.ToTags()),
		{Tag: tag.ContinuityOfContent, Value: "SEPARATE"},
		sequence(tag.ContentTemplateSequence, []IODElement{
			{Tag: tag.MappingResource, Value: TemplateMappingResource},
			{Tag: tag.TemplateIdentifier, Value: KeyObjectTemplateID},
		}),
	}
}
