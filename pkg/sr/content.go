package sr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/dicom/module"
	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/dicom/vr"
)

// ParseRoot reads the document root item and its whole content tree from a dataset
func ParseRoot(ds *dicom.Dataset) *Node {
	return ParseItem(ds)
}

// ParseItem reads one content item and its descendants
func ParseItem(ds *dicom.Dataset) *Node {
	n := &Node{
		ValueType:        ValueType(ds.GetString(tag.ValueType)),
		RelationshipType: RelationshipType(ds.GetString(tag.RelationshipType)),
	}
	if items := ds.Sequence(tag.ConceptNameCodeSequence); len(items) > 0 {
		c := ParseCode(items[0])
		n.ConceptName = &c
	}

	switch n.ValueType {
	case Text:
		n.TextValue = ds.Text(tag.TextValue)
	case CodeValue:
		for _, item := range ds.Sequence(tag.ConceptCodeSequence) {
			n.Codes = append(n.Codes, ParseCode(item))
		}
	case UIDRef:
		n.UID = ds.Text(tag.UID)
	case PName:
		n.PersonName = ds.Text(tag.PersonName)
	case Num:
		if items := ds.Sequence(tag.MeasuredValueSequence); len(items) > 0 {
			num := &Numeric{Value: items[0].GetString(tag.NumericValue)}
			if units := items[0].Sequence(tag.MeasurementUnitsCodeSequence); len(units) > 0 {
				u := ParseCode(units[0])
				num.Unit = &u
			}
			n.Numeric = num
		}
	case Image, Composite, Waveform:
		for _, item := range ds.Sequence(tag.ReferencedSOPSequence) {
			n.References = append(n.References, SOPRef{
				ClassUID:    item.GetString(tag.ReferencedSOPClassUID),
				InstanceUID: item.GetString(tag.ReferencedSOPInstanceUID),
				Frames:      parseFrames(item),
			})
			if dicom.HasElement(item, tag.PurposeOfReferenceCodeSequence) {
				n.HasPurposeOfReference = true
			}
		}
	}

	for _, child := range ds.Sequence(tag.ContentSequence) {
		n.Children = append(n.Children, ParseItem(child))
	}
	return n
}

// ParseCode reads a code sequence item
func ParseCode(ds *dicom.Dataset) Code {
	return Code{
		Value:   ds.GetString(tag.CodeValue),
		Scheme:  ds.GetString(tag.CodingSchemeDesignator),
		Meaning: ds.GetString(tag.CodeMeaning),
	}
}

func parseFrames(item *dicom.Dataset) []int {
	elem, ok := item.Get(tag.ReferencedFrameNumber)
	if !ok {
		return nil
	}
	values, _ := elem.GetStrings()
	var frames []int
	for _, v := range values {
		if f, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			frames = append(frames, f)
		}
	}
	return frames
}

// EncodeContent renders children as Content Sequence items
func EncodeContent(children []*Node) ([]*dicom.Dataset, error) {
	items := make([]*dicom.Dataset, 0, len(children))
	for i, child := range children {
		item, err := EncodeItem(child)
		if err != nil {
			return nil, fmt.Errorf("content item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// EncodeItem renders one content item and its descendants
func EncodeItem(n *Node) (*dicom.Dataset, error) {
	opts := []dicom.Option{dicom.WithElement(tag.ValueType, string(n.ValueType))}
	if n.RelationshipType != "" {
		opts = append(opts, dicom.WithElement(tag.RelationshipType, string(n.RelationshipType)))
	}
	if n.ConceptName != nil {
		opts = append(opts, codeSequence(tag.ConceptNameCodeSequence, *n.ConceptName))
	}

	switch n.ValueType {
	case Text:
		opts = append(opts, dicom.WithElement(tag.TextValue, n.TextValue))
	case CodeValue:
		opts = append(opts, codeSequence(tag.ConceptCodeSequence, n.Codes...))
	case UIDRef:
		opts = append(opts, dicom.WithElement(tag.UID, n.UID))
	case PName:
		opts = append(opts, dicom.WithElement(tag.PersonName, n.PersonName))
	case Num:
		if n.Numeric != nil {
			measured := []module.IODElement{{Tag: tag.NumericValue, Value: n.Numeric.Value}}
			if n.Numeric.Unit != nil {
				measured = append(measured, module.IODElement{
					Tag:   tag.MeasurementUnitsCodeSequence,
					Items: [][]module.IODElement{ModuleCode(*n.Numeric.Unit).ToTags()},
				})
			}
			opts = append(opts, dicom.WithModule([]module.IODElement{{
				Tag:   tag.MeasuredValueSequence,
				Items: [][]module.IODElement{measured},
			}}))
		}
	case Image, Composite, Waveform:
		refs := dicom.NewSequenceBuilder(tag.ReferencedSOPSequence)
		for _, ref := range n.References {
			itemOpts := []dicom.Option{
				dicom.WithElement(tag.ReferencedSOPClassUID, ref.ClassUID),
				dicom.WithElement(tag.ReferencedSOPInstanceUID, ref.InstanceUID),
			}
			if len(ref.Frames) > 0 {
				frames := make([]string, len(ref.Frames))
				for i, f := range ref.Frames {
					frames[i] = strconv.Itoa(f)
				}
				itemOpts = append(itemOpts, dicom.WithElementVR(tag.ReferencedFrameNumber, vr.IS, frames))
			}
			refs.AddItem(itemOpts...)
		}
		seq, err := refs.Build()
		if err != nil {
			return nil, err
		}
		opts = append(opts, seq)
	}

	if len(n.Children) > 0 {
		children, err := EncodeContent(n.Children)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dicom.WithSequence(tag.ContentSequence, children...))
	}
	return dicom.NewDataset(opts...)
}

func codeSequence(t tag.Tag, codes ...Code) dicom.Option {
	items := make([][]module.IODElement, 0, len(codes))
	for _, c := range codes {
		items = append(items, ModuleCode(c).ToTags())
	}
	return dicom.WithModule([]module.IODElement{{Tag: t, Items: items}})
}

// ModuleCode converts a content tree code for module attributes
func ModuleCode(c Code) module.Code {
	return module.Code{Value: c.Value, Scheme: c.Scheme, Meaning: c.Meaning}
}
