package dicom

import (
	"fmt"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/dicom/vr"
)

// AddSequenceItem appends a dataset item to an existing sequence element.
//
// If the sequence doesn't exist, it creates a new one.
//
// Example:
//
//	item, _ := dicom.NewDataset(
//		dicom.WithElement(tag.ReferencedSOPClassUID, sopClass),
//		dicom.WithElement(tag.ReferencedSOPInstanceUID, instance),
//	)
//	dicom.AddSequenceItem(series, tag.ReferencedSOPSequence, item)
func AddSequenceItem(ds *Dataset, t Tag, item *Dataset) error {
	if item == nil {
		return fmt.Errorf("cannot add nil dataset to sequence")
	}

	elem, exists := ds.Get(t)
	if !exists {
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    string(vr.SQ),
			Value: []*Dataset{item},
		}
		return nil
	}

	seq, ok := elem.Value.([]*Dataset)
	if !ok {
		return fmt.Errorf("element %v exists but is not a sequence (VR=%s)", t, elem.VR)
	}
	elem.Value = append(seq, item)
	return nil
}

// GetSequenceItems returns all items from a sequence element, nil if absent
func GetSequenceItems(ds *Dataset, t Tag) []*Dataset {
	return ds.Sequence(t)
}

// HasElement returns true if the dataset contains the specified element.
func HasElement(ds *Dataset, t Tag) bool {
	_, ok := ds.Get(t)
	return ok
}

// DeleteElement removes an element from the dataset.
func DeleteElement(ds *Dataset, t Tag) {
	delete(ds.Elements, t)
}

// CloneDataset creates a deep copy of a dataset, including every sequence item.
func CloneDataset(ds *Dataset) *Dataset {
	clone := &Dataset{
		Elements: make(map[Tag]*Element, len(ds.Elements)),
	}

	for t, elem := range ds.Elements {
		clonedElem := &Element{
			Tag: elem.Tag,
			VR:  elem.VR,
		}

		switch v := elem.Value.(type) {
		case []byte:
			copied := make([]byte, len(v))
			copy(copied, v)
			clonedElem.Value = copied
		case []string:
			copied := make([]string, len(v))
			copy(copied, v)
			clonedElem.Value = copied
		case []*Dataset:
			clonedSeq := make([]*Dataset, len(v))
			for i, item := range v {
				clonedSeq[i] = CloneDataset(item)
			}
			clonedElem.Value = clonedSeq
		default:
			// Strings and scalars are immutable
			clonedElem.Value = v
		}

		clone.Elements[t] = clonedElem
	}

	return clone
}

// GetStudyInstanceUID returns the Study Instance UID
func GetStudyInstanceUID(ds *Dataset) string {
	return ds.GetString(tag.StudyInstanceUID)
}

// GetSOPInstanceUID returns the SOP Instance UID, falling back to the file meta copy
func GetSOPInstanceUID(ds *Dataset) string {
	if s := ds.GetString(tag.SOPInstanceUID); s != "" {
		return s
	}
	return ds.GetString(tag.MediaStorageSOPInstanceUID)
}
