package dicom

import "fmt"

// SequenceBuilder provides a fluent API for constructing DICOM sequences.
//
// Manifests carry several nested sequences: the evidence hierarchy
// (Current Requested Procedure Evidence → Referenced Series → Referenced SOP),
// the Referenced Request Sequence, and the content tree itself.
//
// Error Handling:
//
// The builder accumulates errors from AddItem() calls. These errors are returned
// when you call Build() or BuildDataset(). This allows fluent chaining while
// maintaining explicit error handling.
//
// Example - Building a Referenced SOP Sequence:
//
//	builder := dicom.NewSequenceBuilder(tag.ReferencedSOPSequence)
//	for _, instance := range instances {
//		builder.AddItem(
//			dicom.WithElement(tag.ReferencedSOPClassUID, sopClass),
//			dicom.WithElement(tag.ReferencedSOPInstanceUID, instance),
//		)
//	}
//
//	opt, err := builder.Build()
//	if err != nil {
//		return err
//	}
type SequenceBuilder struct {
	tag   Tag
	items []*Dataset
	errs  []error
}

// NewSequenceBuilder creates a new sequence builder for the specified tag.
//
// The tag should be a sequence-type DICOM element (VR=SQ).
func NewSequenceBuilder(t Tag) *SequenceBuilder {
	return &SequenceBuilder{
		tag:   t,
		items: make([]*Dataset, 0),
		errs:  make([]error, 0),
	}
}

// AddItem adds a sequence item constructed from the given options.
//
// If an error occurs, it is accumulated and will be returned from Build().
// Returns the builder for method chaining.
func (sb *SequenceBuilder) AddItem(opts ...Option) *SequenceBuilder {
	item, err := NewDataset(opts...)
	if err != nil {
		sb.errs = append(sb.errs, fmt.Errorf("item %d: %w", len(sb.items), err))
		return sb
	}
	sb.items = append(sb.items, item)
	return sb
}

// AddDataset adds an already-constructed dataset as a sequence item.
func (sb *SequenceBuilder) AddDataset(ds *Dataset) *SequenceBuilder {
	if ds != nil {
		sb.items = append(sb.items, ds)
	}
	return sb
}

// Count returns the number of items currently in the sequence.
func (sb *SequenceBuilder) Count() int {
	return len(sb.items)
}

// HasErrors returns true if any errors were accumulated during building.
func (sb *SequenceBuilder) HasErrors() bool {
	return len(sb.errs) > 0
}

// Errors returns all accumulated errors.
func (sb *SequenceBuilder) Errors() []error {
	return sb.errs
}

// Build returns an Option that adds the sequence to a dataset.
//
// Returns an error if any AddItem() calls failed during building.
//
// Example:
//
//	opt, err := builder.Build()
//	if err != nil {
//		return fmt.Errorf("building sequence: %w", err)
//	}
//
//	ds, err := dicom.NewDataset(
//		dicom.WithElement(tag.StudyInstanceUID, studyUID),
//		opt,
//	)
func (sb *SequenceBuilder) Build() (Option, error) {
	if len(sb.errs) > 0 {
		return nil, fmt.Errorf("sequence builder has %d error(s): %v", len(sb.errs), sb.errs)
	}
	return WithSequence(sb.tag, sb.items...), nil
}

// BuildDataset creates a standalone dataset containing only this sequence.
func (sb *SequenceBuilder) BuildDataset() (*Dataset, error) {
	opt, err := sb.Build()
	if err != nil {
		return nil, err
	}
	return NewDataset(opt)
}

// GetItems returns a copy of the current sequence items.
func (sb *SequenceBuilder) GetItems() []*Dataset {
	items := make([]*Dataset, len(sb.items))
	copy(items, sb.items)
	return items
}

// GetItem returns the item at the specified index, or nil if out of bounds.
func (sb *SequenceBuilder) GetItem(index int) *Dataset {
	if index >= 0 && index < len(sb.items) {
		return sb.items[index]
	}
	return nil
}
