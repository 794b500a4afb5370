package dicom

import (
	"github.com/jpfielding/mado.go/pkg/dicom/module"
	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/dicom/vr"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// ImplementationClassUID identifies files written by this module
const ImplementationClassUID = "1.2.826.0.1.3680043.8.498.1.2"

// ImplementationVersionName is written to the file meta group
const ImplementationVersionName = "MADO_GO"

// Option configures a Dataset during construction
type Option func(*Dataset) error

// NewDataset creates a Dataset with the given options
func NewDataset(opts ...Option) (*Dataset, error) {
	ds := &Dataset{Elements: make(map[Tag]*Element)}
	for _, o := range opts {
		if err := o(ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Apply runs additional options against an existing dataset
func (ds *Dataset) Apply(opts ...Option) error {
	for _, o := range opts {
		if err := o(ds); err != nil {
			return err
		}
	}
	return nil
}

// WithElement adds a single element to the dataset using the dictionary VR.
// An unset opt.Text omits the element, an empty one writes a zero length value.
func WithElement(t tag.Tag, value interface{}) Option {
	return WithElementVR(t, tag.VROf(t), value)
}

// WithElementVR adds a single element with an explicit VR
func WithElementVR(t tag.Tag, v vr.VR, value interface{}) Option {
	return func(ds *Dataset) error {
		if text, ok := value.(opt.Text); ok {
			switch text.State() {
			case opt.StateUnset:
				return nil
			case opt.StateEmpty:
				value = ""
			default:
				value = text.String()
			}
		}
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    string(v),
			Value: value,
		}
		return nil
	}
}

// WithSequence adds a sequence element to the dataset
func WithSequence(t tag.Tag, items ...*Dataset) Option {
	return func(ds *Dataset) error {
		if items == nil {
			items = []*Dataset{}
		}
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    string(vr.SQ),
			Value: items,
		}
		return nil
	}
}

// WithFileMeta adds standard file meta information elements
func WithFileMeta(sopClassUID, sopInstanceUID string, syntax TransferSyntax) Option {
	return func(ds *Dataset) error {
		return ds.Apply(
			WithElement(tag.FileMetaInformationVersion, []byte{0x00, 0x01}),
			WithElement(tag.MediaStorageSOPClassUID, sopClassUID),
			WithElement(tag.MediaStorageSOPInstanceUID, sopInstanceUID),
			WithElement(tag.TransferSyntaxUID, string(syntax)),
			WithElement(tag.ImplementationClassUID, ImplementationClassUID),
			WithElement(tag.ImplementationVersionName, ImplementationVersionName),
		)
	}
}

// WithModule adds all elements from a module's ToTags() result
func WithModule(tags []module.IODElement) Option {
	return func(ds *Dataset) error {
		for _, el := range tags {
			var o Option
			switch {
			case el.Items != nil:
				items := make([]*Dataset, 0, len(el.Items))
				for _, sub := range el.Items {
					item, err := NewDataset(WithModule(sub))
					if err != nil {
						return err
					}
					items = append(items, item)
				}
				o = WithSequence(el.Tag, items...)
			case el.VR != "":
				o = WithElementVR(el.Tag, el.VR, el.Value)
			default:
				o = WithElement(el.Tag, el.Value)
			}
			if err := o(ds); err != nil {
				return err
			}
		}
		return nil
	}
}
