package dicom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/dicom/transfer"
	"github.com/jpfielding/mado.go/pkg/dicom/vr"
)

const undefinedLength = 0xFFFFFFFF

// ErrUnsupportedTransferSyntax is returned for dataset bodies the reader cannot decode
var ErrUnsupportedTransferSyntax = errors.New("unsupported transfer syntax")

// Reader reads DICOM Part 10 files
type Reader struct {
	r              io.Reader
	transferSyntax transfer.Syntax
	explicitVR     bool
	inBody         bool
}

// NewReader creates a new DICOM reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:          r,
		explicitVR: true,
	}
}

// Parse reads a complete DICOM Part 10 file
func Parse(r io.Reader) (*Dataset, error) {
	reader := NewReader(r)
	return reader.ReadDataset()
}

// ReadDataset reads the preamble, the file meta group and the dataset body
func (r *Reader) ReadDataset() (*Dataset, error) {
	ds := &Dataset{
		Elements: make(map[Tag]*Element),
	}

	// Read preamble (128 bytes) and DICM magic
	preamble := make([]byte, 128)
	if _, err := io.ReadFull(r.r, preamble); err != nil {
		return nil, fmt.Errorf("failed to read preamble: %w", err)
	}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r.r, magic); err != nil {
		return nil, fmt.Errorf("failed to read DICM magic: %w", err)
	}
	if string(magic) != "DICM" {
		return nil, errors.New("invalid DICOM file: missing DICM magic")
	}

	// Group 0002 (File Meta Information) is ALWAYS Explicit VR Little Endian
	r.explicitVR = true

	for {
		t, err := r.readTag()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tag: %w", err)
		}

		// Switch encodings once the meta group ends
		if t.Group != 0x0002 && !r.inBody {
			if err := r.startBody(); err != nil {
				return nil, err
			}
		}

		elem, err := r.readElementWithTag(t)
		if err != nil {
			return nil, fmt.Errorf("failed to read element %v: %w", t, err)
		}
		ds.Elements[elem.Tag] = elem

		if t == tag.TransferSyntaxUID {
			if s, ok := elem.GetString(); ok {
				r.transferSyntax = transfer.FromUID(s)
			}
		}
	}

	return ds, nil
}

// startBody applies the transfer syntax announced in the meta group
func (r *Reader) startBody() error {
	r.inBody = true
	if r.transferSyntax == "" {
		// No file meta: Implicit VR Little Endian is the default
		r.transferSyntax = transfer.ImplicitVRLittleEndian
	}
	if !r.transferSyntax.IsSupported() {
		return fmt.Errorf("%w: %s", ErrUnsupportedTransferSyntax, r.transferSyntax.Name())
	}
	r.explicitVR = r.transferSyntax.IsExplicitVR()
	return nil
}

// readElementWithTag reads a DICOM element after the tag has been read
func (r *Reader) readElementWithTag(t Tag) (*Element, error) {
	var v vr.VR
	var vl uint32

	if r.explicitVR {
		// Read VR (2 bytes)
		vrBytes := make([]byte, 2)
		if _, err := io.ReadFull(r.r, vrBytes); err != nil {
			return nil, err
		}
		v = vr.VR(vrBytes)

		// Check if VR uses 4-byte VL or 2-byte VL + 2 reserved bytes
		if v.HasLongLength() {
			reserved := make([]byte, 2)
			if _, err := io.ReadFull(r.r, reserved); err != nil {
				return nil, err
			}
			if err := binary.Read(r.r, binary.LittleEndian, &vl); err != nil {
				return nil, err
			}
		} else {
			var vl16 uint16
			if err := binary.Read(r.r, binary.LittleEndian, &vl16); err != nil {
				return nil, err
			}
			vl = uint32(vl16)
		}
	} else {
		// Implicit VR: VL is always 4 bytes, VR is determined by tag
		if err := binary.Read(r.r, binary.LittleEndian, &vl); err != nil {
			return nil, err
		}
		v = tag.VROf(t)
		if vl == undefinedLength {
			v = vr.SQ
		}
	}

	// An undefined length UN holds an implicit VR sequence
	if v == vr.UN && vl == undefinedLength {
		items, err := r.withImplicitVR().readSequence(vl)
		if err != nil {
			return nil, err
		}
		return &Element{Tag: t, VR: string(vr.SQ), Value: items}, nil
	}

	if v.IsSequence() {
		items, err := r.readSequence(vl)
		if err != nil {
			return nil, err
		}
		return &Element{Tag: t, VR: string(v), Value: items}, nil
	}

	if vl == undefinedLength {
		return nil, fmt.Errorf("undefined length for non-sequence VR %s", v)
	}

	data := make([]byte, vl)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, err
	}

	return &Element{
		Tag:   t,
		VR:    string(v),
		Value: parseValue(v, data),
	}, nil
}

// readSequence reads the items of a sequence with either a defined or undefined length
func (r *Reader) readSequence(vl uint32) ([]*Dataset, error) {
	if vl != undefinedLength {
		data := make([]byte, vl)
		if _, err := io.ReadFull(r.r, data); err != nil {
			return nil, fmt.Errorf("reading sequence: %w", err)
		}
		return r.sub(data).readItems(false)
	}
	return r.readItems(true)
}

// readItems reads items until the sequence delimiter, or until EOF for a defined length sequence
func (r *Reader) readItems(delimited bool) ([]*Dataset, error) {
	items := []*Dataset{}
	for {
		t, err := r.readTag()
		if err == io.EOF && !delimited {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading sequence item tag: %w", err)
		}

		var length uint32
		if err := binary.Read(r.r, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("reading item length: %w", err)
		}

		switch t {
		case tag.SequenceDelimitationItem:
			return items, nil
		case tag.Item:
			item, err := r.readItem(length)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		default:
			return nil, fmt.Errorf("expected item tag, got %v", t)
		}
	}
}

// readItem reads the elements of one sequence item
func (r *Reader) readItem(length uint32) (*Dataset, error) {
	if length != undefinedLength {
		data := make([]byte, length)
		if _, err := io.ReadFull(r.r, data); err != nil {
			return nil, fmt.Errorf("reading item data: %w", err)
		}
		return r.sub(data).readElements(false)
	}
	return r.readElements(true)
}

// readElements reads elements into an item until the item delimiter, or until EOF for a defined length item
func (r *Reader) readElements(delimited bool) (*Dataset, error) {
	ds := &Dataset{Elements: make(map[Tag]*Element)}
	for {
		t, err := r.readTag()
		if err == io.EOF && !delimited {
			return ds, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading item element tag: %w", err)
		}
		if t == tag.ItemDelimitationItem {
			var zero uint32
			if err := binary.Read(r.r, binary.LittleEndian, &zero); err != nil {
				return nil, fmt.Errorf("reading delimiter length: %w", err)
			}
			return ds, nil
		}
		elem, err := r.readElementWithTag(t)
		if err != nil {
			return nil, fmt.Errorf("failed to read element %v: %w", t, err)
		}
		ds.Elements[elem.Tag] = elem
	}
}

// sub returns a reader over a defined length block sharing this reader's encoding
func (r *Reader) sub(data []byte) *Reader {
	return &Reader{
		r:              bytes.NewReader(data),
		transferSyntax: r.transferSyntax,
		explicitVR:     r.explicitVR,
		inBody:         true,
	}
}

func (r *Reader) withImplicitVR() *Reader {
	return &Reader{
		r:              r.r,
		transferSyntax: transfer.ImplicitVRLittleEndian,
		inBody:         true,
	}
}

// readTag reads a DICOM tag
func (r *Reader) readTag() (Tag, error) {
	var buf [4]byte
	n, err := io.ReadFull(r.r, buf[:])
	if n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
		return Tag{}, io.EOF
	}
	if err != nil {
		return Tag{}, err
	}
	return Tag{
		Group:   binary.LittleEndian.Uint16(buf[0:]),
		Element: binary.LittleEndian.Uint16(buf[2:]),
	}, nil
}

// parseValue converts raw bytes to typed value based on VR
func parseValue(v vr.VR, data []byte) interface{} {
	if v.IsString() {
		// String types - trim padding
		s := string(data)
		for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
			s = s[:len(s)-1]
		}
		return s
	}
	switch v {
	case vr.US:
		if len(data) == 2 {
			return binary.LittleEndian.Uint16(data)
		}
		values := make([]uint16, len(data)/2)
		for i := range values {
			values[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
		return values
	case vr.UL:
		if len(data) == 4 {
			return binary.LittleEndian.Uint32(data)
		}
		values := make([]uint32, len(data)/4)
		for i := range values {
			values[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
		return values
	case vr.SS:
		if len(data) == 2 {
			return int16(binary.LittleEndian.Uint16(data))
		}
	case vr.SL:
		if len(data) == 4 {
			return int32(binary.LittleEndian.Uint32(data))
		}
	case vr.FL:
		if len(data) == 4 {
			var f float32
			binary.Read(bytes.NewReader(data), binary.LittleEndian, &f)
			return f
		}
	case vr.FD:
		if len(data) == 8 {
			var f float64
			binary.Read(bytes.NewReader(data), binary.LittleEndian, &f)
			return f
		}
	}
	// Binary data
	return data
}
