package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/dicom/transfer"
	"github.com/jpfielding/mado.go/pkg/dicom/vr"
)

// WriteFile writes a dataset to a DICOM Part 10 file
func WriteFile(path string, ds *Dataset) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Write(f, ds)
}

// Write writes a dataset as a Part 10 stream. The file meta group is always explicit VR
// little endian; the body follows the dataset's TransferSyntaxUID, explicit VR when absent.
func Write(w io.Writer, ds *Dataset) (int64, error) {
	cw := &CountingWriter{Writer: w}

	// 1. Write Preamble (128 bytes 0x00)
	preamble := make([]byte, 128)
	if _, err := cw.Write(preamble); err != nil {
		return cw.Count.Load(), err
	}

	// 2. Write DICM Magic
	if _, err := cw.Write([]byte("DICM")); err != nil {
		return cw.Count.Load(), err
	}

	// 3. Split meta and body
	meta := &Dataset{Elements: make(map[Tag]*Element)}
	body := &Dataset{Elements: make(map[Tag]*Element)}
	for t, elem := range ds.Elements {
		if t.IsGroup0002() {
			if t.Element != 0x0000 {
				meta.Elements[t] = elem
			}
			continue
		}
		body.Elements[t] = elem
	}

	syntax := transfer.ExplicitVRLittleEndian
	if s := meta.GetString(tag.TransferSyntaxUID); s != "" {
		syntax = transfer.FromUID(s)
	}
	if !syntax.IsSupported() {
		return cw.Count.Load(), fmt.Errorf("%w: %s", ErrUnsupportedTransferSyntax, syntax.Name())
	}

	// 4. Meta group with its group length
	if len(meta.Elements) > 0 {
		var metaBuf bytes.Buffer
		if _, err := writeDataSetBody(&metaBuf, meta, true); err != nil {
			return cw.Count.Load(), err
		}
		groupLength := &Element{Tag: tag.FileMetaInformationGroupLength, VR: string(vr.UL), Value: uint32(metaBuf.Len())}
		if _, err := writeElement(cw, groupLength, true); err != nil {
			return cw.Count.Load(), err
		}
		if _, err := cw.Write(metaBuf.Bytes()); err != nil {
			return cw.Count.Load(), err
		}
	}

	// 5. Body
	if _, err := writeDataSetBody(cw, body, syntax.IsExplicitVR()); err != nil {
		return cw.Count.Load(), err
	}
	return cw.Count.Load(), nil
}

func writeDataSetBody(w io.Writer, ds *Dataset, explicit bool) (int64, error) {
	// Collect elements and sort by Tag
	var elements []*Element
	for _, elem := range ds.Elements {
		elements = append(elements, elem)
	}
	sort.Slice(elements, func(i, j int) bool {
		return elements[i].Tag.Less(elements[j].Tag)
	})

	cw := &CountingWriter{Writer: w}
	for _, elem := range elements {
		if _, err := writeElement(cw, elem, explicit); err != nil {
			return cw.Count.Load(), fmt.Errorf("failed to write element %v: %w", elem.Tag, err)
		}
	}
	return cw.Count.Load(), nil
}

func writeElement(w io.Writer, elem *Element, explicit bool) (int, error) {
	cw := &CountingWriter{Writer: w}

	// Write Tag
	if err := binary.Write(cw, binary.LittleEndian, elem.Tag.Group); err != nil {
		return int(cw.Count.Load()), err
	}
	if err := binary.Write(cw, binary.LittleEndian, elem.Tag.Element); err != nil {
		return int(cw.Count.Load()), err
	}

	v := vr.VR(elem.VR)
	if len(v) != 2 {
		slog.Warn("Invalid VR length, defaulting to UN", "vr", elem.VR, "tag", elem.Tag)
		v = vr.UN
	}

	// Encode Value
	valBytes, isUndefinedLength, err := encodeValue(elem.Value, v, explicit)
	if err != nil {
		return int(cw.Count.Load()), err
	}
	length := uint32(len(valBytes))
	if isUndefinedLength {
		length = undefinedLength
	}

	switch {
	case !explicit:
		if err := binary.Write(cw, binary.LittleEndian, length); err != nil {
			return int(cw.Count.Load()), err
		}
	case v.HasLongLength():
		if _, err := cw.Write([]byte(v)); err != nil {
			return int(cw.Count.Load()), err
		}
		// Reserved 2 bytes (0x00)
		if _, err := cw.Write([]byte{0, 0}); err != nil {
			return int(cw.Count.Load()), err
		}
		if err := binary.Write(cw, binary.LittleEndian, length); err != nil {
			return int(cw.Count.Load()), err
		}
	default:
		if isUndefinedLength {
			return int(cw.Count.Load()), fmt.Errorf("undefined length not supported for Short VR %s", v)
		}
		if len(valBytes) > math.MaxUint16 {
			return int(cw.Count.Load()), fmt.Errorf("value of %d bytes too long for VR %s", len(valBytes), v)
		}
		if _, err := cw.Write([]byte(v)); err != nil {
			return int(cw.Count.Load()), err
		}
		if err := binary.Write(cw, binary.LittleEndian, uint16(length)); err != nil {
			return int(cw.Count.Load()), err
		}
	}

	if _, err := cw.Write(valBytes); err != nil {
		return int(cw.Count.Load()), err
	}
	return int(cw.Count.Load()), nil
}

// encodeValue returns encoded bytes and a bool indicating undefined length (sequences)
func encodeValue(val interface{}, v vr.VR, explicit bool) ([]byte, bool, error) {
	if v.IsSequence() {
		items, ok := val.([]*Dataset)
		if !ok && val != nil {
			return nil, false, fmt.Errorf("unexpected %T for VR SQ", val)
		}
		b, err := encodeSequence(items, explicit)
		return b, true, err
	}
	if val == nil {
		return []byte{}, false, nil
	}

	switch x := val.(type) {
	case string:
		return pad([]byte(x), v), false, nil
	case []string:
		return pad([]byte(strings.Join(x, `\`)), v), false, nil
	case uint16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, x)
		return b, false, nil
	case []uint16:
		b := make([]byte, len(x)*2)
		for i, u := range x {
			binary.LittleEndian.PutUint16(b[i*2:], u)
		}
		return b, false, nil
	case uint32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, x)
		return b, false, nil
	case []uint32:
		b := make([]byte, len(x)*4)
		for i, u := range x {
			binary.LittleEndian.PutUint32(b[i*4:], u)
		}
		return b, false, nil
	case int:
		// Map int to the VR size
		switch v {
		case vr.IS:
			return pad([]byte(strconv.Itoa(x)), v), false, nil
		case vr.DS:
			return pad([]byte(strconv.Itoa(x)), v), false, nil
		case vr.US, vr.SS:
			b := make([]byte, 2)
			binary.LittleEndian.PutUint16(b, uint16(x))
			return b, false, nil
		case vr.UL, vr.SL:
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, uint32(x))
			return b, false, nil
		}
		return nil, false, fmt.Errorf("int for VR %s not implemented", v)
	case float64:
		// If DS, encode as string. If FL/FD, binary.
		switch v {
		case vr.DS:
			return pad([]byte(strconv.FormatFloat(x, 'g', 16, 64)), v), false, nil
		case vr.FD:
			b := make([]byte, 8)
			binary.LittleEndian.PutUint64(b, math.Float64bits(x))
			return b, false, nil
		case vr.FL:
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(x)))
			return b, false, nil
		}
		return nil, false, fmt.Errorf("float64 for VR %s not implemented", v)
	case []byte:
		return pad(x, v), false, nil
	}

	return nil, false, fmt.Errorf("unsupported value type %T for VR %s", val, v)
}

// pad extends odd length values with the VR's padding byte
func pad(b []byte, v vr.VR) []byte {
	if len(b)%2 != 0 {
		b = append(b, v.PadByte())
	}
	return b
}

func encodeSequence(datasets []*Dataset, explicit bool) ([]byte, error) {
	var buf bytes.Buffer

	for _, ds := range datasets {
		// Item Tag (FFFE, E000)
		buf.Write([]byte{0xFE, 0xFF, 0x00, 0xE0})

		// Encode Dataset Body to temp buffer to get length
		var dsBuf bytes.Buffer
		if _, err := writeDataSetBody(&dsBuf, ds, explicit); err != nil {
			return nil, fmt.Errorf("failed to encode sequence item: %w", err)
		}

		// Item Length (Explicit)
		binary.Write(&buf, binary.LittleEndian, uint32(dsBuf.Len()))
		buf.Write(dsBuf.Bytes())
	}

	// Sequence Delimitation Item (FFFE, E0DD), length 0
	buf.Write([]byte{0xFE, 0xFF, 0xDD, 0xE0})
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00})

	return buf.Bytes(), nil
}

// CountingWriter counts the bytes written through it
type CountingWriter struct {
	Count  atomic.Int64
	Writer io.Writer
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.Writer.Write(p)
	if err == nil {
		c.Count.Add(int64(n))
	}
	return n, err
}
