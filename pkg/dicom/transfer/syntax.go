// Package transfer defines the DICOM Transfer Syntaxes a manifest may be encoded with
package transfer

// Syntax represents a DICOM Transfer Syntax
type Syntax string

// Transfer syntaxes seen on structured report objects. Compressed pixel syntaxes
// never apply to a manifest, which carries no pixel data.
const (
	ImplicitVRLittleEndian    Syntax = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian    Syntax = "1.2.840.10008.1.2.1"
	ExplicitVRLittleEndianExt Syntax = "1.2.840.10008.1.2.1.64" // Extended (>4GB)
	ExplicitVRBigEndian       Syntax = "1.2.840.10008.1.2.2"    // Retired
	DeflatedExplicitVR        Syntax = "1.2.840.10008.1.2.1.99"
)

// IsExplicitVR returns true if this transfer syntax uses explicit VR
func (s Syntax) IsExplicitVR() bool {
	return s != ImplicitVRLittleEndian
}

// IsLittleEndian returns true if this transfer syntax uses little endian byte order
func (s Syntax) IsLittleEndian() bool {
	return s != ExplicitVRBigEndian
}

// IsSupported reports whether the reader can decode the dataset body
func (s Syntax) IsSupported() bool {
	switch s {
	case ImplicitVRLittleEndian, ExplicitVRLittleEndian, ExplicitVRLittleEndianExt:
		return true
	default:
		return false
	}
}

// Name returns a human-readable name for the transfer syntax
func (s Syntax) Name() string {
	switch s {
	case ImplicitVRLittleEndian:
		return "Implicit VR Little Endian"
	case ExplicitVRLittleEndian:
		return "Explicit VR Little Endian"
	case ExplicitVRLittleEndianExt:
		return "Explicit VR Little Endian Extended"
	case ExplicitVRBigEndian:
		return "Explicit VR Big Endian (Retired)"
	case DeflatedExplicitVR:
		return "Deflated Explicit VR Little Endian"
	default:
		return string(s)
	}
}

// FromUID converts a UID string to a Syntax
func FromUID(uid string) Syntax {
	return Syntax(uid)
}
