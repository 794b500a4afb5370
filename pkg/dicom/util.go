package dicom

import (
	"math/big"

	"github.com/google/uuid"
)

// GenerateUID returns a UUID-derived DICOM UID under the 2.25 root (PS3.5 B.2)
func GenerateUID() string {
	return UIDFromUUID(uuid.New())
}

// UIDFromUUID converts a UUID to its 2.25 decimal form
func UIDFromUUID(u uuid.UUID) string {
	return "2.25." + new(big.Int).SetBytes(u[:]).String()
}
