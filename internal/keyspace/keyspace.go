package keyspace

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// HashOwner maps an owner identity to the opaque namespace used inside the object store.
// Raw identities never appear in object keys or logs.
func HashOwner(ownerID int64) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(ownerID, 10)))
	return hex.EncodeToString(sum[:])
}

// ObjectKey returns the object-store key for an owner's file.
// It is always recomputed and never persisted.
func ObjectKey(ownerID int64, filename string) string {
	return HashOwner(ownerID) + "/" + filename
}
