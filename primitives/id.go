package primitives

import "github.com/google/uuid"

// GenerateID mints an opaque identifier with the given prefix, in the
// "PREFIX-<value>" shape used throughout WeaverPack manifests, receipts,
// and commitments (e.g. "RWMF-...", "RWRC-..."). The suffix is a random
// UUIDv4 rather than raw entropy bytes, since it is never hashed into any
// canonical form — only carried as an opaque label.
func GenerateID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
