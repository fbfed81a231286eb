package primitives

import (
	"crypto/sha256"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// HashAlgorithm names a content-hash algorithm tag, as carried in
// receipts/lineage that want to record which algorithm produced a digest.
type HashAlgorithm string

const (
	HashSHA256 HashAlgorithm = "sha256"
	HashBLAKE3 HashAlgorithm = "blake3"
)

// Sum256 returns the SHA-256 digest of data.
func Sum256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Sum256Hex returns the hex-encoded SHA-256 digest of data.
func Sum256Hex(data []byte) string {
	d := sha256.Sum256(data)
	return hexEncode(d[:])
}

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// ComputeHash hashes data with the requested algorithm tag. BLAKE3 is
// opt-in (matching canonicalize.py's algorithm="blake3" parameter); since
// lukechampine.com/blake3 is always linked in this build there is no
// fallback path to exercise, but unknown/unsupported tags still fall back
// to SHA-256 silently, mirroring the Python source's ImportError fallback.
func ComputeHash(data []byte, algorithm HashAlgorithm) string {
	switch algorithm {
	case HashBLAKE3:
		sum := blake3.Sum256(data)
		return hexEncode(sum[:])
	case HashSHA256:
		return Sum256Hex(data)
	default:
		return Sum256Hex(data)
	}
}
