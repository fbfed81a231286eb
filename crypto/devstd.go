package crypto

import "golang.org/x/crypto/sha3"

// DevStdProvider is a development-only SigningProvider. It hashes with
// SHA3-256 from the standard crypto ecosystem but never actually
// verifies a signature — it exists only to unblock tooling that needs
// a SigningProvider without a configured external authority.
type DevStdProvider struct{}

func (p DevStdProvider) SHA3_256(input []byte) ([32]byte, error) {
	h := sha3.New256()
	_, _ = h.Write(input)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

func (p DevStdProvider) VerifySignature(_ []byte, _ []byte, _ [32]byte) bool { return false }
