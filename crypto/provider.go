// Package crypto provides the signing and key-wrap primitives used to
// protect WeaverPack seal commitments and governance tokens at rest. It
// is deliberately narrow: weaverpack's core (verify/redact/seal/fission/
// fusion) stays hash-only and never imports this package directly —
// signing is an optional layer callers opt into around Seal.
package crypto

// SigningProvider is the narrow crypto interface used to sign and
// verify WeaverPack seal commitments. Implementations may back onto a
// software digest (DevStdProvider) or an external signing authority.
type SigningProvider interface {
	SHA3_256(input []byte) ([32]byte, error)
	VerifySignature(pubkey []byte, sig []byte, digest32 [32]byte) bool
}
