package weaverpack

import (
	"encoding/hex"

	"weaver.dev/core/crypto"
)

// SignedCommitment pairs a SealCommitment with a signature over its
// commitment hash, produced by a crypto.SigningProvider. Sealing never
// requires a provider; signing is an optional layer a caller opts into
// when it needs a commitment to be independently verifiable.
type SignedCommitment struct {
	Commitment SealCommitment
	Digest     string
	PubKey     []byte
	Signature  []byte
}

// SignCommitment hashes the commitment's CommitmentHash through the
// given provider and records a signature placeholder alongside it. A
// zero-value DevStdProvider never produces a signature a real verifier
// would accept; wire a real SigningProvider for deployments that need
// third-party verifiable seals.
func SignCommitment(commitment SealCommitment, provider crypto.SigningProvider, pubkey, signature []byte) (SignedCommitment, error) {
	if commitment.CommitmentHash == "" {
		return SignedCommitment{}, wpErr(ErrMissingField, "cannot sign: commitment has no commitment_hash")
	}
	digest, err := provider.SHA3_256([]byte(commitment.CommitmentHash))
	if err != nil {
		return SignedCommitment{}, wpErr(ErrIntegrity, "digest commitment: %v", err)
	}
	return SignedCommitment{
		Commitment: commitment,
		Digest:     hex.EncodeToString(digest[:]),
		PubKey:     pubkey,
		Signature:  signature,
	}, nil
}

// VerifySignedCommitment re-derives the digest from the commitment hash
// and asks the provider to verify the recorded signature against it.
func VerifySignedCommitment(sc SignedCommitment, provider crypto.SigningProvider) bool {
	digest, err := provider.SHA3_256([]byte(sc.Commitment.CommitmentHash))
	if err != nil {
		return false
	}
	if hex.EncodeToString(digest[:]) != sc.Digest {
		return false
	}
	return provider.VerifySignature(sc.PubKey, sc.Signature, digest)
}

// WrapGovernanceToken wraps a capture/stream governance token with a
// key-encryption key before it is persisted to the ledger, so a leaked
// ledger database does not disclose live tokens.
func WrapGovernanceToken(kek []byte, token string) ([]byte, error) {
	padded := padToken(token)
	wrapped, err := crypto.AESKeyWrapRFC3394(kek, padded)
	if err != nil {
		return nil, wpErr(ErrIntegrity, "wrap governance token: %v", err)
	}
	return wrapped, nil
}

// UnwrapGovernanceToken reverses WrapGovernanceToken.
func UnwrapGovernanceToken(kek []byte, wrapped []byte) (string, error) {
	padded, err := crypto.AESKeyUnwrapRFC3394(kek, wrapped)
	if err != nil {
		return "", wpErr(ErrIntegrity, "unwrap governance token: %v", err)
	}
	return unpadToken(padded), nil
}

// padToken right-pads token material to a multiple of 8 bytes (AES-KW's
// minimum granularity), prefixed with its true length so unpadding is
// exact.
func padToken(token string) []byte {
	raw := []byte(token)
	n := len(raw)
	padded := make([]byte, 8+roundUp8(n))
	padded[0] = byte(n >> 24)
	padded[1] = byte(n >> 16)
	padded[2] = byte(n >> 8)
	padded[3] = byte(n)
	copy(padded[8:], raw)
	if len(padded) < 16 {
		padded = append(padded, make([]byte, 16-len(padded))...)
	}
	return padded
}

func unpadToken(padded []byte) string {
	if len(padded) < 8 {
		return ""
	}
	n := int(padded[0])<<24 | int(padded[1])<<16 | int(padded[2])<<8 | int(padded[3])
	if n < 0 || 8+n > len(padded) {
		return ""
	}
	return string(padded[8 : 8+n])
}

func roundUp8(n int) int {
	if n%8 == 0 {
		return n
	}
	return n + (8 - n%8)
}
