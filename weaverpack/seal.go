package weaverpack

import "weaver.dev/core/primitives"

// SealCommitment is a hash-based commitment to a manifest's state. It
// commits without disclosing: no content is published or egressed.
type SealCommitment struct {
	CommitmentID   string
	ManifestID     string
	WeaverPackID   string
	PackHash       string
	CommitmentHash string
	Timestamp      string
	Sealed         bool
}

// ComputeCommitmentHash hashes the manifest's canonical-JSON form: a
// hash-of-hash, deterministic in the manifest alone.
func ComputeCommitmentHash(manifest Manifest) (string, error) {
	canonical, err := primitives.CanonicalJSON(manifest)
	if err != nil {
		return "", wpErr(ErrLoad, "canonicalize manifest: %v", err)
	}
	return primitives.Sum256Hex(canonical), nil
}

// Seal verifies a manifest's required fields and pack_hash integrity
// (RW-C1), then commits to it (commitment only — no publish, no
// egress). Fail-closed: a pack_hash mismatch is an error.
func Seal(manifest Manifest) (SealCommitment, error) {
	if manifest.ManifestID == "" {
		return SealCommitment{}, wpErr(ErrMissingField, "cannot seal: missing manifest_id")
	}
	if manifest.WeaverPackID == "" {
		return SealCommitment{}, wpErr(ErrMissingField, "cannot seal: missing weaverpack_id")
	}
	if manifest.Files == nil {
		return SealCommitment{}, wpErr(ErrMissingField, "cannot seal: missing files")
	}
	if manifest.PackHash == "" {
		return SealCommitment{}, wpErr(ErrMissingField, "cannot seal: missing pack_hash")
	}

	expected := manifest.ComputePackHash()
	if expected != manifest.PackHash {
		return SealCommitment{}, wpErr(ErrIntegrity, "cannot seal: pack_hash mismatch (expected %s, got %s)", expected, manifest.PackHash)
	}

	commitmentHash, err := ComputeCommitmentHash(manifest)
	if err != nil {
		return SealCommitment{}, err
	}

	return SealCommitment{
		CommitmentID:   primitives.GenerateID("RWSC"),
		ManifestID:     manifest.ManifestID,
		WeaverPackID:   manifest.WeaverPackID,
		PackHash:       manifest.PackHash,
		CommitmentHash: commitmentHash,
		Timestamp:      primitives.NowUTC(),
		Sealed:         true,
	}, nil
}

// VerifyCommitment checks a commitment against the manifest it claims
// to commit to. Returns a non-empty error list on any mismatch.
func VerifyCommitment(manifest Manifest, commitment SealCommitment) []string {
	var errs []string
	if manifest.ManifestID != commitment.ManifestID {
		errs = append(errs, "manifest_id mismatch")
	}
	if manifest.PackHash != commitment.PackHash {
		errs = append(errs, "pack_hash mismatch")
	}
	expectedHash, err := ComputeCommitmentHash(manifest)
	if err != nil || expectedHash != commitment.CommitmentHash {
		errs = append(errs, "commitment_hash mismatch")
	}
	return errs
}
