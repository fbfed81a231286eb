// Package weaverpack implements the governance layer over WeaverPack
// manifests: read-only verification, non-destructive redaction with
// lineage, commitment sealing, fission/fusion splitting and merging, the
// receipt audit trail every operation emits, and the gated capture/stream
// session starters. The core operations (verify/redact/seal/fission/
// fusion) are deterministic and I/O-free except where a path is
// explicitly passed in (verifying files on disk, loading/writing
// receipts). The optional signing and governance-token-persistence
// helpers (signing.go, governance_persistence.go) are the one place that
// calls into the ledger store directly; callers that don't need token
// persistence never touch it.
package weaverpack

import "fmt"

// ErrorCode tags a GovernanceError.
type ErrorCode string

const (
	ErrMissingField    ErrorCode = "WP_MISSING_FIELD"
	ErrIntegrity       ErrorCode = "WP_INTEGRITY"
	ErrLoad            ErrorCode = "WP_LOAD_FAILED"
	ErrInvalidPlan     ErrorCode = "WP_INVALID_PLAN"
	ErrSilentSplit     ErrorCode = "WP_SILENT_SPLIT"
	ErrSilentMerge     ErrorCode = "WP_SILENT_MERGE"
	ErrNoPatterns      ErrorCode = "WP_NO_PATTERNS"
	ErrCaptureDisabled ErrorCode = "WP_CAPTURE_DISABLED"
	ErrConsentRequired ErrorCode = "WP_CONSENT_REQUIRED"
	ErrStreamDisabled  ErrorCode = "WP_STREAM_DISABLED"
	ErrInvalidGate     ErrorCode = "WP_INVALID_GATE"

	ErrAuthorityUnavailable ErrorCode = "WP_AUTHORITY_UNAVAILABLE"
)

// GovernanceError is returned by every fallible weaverpack operation.
type GovernanceError struct {
	Code ErrorCode
	Msg  string
}

func (e *GovernanceError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func wpErr(code ErrorCode, format string, args ...any) error {
	return &GovernanceError{Code: code, Msg: fmt.Sprintf(format, args...)}
}
