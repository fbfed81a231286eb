package weaverpack

import "weaver.dev/core/primitives"

// RetentionScope bounds how long a capture session's output is kept.
type RetentionScope string

const (
	RetentionSession   RetentionScope = "session"
	RetentionBounded   RetentionScope = "bounded"
	RetentionPermanent RetentionScope = "permanent"
)

// CapturePolicy governs whether a capture session may start. It is off
// and unconsented by default (RW-C2, RW-C3): always-on background
// capture is forbidden, and a governance token plus explicit consent
// are both required to enable it.
type CapturePolicy struct {
	Enabled                  bool
	ConsentGiven             bool
	RetentionScope           RetentionScope
	RetentionDurationSeconds int64
	GovernanceToken          string
}

// CaptureSession is an active, governed capture session.
type CaptureSession struct {
	SessionID      string
	Policy         CapturePolicy
	Active         bool
	FramesCaptured int
}

// ValidateCapturePolicy enforces RW-C2 (consent) and RW-C3 (default
// off, governance-gated).
func ValidateCapturePolicy(policy CapturePolicy) []string {
	var errs []string
	if !policy.Enabled {
		errs = append(errs, "Capture is disabled (RW-C3: default off). Enable via governance.")
	}
	if !policy.ConsentGiven {
		errs = append(errs, "Capture requires explicit consent (RW-C2).")
	}
	if policy.GovernanceToken == "" {
		errs = append(errs, "Capture requires governance token.")
	}
	return errs
}

// TokenAuthority reports whether the external governance-token issuer is
// currently able to mint new tokens. *crypto.AuthorityMonitor satisfies
// this interface; StartCapture/StartStream take it as an interface so
// the governance layer never imports the crypto package's health-check
// machinery directly. A nil TokenAuthority is treated as always-issuing,
// for callers that have not wired an authority monitor.
type TokenAuthority interface {
	CanIssueTokens() bool
}

// StartCapture starts a capture session. Fail-closed: it refuses to
// start unless the policy is enabled, consented, and governance-tokened,
// and — when an authority is wired — unless the governance token
// authority is currently able to issue tokens.
func StartCapture(policy CapturePolicy, authority TokenAuthority) (CaptureSession, error) {
	errs := ValidateCapturePolicy(policy)
	if len(errs) > 0 {
		if !policy.Enabled {
			return CaptureSession{}, wpErr(ErrCaptureDisabled, "%s", errs[0])
		}
		if !policy.ConsentGiven {
			return CaptureSession{}, wpErr(ErrConsentRequired, "%s", errs[0])
		}
		return CaptureSession{}, wpErr(ErrCaptureDisabled, "%v", errs)
	}
	if authority != nil && !authority.CanIssueTokens() {
		return CaptureSession{}, wpErr(ErrAuthorityUnavailable, "governance token authority is not issuing tokens")
	}

	return CaptureSession{
		SessionID: primitives.GenerateID("RWCS"),
		Policy:    policy,
		Active:    true,
	}, nil
}

// StopCapture ends a capture session and emits its audit receipt.
func StopCapture(session *CaptureSession) Receipt {
	session.Active = false

	gates := []Gate{
		{Name: "consent_present", Status: GatePass, Detail: "Consent was given at session start."},
		{Name: "retention_scope", Status: GatePass, Detail: "Retention scope: " + string(session.Policy.RetentionScope)},
	}

	return EmitReceipt(
		"capture_stop",
		"RW-4_capture",
		map[string]any{"session_id": session.SessionID},
		map[string]any{"frames_captured": session.FramesCaptured},
		gates,
		[]string{"RW-C2", "RW-C3"},
		"",
	)
}
