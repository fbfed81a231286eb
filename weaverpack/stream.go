package weaverpack

import "weaver.dev/core/primitives"

// StreamScope bounds how widely a stream session's output may travel.
type StreamScope string

const (
	StreamScopeNone            StreamScope = "none"
	StreamScopeLocal           StreamScope = "local"
	StreamScopeScopedExternal  StreamScope = "scoped_external"
)

// StreamPolicy governs whether a stream session may start. Off and
// unscoped by default: always-on background streaming is forbidden.
type StreamPolicy struct {
	Enabled         bool
	Scope           StreamScope
	GovernanceToken string
}

// StreamSession is an active, governed stream session.
type StreamSession struct {
	SessionID     string
	Policy        StreamPolicy
	Active        bool
	BytesStreamed int64
}

// ValidateStreamPolicy enforces governance-gating and scope-boundedness.
func ValidateStreamPolicy(policy StreamPolicy) []string {
	var errs []string
	if !policy.Enabled {
		errs = append(errs, "Stream is disabled (default off). Enable via governance.")
	}
	if policy.Scope == StreamScopeNone || policy.Scope == "" {
		errs = append(errs, "Stream scope is 'none'. Set a valid scope.")
	}
	if policy.GovernanceToken == "" {
		errs = append(errs, "Stream requires governance token.")
	}
	return errs
}

// StartStream starts a stream session. Fail-closed: refuses to start
// unless enabled, scoped, and governance-tokened, and — when an
// authority is wired — unless the governance token authority is
// currently able to issue tokens.
func StartStream(policy StreamPolicy, authority TokenAuthority) (StreamSession, error) {
	errs := ValidateStreamPolicy(policy)
	if len(errs) > 0 {
		return StreamSession{}, wpErr(ErrStreamDisabled, "%v", errs)
	}
	if authority != nil && !authority.CanIssueTokens() {
		return StreamSession{}, wpErr(ErrAuthorityUnavailable, "governance token authority is not issuing tokens")
	}

	return StreamSession{
		SessionID: primitives.GenerateID("RWSS"),
		Policy:    policy,
		Active:    true,
	}, nil
}

// StopStream ends a stream session and emits its audit receipt.
func StopStream(session *StreamSession) Receipt {
	session.Active = false

	gates := []Gate{
		{Name: "scope_bounded", Status: GatePass, Detail: "Scope: " + string(session.Policy.Scope)},
		{Name: "governance_token", Status: GatePass, Detail: "Governance token was present."},
	}

	return EmitReceipt(
		"stream_stop",
		"RW-7_stream",
		map[string]any{"session_id": session.SessionID},
		map[string]any{"bytes_streamed": session.BytesStreamed},
		gates,
		[]string{"RW-C3"},
		"",
	)
}
