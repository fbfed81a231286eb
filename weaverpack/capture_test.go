package weaverpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeAuthority struct{ canIssue bool }

func (f fakeAuthority) CanIssueTokens() bool { return f.canIssue }

func TestStartCaptureRejectsDisabledPolicy(t *testing.T) {
	_, err := StartCapture(CapturePolicy{}, nil)
	require.Error(t, err)
	var govErr *GovernanceError
	require.ErrorAs(t, err, &govErr)
	require.Equal(t, ErrCaptureDisabled, govErr.Code)
}

func TestStartCaptureRejectsMissingConsent(t *testing.T) {
	_, err := StartCapture(CapturePolicy{Enabled: true, GovernanceToken: "tok"}, nil)
	require.Error(t, err)
	var govErr *GovernanceError
	require.ErrorAs(t, err, &govErr)
	require.Equal(t, ErrConsentRequired, govErr.Code)
}

func TestStartCaptureSucceedsWhenFullyGoverned(t *testing.T) {
	session, err := StartCapture(CapturePolicy{
		Enabled:         true,
		ConsentGiven:    true,
		GovernanceToken: "tok",
		RetentionScope:  RetentionSession,
	}, nil)
	require.NoError(t, err)
	require.True(t, session.Active)
	require.NotEmpty(t, session.SessionID)
}

func TestStartCaptureSucceedsWhenAuthorityIssuing(t *testing.T) {
	session, err := StartCapture(CapturePolicy{
		Enabled:         true,
		ConsentGiven:    true,
		GovernanceToken: "tok",
		RetentionScope:  RetentionSession,
	}, fakeAuthority{canIssue: true})
	require.NoError(t, err)
	require.True(t, session.Active)
}

func TestStartCaptureRejectsWhenAuthorityNotIssuing(t *testing.T) {
	_, err := StartCapture(CapturePolicy{
		Enabled:         true,
		ConsentGiven:    true,
		GovernanceToken: "tok",
		RetentionScope:  RetentionSession,
	}, fakeAuthority{canIssue: false})
	require.Error(t, err)
	var govErr *GovernanceError
	require.ErrorAs(t, err, &govErr)
	require.Equal(t, ErrAuthorityUnavailable, govErr.Code)
}

func TestStopCaptureEmitsPassingReceipt(t *testing.T) {
	session, err := StartCapture(CapturePolicy{
		Enabled:         true,
		ConsentGiven:    true,
		GovernanceToken: "tok",
		RetentionScope:  RetentionBounded,
	}, nil)
	require.NoError(t, err)
	session.FramesCaptured = 42

	receipt := StopCapture(&session)
	require.False(t, session.Active)
	require.True(t, receipt.Passed)
	require.Equal(t, "capture_stop", receipt.Operation)
	require.Equal(t, 42, receipt.Outputs["frames_captured"])
}
