package weaverpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartStreamRejectsDisabledPolicy(t *testing.T) {
	_, err := StartStream(StreamPolicy{}, nil)
	require.Error(t, err)
	var govErr *GovernanceError
	require.ErrorAs(t, err, &govErr)
	require.Equal(t, ErrStreamDisabled, govErr.Code)
}

func TestStartStreamRejectsUnscoped(t *testing.T) {
	_, err := StartStream(StreamPolicy{Enabled: true, GovernanceToken: "tok"}, nil)
	require.Error(t, err)
}

func TestStartStreamSucceedsWhenFullyGoverned(t *testing.T) {
	session, err := StartStream(StreamPolicy{
		Enabled:         true,
		Scope:           StreamScopeLocal,
		GovernanceToken: "tok",
	}, nil)
	require.NoError(t, err)
	require.True(t, session.Active)
}

func TestStartStreamSucceedsWhenAuthorityIssuing(t *testing.T) {
	session, err := StartStream(StreamPolicy{
		Enabled:         true,
		Scope:           StreamScopeLocal,
		GovernanceToken: "tok",
	}, fakeAuthority{canIssue: true})
	require.NoError(t, err)
	require.True(t, session.Active)
}

func TestStartStreamRejectsWhenAuthorityNotIssuing(t *testing.T) {
	_, err := StartStream(StreamPolicy{
		Enabled:         true,
		Scope:           StreamScopeLocal,
		GovernanceToken: "tok",
	}, fakeAuthority{canIssue: false})
	require.Error(t, err)
	var govErr *GovernanceError
	require.ErrorAs(t, err, &govErr)
	require.Equal(t, ErrAuthorityUnavailable, govErr.Code)
}

func TestStopStreamEmitsPassingReceipt(t *testing.T) {
	session, err := StartStream(StreamPolicy{
		Enabled:         true,
		Scope:           StreamScopeScopedExternal,
		GovernanceToken: "tok",
	}, nil)
	require.NoError(t, err)
	session.BytesStreamed = 1024

	receipt := StopStream(&session)
	require.False(t, session.Active)
	require.True(t, receipt.Passed)
	require.Equal(t, "stream_stop", receipt.Operation)
}
