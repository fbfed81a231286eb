package weaverpack

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"weaver.dev/core/ledger"
)

func openTestLedger(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPersistAndLoadSessionTokenRoundtrip(t *testing.T) {
	store := openTestLedger(t)
	kek := make([]byte, 32)
	for i := range kek {
		kek[i] = byte(i)
	}

	require.NoError(t, PersistSessionToken(store, kek, "RWCS-1", "governance-token-value"))

	token, ok, err := LoadSessionToken(store, kek, "RWCS-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "governance-token-value", token)
}

func TestLoadSessionTokenMissingReturnsNotOK(t *testing.T) {
	store := openTestLedger(t)
	kek := make([]byte, 32)

	_, ok, err := LoadSessionToken(store, kek, "does-not-exist")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPersistSessionTokenRejectsBadKEK(t *testing.T) {
	store := openTestLedger(t)
	err := PersistSessionToken(store, []byte{0x01}, "RWCS-1", "tok")
	require.Error(t, err)
}
