package weaverpack

import "weaver.dev/core/ledger"

// PersistSessionToken wraps a capture/stream governance token with a
// key-encryption key and stores the wrapped ciphertext in the ledger,
// keyed by session ID. The ledger never holds a token in the clear.
func PersistSessionToken(store *ledger.Store, kek []byte, sessionID, token string) error {
	wrapped, err := WrapGovernanceToken(kek, token)
	if err != nil {
		return err
	}
	if err := store.PutToken(sessionID, wrapped); err != nil {
		return wpErr(ErrIntegrity, "persist session token: %v", err)
	}
	return nil
}

// LoadSessionToken retrieves and unwraps the governance token stored for
// a session ID. ok is false if no token has been stored for that
// session.
func LoadSessionToken(store *ledger.Store, kek []byte, sessionID string) (string, bool, error) {
	wrapped, ok, err := store.GetToken(sessionID)
	if err != nil {
		return "", false, wpErr(ErrIntegrity, "load session token: %v", err)
	}
	if !ok {
		return "", false, nil
	}
	token, err := UnwrapGovernanceToken(kek, wrapped)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}
