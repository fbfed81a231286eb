// Package ledger is a local persistence layer for WeaverPack manifests,
// receipts, and wrapped governance-session tokens: a bbolt-backed
// key-value store supporting lookup by manifest_id/receipt_id/session_id,
// outside the weaverpack package's single-threaded, I/O-free core. Core
// operations (verify/redact/seal/fission/fusion/kernel-check) never call
// into this package directly; callers persist the manifests, receipts,
// and session tokens those operations produce.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"weaver.dev/core/primitives"
)

var (
	bucketManifests = []byte("manifests")
	bucketReceipts  = []byte("receipts")
	bucketTokens    = []byte("tokens")
)

// ErrorCode tags a StoreError.
type ErrorCode string

const (
	ErrOpenFailed   ErrorCode = "LEDGER_OPEN_FAILED"
	ErrNotFound     ErrorCode = "LEDGER_NOT_FOUND"
	ErrEncodeFailed ErrorCode = "LEDGER_ENCODE_FAILED"
	ErrDecodeFailed ErrorCode = "LEDGER_DECODE_FAILED"
	ErrWriteFailed  ErrorCode = "LEDGER_WRITE_FAILED"
)

// StoreError is returned by every fallible Store operation.
type StoreError struct {
	Code ErrorCode
	Msg  string
}

func (e *StoreError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func storeErr(code ErrorCode, format string, args ...any) error {
	return &StoreError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Store is a bbolt-backed content index over WeaverPack manifests,
// receipts, and wrapped session tokens, keyed by manifest_id/receipt_id/
// session_id.
type Store struct {
	path   string
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens (creating if absent) a ledger database at path, ensuring
// the manifests, receipts, and tokens buckets exist.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, storeErr(ErrOpenFailed, "path required")
	}

	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, storeErr(ErrOpenFailed, "open bbolt: %v", err)
	}

	s := &Store{path: path, db: bdb, logger: slog.Default()}

	if err := bdb.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketManifests, bucketReceipts, bucketTokens} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, storeErr(ErrOpenFailed, "create buckets: %v", err)
	}

	s.logger.Info("ledger opened", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.logger.Info("ledger closed", "path", s.path)
	return s.db.Close()
}

// Path returns the filesystem path this store was opened against.
func (s *Store) Path() string { return s.path }

// ManifestRecord is the shape a manifest document takes when stored; it
// is intentionally opaque (map[string]any) so the ledger stays decoupled
// from weaverpack.Manifest's Go type and can store any schema-compatible
// manifest JSON.
type ManifestRecord = map[string]any

// ReceiptRecord is the shape a receipt document takes when stored.
type ReceiptRecord = map[string]any

// PutManifest stores a manifest document keyed by its manifest_id, in
// pretty-canonical-JSON form.
func (s *Store) PutManifest(manifestID string, manifest ManifestRecord) error {
	return s.put(bucketManifests, manifestID, manifest)
}

// GetManifest retrieves a manifest document by manifest_id. ok is false
// if no such manifest has been stored.
func (s *Store) GetManifest(manifestID string) (ManifestRecord, bool, error) {
	return s.get(bucketManifests, manifestID)
}

// DeleteManifest removes a manifest document by manifest_id.
func (s *Store) DeleteManifest(manifestID string) error {
	return s.delete(bucketManifests, manifestID)
}

// PutReceipt stores a receipt document keyed by its receipt_id, in
// pretty-canonical-JSON form.
func (s *Store) PutReceipt(receiptID string, receipt ReceiptRecord) error {
	return s.put(bucketReceipts, receiptID, receipt)
}

// GetReceipt retrieves a receipt document by receipt_id. ok is false if
// no such receipt has been stored.
func (s *Store) GetReceipt(receiptID string) (ReceiptRecord, bool, error) {
	return s.get(bucketReceipts, receiptID)
}

// DeleteReceipt removes a receipt document by receipt_id.
func (s *Store) DeleteReceipt(receiptID string) error {
	return s.delete(bucketReceipts, receiptID)
}

// PutToken stores opaque wrapped key material (e.g. an AES key-wrapped
// capture/stream governance token) keyed by session ID. The ledger never
// sees a token in the clear; wrapping/unwrapping is the caller's job.
func (s *Store) PutToken(sessionID string, wrapped []byte) error {
	if sessionID == "" {
		return storeErr(ErrEncodeFailed, "session id required")
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).Put([]byte(sessionID), wrapped)
	})
	if err != nil {
		return storeErr(ErrWriteFailed, "put token %s: %v", sessionID, err)
	}
	return nil
}

// GetToken retrieves the wrapped token stored for a session ID. ok is
// false if no token has been stored for that session.
func (s *Store) GetToken(sessionID string) ([]byte, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketTokens).Get([]byte(sessionID))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, storeErr(ErrDecodeFailed, "get token %s: %v", sessionID, err)
	}
	return raw, raw != nil, nil
}

// DeleteToken removes the wrapped token stored for a session ID.
func (s *Store) DeleteToken(sessionID string) error {
	return s.delete(bucketTokens, sessionID)
}

func (s *Store) put(bucket []byte, key string, value map[string]any) error {
	if key == "" {
		return storeErr(ErrEncodeFailed, "key required")
	}
	data, err := primitives.CanonicalJSONPretty(value)
	if err != nil {
		return storeErr(ErrEncodeFailed, "marshal: %v", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
	if err != nil {
		return storeErr(ErrWriteFailed, "put %s: %v", key, err)
	}
	return nil
}

func (s *Store) get(bucket []byte, key string) (map[string]any, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, storeErr(ErrDecodeFailed, "get %s: %v", key, err)
	}
	if raw == nil {
		return nil, false, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, storeErr(ErrDecodeFailed, "unmarshal %s: %v", key, err)
	}
	return out, true, nil
}

func (s *Store) delete(bucket []byte, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
	if err != nil {
		return storeErr(ErrWriteFailed, "delete %s: %v", key, err)
	}
	return nil
}

// ListManifestIDs returns every manifest_id currently stored, in
// ascending key order.
func (s *Store) ListManifestIDs() ([]string, error) {
	return s.listKeys(bucketManifests)
}

// ListReceiptIDs returns every receipt_id currently stored, in
// ascending key order.
func (s *Store) ListReceiptIDs() ([]string, error) {
	return s.listKeys(bucketReceipts)
}

func (s *Store) listKeys(bucket []byte) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, storeErr(ErrDecodeFailed, "list: %v", err)
	}
	return keys, nil
}
