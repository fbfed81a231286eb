// Command weaverpack-cli is a JSON-over-stdio dispatcher for the core
// WeaverPack operations: verify, seal, redact, proof checking, and the
// governance-gated start_capture/start_stream session starters. It
// reads a single Request object from stdin and writes a single
// Response object to stdout, mirroring the request/response shape this
// codebase's other CLI tools use for scripted, one-shot invocation.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"weaver.dev/core/crypto"
	"weaver.dev/core/ledger"
	"weaver.dev/core/primitives"
	"weaver.dev/core/proofweave"
	"weaver.dev/core/weaverpack"
)

// Request is decoded from stdin. Which fields matter depends on Op.
type Request struct {
	Op           string   `json:"op"`
	ManifestPath string   `json:"manifest_path,omitempty"`
	BasePath     string   `json:"base_path,omitempty"`
	OutPath      string   `json:"out_path,omitempty"`
	PWOFPath     string   `json:"pwof_path,omitempty"`
	Patterns     []string `json:"patterns,omitempty"`

	// start_capture / start_stream fields.
	Enabled         bool   `json:"enabled,omitempty"`
	ConsentGiven    bool   `json:"consent_given,omitempty"`
	RetentionScope  string `json:"retention_scope,omitempty"`
	StreamScope     string `json:"stream_scope,omitempty"`
	GovernanceToken string `json:"governance_token,omitempty"`
	AuthorityURL    string `json:"authority_check_url,omitempty"`
	LedgerPath      string `json:"ledger_path,omitempty"`
	KEKHex          string `json:"kek_hex,omitempty"`

	// seal signing fields.
	Sign         bool   `json:"sign,omitempty"`
	PubKeyHex    string `json:"pubkey_hex,omitempty"`
	SignatureHex string `json:"signature_hex,omitempty"`
}

// Response is encoded to stdout.
type Response struct {
	Ok             bool     `json:"ok"`
	Err            string   `json:"err,omitempty"`
	Passed         bool     `json:"passed,omitempty"`
	Errors         []string `json:"errors,omitempty"`
	FilesChecked   int      `json:"files_checked,omitempty"`
	CommitmentID   string   `json:"commitment_id,omitempty"`
	CommitmentHash string   `json:"commitment_hash,omitempty"`
	Message        string   `json:"message,omitempty"`
	NodeCount      int      `json:"node_count,omitempty"`
	RulesUsed      []string `json:"rules_used,omitempty"`
	SessionID      string   `json:"session_id,omitempty"`
	AuthorityState string   `json:"authority_state,omitempty"`
	TokenPersisted bool     `json:"token_persisted,omitempty"`
	SignedDigest   string   `json:"signed_digest,omitempty"`
	SignatureValid bool     `json:"signature_valid,omitempty"`
}

func writeResp(w io.Writer, resp Response) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

// writeJSONFileFn is overridden in tests to avoid touching the filesystem.
var writeJSONFileFn = writeJSONFile

func handleRequest(req Request) Response {
	switch req.Op {
	case "verify":
		return handleVerify(req)
	case "seal":
		return handleSeal(req)
	case "redact":
		return handleRedact(req)
	case "check_proof":
		return handleCheckProof(req)
	case "start_capture":
		return handleStartCapture(req)
	case "start_stream":
		return handleStartStream(req)
	default:
		return Response{Ok: false, Err: "unknown op: " + req.Op}
	}
}

// buildAuthority wires a crypto.AuthorityMonitor to a single synchronous
// health check against checkURL (an empty URL is treated as always
// healthy, for deployments with no separately-run token authority). The
// returned monitor has already taken one reading via CheckNow.
func buildAuthority(checkURL string) *crypto.AuthorityMonitor {
	healthCheck := func() error {
		if checkURL == "" {
			return nil
		}
		client := http.Client{Timeout: 3 * time.Second}
		resp, err := client.Get(checkURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("authority check returned status %d", resp.StatusCode)
		}
		return nil
	}
	cfg := crypto.AuthorityConfigFromEnv()
	mon := crypto.NewAuthorityMonitor(cfg, healthCheck, nil)
	mon.CheckNow()
	return mon
}

// persistGovernanceToken wraps and stores a session's governance token
// in the ledger at ledgerPath, when both a ledger path and a
// hex-encoded key-encryption key are supplied.
func persistGovernanceToken(ledgerPath, kekHex, sessionID, token string) (bool, error) {
	if ledgerPath == "" || kekHex == "" {
		return false, nil
	}
	kek, err := hex.DecodeString(kekHex)
	if err != nil {
		return false, fmt.Errorf("decode kek: %w", err)
	}
	store, err := ledger.Open(ledgerPath)
	if err != nil {
		return false, err
	}
	defer store.Close()
	if err := weaverpack.PersistSessionToken(store, kek, sessionID, token); err != nil {
		return false, err
	}
	return true, nil
}

func handleStartCapture(req Request) Response {
	authority := buildAuthority(req.AuthorityURL)
	policy := weaverpack.CapturePolicy{
		Enabled:         req.Enabled,
		ConsentGiven:    req.ConsentGiven,
		RetentionScope:  weaverpack.RetentionScope(req.RetentionScope),
		GovernanceToken: req.GovernanceToken,
	}
	session, err := weaverpack.StartCapture(policy, authority)
	if err != nil {
		return Response{Ok: false, Err: err.Error(), AuthorityState: authority.State().String()}
	}
	persisted, err := persistGovernanceToken(req.LedgerPath, req.KEKHex, session.SessionID, req.GovernanceToken)
	if err != nil {
		return Response{Ok: false, Err: err.Error()}
	}
	return Response{
		Ok:             true,
		Passed:         session.Active,
		SessionID:      session.SessionID,
		AuthorityState: authority.State().String(),
		TokenPersisted: persisted,
	}
}

func handleStartStream(req Request) Response {
	authority := buildAuthority(req.AuthorityURL)
	policy := weaverpack.StreamPolicy{
		Enabled:         req.Enabled,
		Scope:           weaverpack.StreamScope(req.StreamScope),
		GovernanceToken: req.GovernanceToken,
	}
	session, err := weaverpack.StartStream(policy, authority)
	if err != nil {
		return Response{Ok: false, Err: err.Error(), AuthorityState: authority.State().String()}
	}
	persisted, err := persistGovernanceToken(req.LedgerPath, req.KEKHex, session.SessionID, req.GovernanceToken)
	if err != nil {
		return Response{Ok: false, Err: err.Error()}
	}
	return Response{
		Ok:             true,
		Passed:         session.Active,
		SessionID:      session.SessionID,
		AuthorityState: authority.State().String(),
		TokenPersisted: persisted,
	}
}

func handleVerify(req Request) Response {
	result := weaverpack.Verify(req.ManifestPath, req.BasePath)
	return Response{
		Ok:           true,
		Passed:       result.Passed,
		Errors:       result.Errors,
		FilesChecked: result.FilesChecked,
	}
}

func handleSeal(req Request) Response {
	manifest, err := weaverpack.LoadManifest(req.ManifestPath)
	if err != nil {
		return Response{Ok: false, Err: err.Error()}
	}
	commitment, err := weaverpack.Seal(manifest)
	if err != nil {
		return Response{Ok: false, Err: err.Error()}
	}

	resp := Response{
		Ok:             true,
		Passed:         commitment.Sealed,
		CommitmentID:   commitment.CommitmentID,
		CommitmentHash: commitment.CommitmentHash,
	}

	var outValue any = commitment
	if req.Sign {
		pubkey, err := hex.DecodeString(req.PubKeyHex)
		if err != nil {
			return Response{Ok: false, Err: fmt.Sprintf("decode pubkey: %v", err)}
		}
		signature, err := hex.DecodeString(req.SignatureHex)
		if err != nil {
			return Response{Ok: false, Err: fmt.Sprintf("decode signature: %v", err)}
		}
		provider := crypto.DevStdProvider{}
		signed, err := weaverpack.SignCommitment(commitment, provider, pubkey, signature)
		if err != nil {
			return Response{Ok: false, Err: err.Error()}
		}
		resp.SignedDigest = signed.Digest
		resp.SignatureValid = weaverpack.VerifySignedCommitment(signed, provider)
		outValue = signed
	}

	if req.OutPath != "" {
		if err := writeJSONFileFn(req.OutPath, outValue); err != nil {
			return Response{Ok: false, Err: err.Error()}
		}
	}
	return resp
}

func handleRedact(req Request) Response {
	manifest, err := weaverpack.LoadManifest(req.ManifestPath)
	if err != nil {
		return Response{Ok: false, Err: err.Error()}
	}
	contents := make(map[string][]byte, len(manifest.Files))
	for relPath := range manifest.Files {
		data, err := primitives.ReadFileFromDirSafe(req.BasePath, relPath)
		if err != nil {
			return Response{Ok: false, Err: fmt.Sprintf("read %s: %v", relPath, err)}
		}
		contents[relPath] = data
	}
	result, err := weaverpack.RedactManifest(manifest, req.Patterns, contents)
	if err != nil {
		return Response{Ok: false, Err: err.Error()}
	}
	if req.OutPath != "" {
		if err := writeJSONFileFn(req.OutPath, result.Manifest); err != nil {
			return Response{Ok: false, Err: err.Error()}
		}
	}
	return Response{Ok: true, Passed: true}
}

func handleCheckProof(req Request) Response {
	data, err := os.ReadFile(req.PWOFPath)
	if err != nil {
		return Response{Ok: false, Err: err.Error()}
	}
	var pwof proofweave.ProofObject
	if err := json.Unmarshal(data, &pwof); err != nil {
		return Response{Ok: false, Err: err.Error()}
	}
	result := proofweave.Check(pwof)
	return Response{
		Ok:        true,
		Passed:    result.Passed,
		Message:   result.Message,
		NodeCount: result.NodeCount,
		RulesUsed: result.RulesUsed,
	}
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResp(os.Stdout, Response{Ok: false, Err: fmt.Sprintf("bad request: %v", err)})
		return
	}
	writeResp(os.Stdout, handleRequest(req))
}

func writeJSONFile(path string, v any) error {
	data, err := primitives.CanonicalJSONPretty(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
