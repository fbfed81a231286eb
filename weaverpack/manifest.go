package weaverpack

import (
	"encoding/json"
	"os"

	"weaver.dev/core/primitives"
)

// SchemaVersion is the manifest/receipt/ledger schema version this
// package reads and writes.
const SchemaVersion = "0.1.0"

// ManifestFileEntry is one file's content-addressed record within a
// manifest's files map.
type ManifestFileEntry struct {
	SHA256      string  `json:"sha256"`
	Size        int64   `json:"size"`
	ContentType *string `json:"content_type,omitempty"`
}

// Sensitivity carries a manifest's disclosure/PII posture.
type Sensitivity struct {
	PIIRisk           string `json:"pii_risk"`
	ContainsPersonal  bool   `json:"contains_personal"`
	Redacted          bool   `json:"redacted"`
}

// DefaultSensitivity is the conservative default: no declared PII risk,
// not personal, not redacted.
func DefaultSensitivity() Sensitivity {
	return Sensitivity{PIIRisk: "none", ContainsPersonal: false, Redacted: false}
}

// Timebase records the epoch and resolution a manifest's contents are
// timestamped against.
type Timebase struct {
	Epoch            string  `json:"epoch"`
	ResolutionNS     int64   `json:"resolution_ns"`
	AlignmentMapRef  *string `json:"alignment_map_ref,omitempty"`
}

// LineageEntry records one provenance-preserving operation applied to a
// manifest (redact, fission, fusion).
type LineageEntry struct {
	Operation        string  `json:"operation"`
	SourceManifestID string  `json:"source_manifest_id"`
	Timestamp        string  `json:"timestamp"`
	ReceiptRef       *string `json:"receipt_ref,omitempty"`
}

// Manifest is a WeaverPack manifest document.
type Manifest struct {
	SchemaVersion      string                       `json:"schema_version"`
	ManifestID         string                       `json:"manifest_id"`
	CreatedAt          string                       `json:"created_at"`
	WeaverPackID       string                       `json:"weaverpack_id"`
	ParentManifestID   *string                      `json:"parent_manifest_id,omitempty"`
	Lineage            []LineageEntry               `json:"lineage,omitempty"`
	Authorship         string                       `json:"authorship"`
	License            string                       `json:"license"`
	DisclosureTier     string                       `json:"disclosure_tier,omitempty"`
	Sensitivity        Sensitivity                  `json:"sensitivity"`
	Timebase           Timebase                     `json:"timebase,omitempty"`
	Files              map[string]ManifestFileEntry `json:"files"`
	PackHash           string                       `json:"pack_hash"`
	InvariantsDeclared []string                     `json:"invariants_declared"`
}

// toPrimitivesFiles converts the manifest's file map to the shape
// primitives.ComputePackHash expects.
func toPrimitivesFiles(files map[string]ManifestFileEntry) map[string]primitives.FileEntry {
	out := make(map[string]primitives.FileEntry, len(files))
	for path, entry := range files {
		out[path] = primitives.FileEntry{SHA256: entry.SHA256}
	}
	return out
}

// ComputePackHash recomputes the manifest's pack_hash from its current
// file entries.
func (m *Manifest) ComputePackHash() string {
	return primitives.ComputePackHash(toPrimitivesFiles(m.Files))
}

// LoadManifest reads and parses a manifest JSON file from disk.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, wpErr(ErrLoad, "read manifest: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, wpErr(ErrLoad, "parse manifest: %v", err)
	}
	return m, nil
}

// requiredManifestFields lists the top-level fields a manifest must
// carry to pass schema validation.
var requiredManifestFields = []string{
	"schema_version", "manifest_id", "created_at", "weaverpack_id",
	"authorship", "license", "files", "pack_hash", "invariants_declared",
}

// VerifyManifestSchema checks that a raw decoded manifest document
// carries every required field, operating on the generic JSON shape so
// it can flag a missing field even when Manifest's Go zero values would
// otherwise mask the omission.
func VerifyManifestSchema(raw map[string]any) []string {
	var errs []string
	for _, field := range requiredManifestFields {
		if _, ok := raw[field]; !ok {
			errs = append(errs, "Missing required field: "+field)
		}
	}
	if files, ok := raw["files"]; ok {
		if _, isObj := files.(map[string]any); !isObj {
			errs = append(errs, "'files' must be an object")
		}
	}
	if inv, ok := raw["invariants_declared"]; ok {
		if _, isArr := inv.([]any); !isArr {
			errs = append(errs, "'invariants_declared' must be an array")
		}
	}
	return errs
}
