package weaverpack

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	"weaver.dev/core/primitives"
)

// RedactionToken replaces every redacted match.
const RedactionToken = "[[REDACTED]]"

// RedactionEntry records one pattern's redaction of one file.
type RedactionEntry struct {
	Path            string
	Pattern         string
	Occurrences     int
	OriginalSHA256  string
	RedactedSHA256  string
}

// RedactionResult is the outcome of redacting a manifest (RW-C4).
type RedactionResult struct {
	Manifest     Manifest
	Redactions   []RedactionEntry
	LineageEntry *LineageEntry
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RedactBytes applies every pattern to data in order, replacing each
// match with RedactionToken. Non-destructive: data itself is untouched;
// the rewritten bytes are returned alongside the patterns that matched
// and how many times.
func RedactBytes(data []byte, patterns []string) ([]byte, []RedactionEntry) {
	text := string(data)
	var applied []RedactionEntry
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		matches := re.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		text = re.ReplaceAllString(text, RedactionToken)
		applied = append(applied, RedactionEntry{Pattern: pattern, Occurrences: len(matches)})
	}
	return []byte(text), applied
}

// RedactManifest produces a redacted copy of manifest and its named
// file contents (RW-C4): the original is untouched, the copy gets a
// fresh manifest_id, a lineage entry pointing back to the source, and a
// recomputed pack_hash. Requires at least one pattern.
func RedactManifest(manifest Manifest, patterns []string, fileContents map[string][]byte) (RedactionResult, error) {
	if len(patterns) == 0 {
		return RedactionResult{}, wpErr(ErrNoPatterns, "redaction requires at least one pattern (RW-C4)")
	}

	newManifest := deepCopyManifest(manifest)
	oldManifestID := manifest.ManifestID
	newManifest.ManifestID = primitives.GenerateID("RWMF")

	var redactions []RedactionEntry
	for relPath, content := range fileContents {
		entry, ok := newManifest.Files[relPath]
		if !ok {
			continue
		}
		originalSHA := sha256Hex(content)
		redactedContent, applied := RedactBytes(content, patterns)
		if len(applied) == 0 {
			continue
		}
		redactedSHA := sha256Hex(redactedContent)
		entry.SHA256 = redactedSHA
		entry.Size = int64(len(redactedContent))
		newManifest.Files[relPath] = entry
		for _, a := range applied {
			redactions = append(redactions, RedactionEntry{
				Path:           relPath,
				Pattern:        a.Pattern,
				Occurrences:    a.Occurrences,
				OriginalSHA256: originalSHA,
				RedactedSHA256: redactedSHA,
			})
		}
	}

	newManifest.Sensitivity.Redacted = true

	lineageEntry := LineageEntry{
		Operation:        "redact",
		SourceManifestID: oldManifestID,
		Timestamp:        primitives.NowUTC(),
	}
	newManifest.Lineage = append(newManifest.Lineage, lineageEntry)

	newManifest.PackHash = newManifest.ComputePackHash()

	return RedactionResult{
		Manifest:     newManifest,
		Redactions:   redactions,
		LineageEntry: &lineageEntry,
	}, nil
}

// VerifyRedactionLineage checks that a redacted manifest declares a
// valid lineage entry back to its source (RW-C4).
func VerifyRedactionLineage(manifest Manifest) []string {
	var errs []string
	if !manifest.Sensitivity.Redacted {
		errs = append(errs, "Manifest marked as redacted but sensitivity.redacted is false.")
	}
	var redactEntries []LineageEntry
	for _, e := range manifest.Lineage {
		if e.Operation == "redact" {
			redactEntries = append(redactEntries, e)
		}
	}
	if len(redactEntries) == 0 {
		errs = append(errs, "Redacted manifest has no redaction lineage entry (RW-C4 violation).")
	}
	for _, e := range redactEntries {
		if e.SourceManifestID == "" {
			errs = append(errs, "Redaction lineage entry missing source_manifest_id.")
		}
	}
	return errs
}

func deepCopyManifest(m Manifest) Manifest {
	out := m
	out.Lineage = append([]LineageEntry(nil), m.Lineage...)
	out.InvariantsDeclared = append([]string(nil), m.InvariantsDeclared...)
	out.Files = make(map[string]ManifestFileEntry, len(m.Files))
	for k, v := range m.Files {
		out.Files[k] = v
	}
	return out
}
