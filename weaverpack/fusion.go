package weaverpack

import (
	"fmt"
	"sort"

	"weaver.dev/core/primitives"
)

// Resolution names how a fusion conflict was settled.
type Resolution string

const (
	ResolutionUnresolved   Resolution = "unresolved"
	ResolutionTakePrimary  Resolution = "take_primary"
	ResolutionTakeSecondary Resolution = "take_secondary"
	ResolutionSkip         Resolution = "skip"
)

// SourceRole names a source manifest's role in a merge plan.
type SourceRole string

const (
	RolePrimary   SourceRole = "primary"
	RoleSecondary SourceRole = "secondary"
)

// MergeSourceRef names one source manifest and its role in a merge.
type MergeSourceRef struct {
	ManifestID string
	Role       SourceRole
}

// FileResolution is an explicit directive for resolving one conflicting
// path.
type FileResolution struct {
	Path       string
	Resolution Resolution
	Note       string
}

// MergePlan is the explicit plan driving a fusion operation (RW-C8: no
// silent merge).
type MergePlan struct {
	MergePlanID        string
	SourceManifests    []MergeSourceRef
	TargetWeaverPackID string
	Strategy           string
	FileResolutions    []FileResolution
	TimebaseAlignment  TimebaseAlignment
	LicenseResolution  LicenseResolution
}

// TimebaseAlignment names the canonical timebase a merge target adopts.
type TimebaseAlignment struct {
	CanonicalEpoch string
	ResolutionNS   int64
}

// LicenseResolution names the license a merge target adopts.
type LicenseResolution struct {
	ResolvedLicense string
}

// ConflictSource is one source's version of a conflicting path.
type ConflictSource struct {
	ManifestID string `json:"manifest_id"`
	SHA256     string `json:"sha256"`
	Size       int64  `json:"size"`
}

// Conflict is one path that diverged across source manifests.
type Conflict struct {
	ConflictID       string           `json:"conflict_id"`
	Path             string           `json:"path"`
	ConflictType     string           `json:"conflict_type"`
	Sources          []ConflictSource `json:"sources"`
	Resolution       Resolution       `json:"resolution"`
	Resolved         bool             `json:"resolved"`
	ResolutionDetail string           `json:"resolution_detail"`
	ResultingSHA256  string           `json:"resulting_sha256,omitempty"`
}

// ConflictSummary totals the conflict ledger's resolution state.
type ConflictSummary struct {
	TotalConflicts  int  `json:"total_conflicts"`
	ResolvedCount   int  `json:"resolved_count"`
	UnresolvedCount int  `json:"unresolved_count"`
	AllResolved     bool `json:"all_resolved"`
}

// ConflictLedger is always emitted by Fusion (RW-C8), whether or not
// every conflict was resolved.
type ConflictLedger struct {
	SchemaVersion   string          `json:"schema_version"`
	LedgerID        string          `json:"ledger_id"`
	CreatedAt       string          `json:"created_at"`
	MergePlanID     string          `json:"merge_plan_id"`
	SourceManifests []string        `json:"source_manifests"`
	Conflicts       []Conflict      `json:"conflicts"`
	Summary         ConflictSummary `json:"summary"`
}

// FusionResult is the outcome of a fusion operation.
type FusionResult struct {
	TargetManifest *Manifest
	ConflictLedger *ConflictLedger
	Errors         []string
	Passed         bool
}

// ValidateMergePlan enforces RW-C8: a merge plan must exist, name every
// required field, and reference at least two sources.
func ValidateMergePlan(plan *MergePlan) []string {
	var errs []string
	if plan == nil {
		return []string{"Merge plan is required (RW-C8: no silent fusion)."}
	}
	if plan.MergePlanID == "" {
		errs = append(errs, "Merge plan missing required field: merge_plan_id")
	}
	if plan.TargetWeaverPackID == "" {
		errs = append(errs, "Merge plan missing required field: target_weaverpack_id")
	}
	if plan.Strategy == "" {
		errs = append(errs, "Merge plan missing required field: strategy")
	}
	if len(plan.SourceManifests) < 2 {
		errs = append(errs, "Merge plan must reference at least 2 source manifests.")
	}
	return errs
}

type sourceAndEntry struct {
	manifestID string
	entry      ManifestFileEntry
}

func detectConflicts(sources []Manifest) []Conflict {
	allPaths := map[string][]sourceAndEntry{}
	var pathOrder []string
	for _, mf := range sources {
		for path, entry := range mf.Files {
			if _, seen := allPaths[path]; !seen {
				pathOrder = append(pathOrder, path)
			}
			allPaths[path] = append(allPaths[path], sourceAndEntry{manifestID: mf.ManifestID, entry: entry})
		}
	}
	sort.Strings(pathOrder)

	var conflicts []Conflict
	conflictCounter := 0
	for _, path := range pathOrder {
		entries := allPaths[path]
		if len(entries) < 2 {
			continue
		}
		hashes := map[string]bool{}
		for _, e := range entries {
			hashes[e.entry.SHA256] = true
		}
		if len(hashes) <= 1 {
			continue
		}
		conflictCounter++
		var csources []ConflictSource
		for _, e := range entries {
			csources = append(csources, ConflictSource{ManifestID: e.manifestID, SHA256: e.entry.SHA256, Size: e.entry.Size})
		}
		conflicts = append(conflicts, Conflict{
			ConflictID:   fmt.Sprintf("RWCF-%04d", conflictCounter),
			Path:         path,
			ConflictType: "content_divergence",
			Sources:      csources,
			Resolution:   ResolutionUnresolved,
			Resolved:     false,
		})
	}
	return conflicts
}

func resolveConflicts(conflicts []Conflict, plan MergePlan) []Conflict {
	resolutionMap := map[string]FileResolution{}
	for _, r := range plan.FileResolutions {
		resolutionMap[r.Path] = r
	}

	var primaryID, secondaryID string
	for _, s := range plan.SourceManifests {
		if s.Role == RolePrimary {
			primaryID = s.ManifestID
		} else if s.Role == RoleSecondary {
			secondaryID = s.ManifestID
		}
	}

	out := make([]Conflict, len(conflicts))
	for i, c := range conflicts {
		directive, ok := resolutionMap[c.Path]
		if !ok {
			out[i] = c
			continue
		}
		c.Resolution = directive.Resolution
		c.ResolutionDetail = directive.Note

		switch {
		case directive.Resolution == ResolutionTakePrimary && primaryID != "":
			for _, src := range c.Sources {
				if src.ManifestID == primaryID {
					c.ResultingSHA256 = src.SHA256
					c.Resolved = true
					break
				}
			}
		case directive.Resolution == ResolutionTakeSecondary && secondaryID != "":
			for _, src := range c.Sources {
				if src.ManifestID == secondaryID {
					c.ResultingSHA256 = src.SHA256
					c.Resolved = true
					break
				}
			}
		case directive.Resolution == ResolutionSkip:
			c.Resolved = true
			c.ResultingSHA256 = ""
		default:
			c.Resolved = directive.Resolution != ResolutionUnresolved
		}
		out[i] = c
	}
	return out
}

func buildTargetFiles(sources []Manifest, conflicts []Conflict) map[string]ManifestFileEntry {
	conflictPaths := map[string]bool{}
	for _, c := range conflicts {
		conflictPaths[c.Path] = true
	}

	target := map[string]ManifestFileEntry{}
	for _, mf := range sources {
		for path, entry := range mf.Files {
			if conflictPaths[path] {
				continue
			}
			if _, exists := target[path]; !exists {
				target[path] = entry
			}
		}
	}

	for _, c := range conflicts {
		if !c.Resolved || c.ResultingSHA256 == "" {
			continue
		}
		for _, src := range c.Sources {
			if src.SHA256 == c.ResultingSHA256 {
				target[c.Path] = ManifestFileEntry{SHA256: src.SHA256, Size: src.Size}
				break
			}
		}
	}

	return target
}

// Fusion merges multiple source manifests into one target (RW-C8):
// every source must pass integrity, the plan must be explicit and
// reference at least two sources, and every detected conflict is
// recorded in the returned conflict ledger whether or not it was
// resolved. Passed is true only when every conflict was resolved.
func Fusion(sources []Manifest, plan MergePlan) FusionResult {
	result := FusionResult{}

	if errs := ValidateMergePlan(&plan); len(errs) > 0 {
		result.Errors = errs
		return result
	}

	for _, mf := range sources {
		expected := mf.ComputePackHash()
		if expected != mf.PackHash {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"Source manifest %s integrity failure (RW-C1): expected %s, got %s",
				mf.ManifestID, expected, mf.PackHash))
		}
	}
	if len(result.Errors) > 0 {
		return result
	}

	conflicts := detectConflicts(sources)
	conflicts = resolveConflicts(conflicts, plan)

	var unresolvedCount, resolvedCount int
	for _, c := range conflicts {
		if c.Resolved {
			resolvedCount++
		} else {
			unresolvedCount++
		}
	}

	sourceIDs := make([]string, len(sources))
	for i, mf := range sources {
		sourceIDs[i] = mf.ManifestID
	}

	result.ConflictLedger = &ConflictLedger{
		SchemaVersion:   SchemaVersion,
		LedgerID:        primitives.GenerateID("RWCL"),
		CreatedAt:       primitives.NowUTC(),
		MergePlanID:     plan.MergePlanID,
		SourceManifests: sourceIDs,
		Conflicts:       conflicts,
		Summary: ConflictSummary{
			TotalConflicts:  len(conflicts),
			ResolvedCount:   resolvedCount,
			UnresolvedCount: unresolvedCount,
			AllResolved:     unresolvedCount == 0,
		},
	}

	targetFiles := buildTargetFiles(sources, conflicts)

	resolvedLicense := plan.LicenseResolution.ResolvedLicense
	if resolvedLicense == "" {
		resolvedLicense = "WCL-1.0"
	}

	var lineage []LineageEntry
	for _, mf := range sources {
		lineage = append(lineage, LineageEntry{
			Operation:        "fusion",
			SourceManifestID: mf.ManifestID,
			Timestamp:        primitives.NowUTC(),
		})
	}

	first := sources[0]
	epoch := plan.TimebaseAlignment.CanonicalEpoch
	if epoch == "" {
		epoch = primitives.NowUTC()
	}
	resolutionNS := plan.TimebaseAlignment.ResolutionNS
	if resolutionNS == 0 {
		resolutionNS = 1_000_000
	}

	target := Manifest{
		SchemaVersion:  SchemaVersion,
		ManifestID:     primitives.GenerateID("RWMF"),
		CreatedAt:      primitives.NowUTC(),
		WeaverPackID:   plan.TargetWeaverPackID,
		Lineage:        lineage,
		Authorship:     first.Authorship,
		License:        resolvedLicense,
		DisclosureTier: first.DisclosureTier,
		Sensitivity:    first.Sensitivity,
		Timebase: Timebase{
			Epoch:        epoch,
			ResolutionNS: resolutionNS,
		},
		Files:              targetFiles,
		InvariantsDeclared: append([]string(nil), first.InvariantsDeclared...),
	}
	target.PackHash = target.ComputePackHash()
	result.TargetManifest = &target

	result.Passed = unresolvedCount == 0
	return result
}
