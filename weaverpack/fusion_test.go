package weaverpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func manifestForFusion(id string, files map[string]ManifestFileEntry) Manifest {
	m := Manifest{
		ManifestID:     id,
		WeaverPackID:   "RWPK-" + id,
		Authorship:     "tester",
		License:        "WCL-1.0",
		Sensitivity:    DefaultSensitivity(),
		DisclosureTier: "internal",
		Files:          files,
	}
	m.PackHash = m.ComputePackHash()
	return m
}

func TestFusionRejectsMissingPlan(t *testing.T) {
	result := Fusion(nil, MergePlan{})
	require.False(t, result.Passed)
	require.NotEmpty(t, result.Errors)
}

func TestFusionRejectsFewerThanTwoSources(t *testing.T) {
	plan := MergePlan{
		MergePlanID:        "RWMP-1",
		TargetWeaverPackID: "RWPK-target",
		Strategy:           "union",
		SourceManifests:    []MergeSourceRef{{ManifestID: "a", Role: RolePrimary}},
	}
	result := Fusion(nil, plan)
	require.False(t, result.Passed)
}

func TestFusionRejectsIntegrityFailure(t *testing.T) {
	a := manifestForFusion("a", map[string]ManifestFileEntry{"x.txt": {SHA256: "1", Size: 1}})
	a.PackHash = "corrupted"
	b := manifestForFusion("b", map[string]ManifestFileEntry{"y.txt": {SHA256: "2", Size: 2}})

	plan := MergePlan{
		MergePlanID:        "RWMP-1",
		TargetWeaverPackID: "RWPK-target",
		Strategy:           "union",
		SourceManifests: []MergeSourceRef{
			{ManifestID: "a", Role: RolePrimary},
			{ManifestID: "b", Role: RoleSecondary},
		},
	}
	result := Fusion([]Manifest{a, b}, plan)
	require.False(t, result.Passed)
}

func TestFusionMergesNonConflictingFiles(t *testing.T) {
	a := manifestForFusion("a", map[string]ManifestFileEntry{"x.txt": {SHA256: "1", Size: 1}})
	b := manifestForFusion("b", map[string]ManifestFileEntry{"y.txt": {SHA256: "2", Size: 2}})

	plan := MergePlan{
		MergePlanID:        "RWMP-1",
		TargetWeaverPackID: "RWPK-target",
		Strategy:           "union",
		SourceManifests: []MergeSourceRef{
			{ManifestID: "a", Role: RolePrimary},
			{ManifestID: "b", Role: RoleSecondary},
		},
	}
	result := Fusion([]Manifest{a, b}, plan)
	require.True(t, result.Passed, "errors: %v", result.Errors)
	require.NotNil(t, result.TargetManifest)
	require.Contains(t, result.TargetManifest.Files, "x.txt")
	require.Contains(t, result.TargetManifest.Files, "y.txt")
	require.Equal(t, 0, result.ConflictLedger.Summary.TotalConflicts)
}

func TestFusionDetectsAndResolvesConflict(t *testing.T) {
	a := manifestForFusion("a", map[string]ManifestFileEntry{"shared.txt": {SHA256: "hash-a", Size: 1}})
	b := manifestForFusion("b", map[string]ManifestFileEntry{"shared.txt": {SHA256: "hash-b", Size: 2}})

	plan := MergePlan{
		MergePlanID:        "RWMP-2",
		TargetWeaverPackID: "RWPK-target",
		Strategy:           "manual",
		SourceManifests: []MergeSourceRef{
			{ManifestID: "a", Role: RolePrimary},
			{ManifestID: "b", Role: RoleSecondary},
		},
		FileResolutions: []FileResolution{
			{Path: "shared.txt", Resolution: ResolutionTakePrimary, Note: "keep a's version"},
		},
	}
	result := Fusion([]Manifest{a, b}, plan)
	require.True(t, result.Passed, "errors: %v", result.Errors)
	require.Equal(t, 1, result.ConflictLedger.Summary.TotalConflicts)
	require.Equal(t, 1, result.ConflictLedger.Summary.ResolvedCount)
	require.Equal(t, "hash-a", result.TargetManifest.Files["shared.txt"].SHA256)
}

func TestFusionLeavesUnresolvedConflictUnpassed(t *testing.T) {
	a := manifestForFusion("a", map[string]ManifestFileEntry{"shared.txt": {SHA256: "hash-a", Size: 1}})
	b := manifestForFusion("b", map[string]ManifestFileEntry{"shared.txt": {SHA256: "hash-b", Size: 2}})

	plan := MergePlan{
		MergePlanID:        "RWMP-3",
		TargetWeaverPackID: "RWPK-target",
		Strategy:           "manual",
		SourceManifests: []MergeSourceRef{
			{ManifestID: "a", Role: RolePrimary},
			{ManifestID: "b", Role: RoleSecondary},
		},
	}
	result := Fusion([]Manifest{a, b}, plan)
	require.False(t, result.Passed)
	require.Equal(t, 1, result.ConflictLedger.Summary.UnresolvedCount)
}
