package weaverpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseManifestForFission() Manifest {
	entries := map[string]ManifestFileEntry{
		"a.txt": {SHA256: "aaaa", Size: 10},
		"b.txt": {SHA256: "bbbb", Size: 20},
		"c.txt": {SHA256: "cccc", Size: 5},
	}
	m := Manifest{
		ManifestID:         "RWMF-source",
		WeaverPackID:       "RWPK-source",
		Authorship:         "tester",
		License:            "WCL-1.0",
		Sensitivity:        DefaultSensitivity(),
		Files:              entries,
		InvariantsDeclared: []string{"RW-C9"},
	}
	m.PackHash = m.ComputePackHash()
	return m
}

func TestFissionRequiresTwoChildren(t *testing.T) {
	source := baseManifestForFission()
	plan := SplitPlan{ChildLabels: []string{"only"}}
	result := Fission(source, plan, nil)
	require.False(t, result.Passed)
	require.NotEmpty(t, result.Errors)
}

func TestFissionRejectsSourceIntegrityFailure(t *testing.T) {
	source := baseManifestForFission()
	source.PackHash = "corrupted"
	plan := SplitPlan{
		ChildLabels: []string{"c1", "c2"},
		Directives: []SplitDirective{
			{SourcePath: "a.txt", ChildIndex: 0, Transform: TransformCopy},
			{SourcePath: "b.txt", ChildIndex: 1, Transform: TransformCopy},
			{SourcePath: "c.txt", ChildIndex: 1, Transform: TransformCopy},
		},
	}
	result := Fission(source, plan, nil)
	require.False(t, result.Passed)
}

func TestFissionRejectsSilentSplit(t *testing.T) {
	source := baseManifestForFission()
	plan := SplitPlan{
		ChildLabels: []string{"c1", "c2"},
		Directives: []SplitDirective{
			{SourcePath: "a.txt", ChildIndex: 0, Transform: TransformCopy},
			// b.txt and c.txt unaccounted for
		},
	}
	result := Fission(source, plan, nil)
	require.False(t, result.Passed)
	require.Contains(t, result.Errors[0], "Silent split")
}

func TestFissionSplitsCleanlyWithDrop(t *testing.T) {
	source := baseManifestForFission()
	plan := SplitPlan{
		ChildLabels: []string{"c1", "c2"},
		Directives: []SplitDirective{
			{SourcePath: "a.txt", ChildIndex: 0, Transform: TransformCopy},
			{SourcePath: "b.txt", ChildIndex: 1, Transform: TransformCopy},
			{SourcePath: "c.txt", Transform: TransformDrop},
		},
	}
	result := Fission(source, plan, nil)
	require.True(t, result.Passed, "errors: %v", result.Errors)
	require.Len(t, result.ChildManifests, 2)
	require.Contains(t, result.ChildManifests[0].Files, "a.txt")
	require.Contains(t, result.ChildManifests[1].Files, "b.txt")
	require.True(t, result.LineageMap.LossSummary.HasLoss)
	require.Equal(t, []string{"c.txt"}, result.LineageMap.LossSummary.DroppedFiles)
	require.Equal(t, int64(5), result.LineageMap.LossSummary.TotalBytesLost)
	for _, cm := range result.ChildManifests {
		require.Equal(t, cm.ComputePackHash(), cm.PackHash)
		require.Equal(t, source.ManifestID, *cm.ParentManifestID)
	}
}

func TestFissionSliceTransformUsesFileContents(t *testing.T) {
	source := baseManifestForFission()
	plan := SplitPlan{
		ChildLabels: []string{"c1", "c2"},
		Directives: []SplitDirective{
			{SourcePath: "a.txt", ChildIndex: 0, Transform: TransformSlice, SliceOffset: 0, SliceLength: 4, Lossy: true},
			{SourcePath: "b.txt", ChildIndex: 1, Transform: TransformCopy},
			{SourcePath: "c.txt", ChildIndex: 1, Transform: TransformCopy},
		},
	}
	contents := map[string][]byte{"a.txt": []byte("0123456789")}
	result := Fission(source, plan, contents)
	require.True(t, result.Passed, "errors: %v", result.Errors)
	entry := result.ChildManifests[0].Files["a.txt"]
	require.Equal(t, int64(4), entry.Size)
	require.Contains(t, result.LineageMap.LossSummary.TruncatedFiles, "a.txt")
}
