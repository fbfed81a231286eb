package weaverpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildIndexLooksUpByPathAndHash(t *testing.T) {
	manifests := []Manifest{
		{
			ManifestID: "mf1",
			Files: map[string]ManifestFileEntry{
				"a.txt": {SHA256: "hash-a", Size: 1},
				"b.txt": {SHA256: "hash-b", Size: 2},
			},
		},
		{
			ManifestID: "mf2",
			Files: map[string]ManifestFileEntry{
				"a.txt": {SHA256: "hash-a", Size: 1},
			},
		},
	}

	idx := BuildIndex(manifests)
	require.Equal(t, 3, idx.FileCount())
	require.Equal(t, 2, idx.UniqueHashes())

	byPath := idx.LookupPath("a.txt")
	require.Len(t, byPath, 2)

	byHash := idx.LookupHash("hash-a")
	require.Len(t, byHash, 2)

	require.Empty(t, idx.LookupPath("nonexistent.txt"))
}

func TestIndexAddIncrementally(t *testing.T) {
	idx := NewIndex()
	idx.Add(IndexEntry{Path: "x.txt", SHA256: "h1", Size: 10, ManifestID: "m1"})
	idx.Add(IndexEntry{Path: "x.txt", SHA256: "h1", Size: 10, ManifestID: "m2"})

	require.Equal(t, 2, idx.FileCount())
	require.Equal(t, 1, idx.UniqueHashes())
}
