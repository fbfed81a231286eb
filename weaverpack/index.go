package weaverpack

// IndexEntry is a single non-semantic record in a WeaverPack Index: a
// path, its content hash and size, and the manifest it came from.
type IndexEntry struct {
	Path        string
	SHA256      string
	Size        int64
	ManifestID  string
	ContentType string
}

// Index is a non-semantic content index over a set of manifests' files,
// addressable by path or by hash. Semantic indexing (content
// understanding beyond path/hash/size) requires a governance permit and
// is not implemented here.
type Index struct {
	entries []IndexEntry
	byPath  map[string][]IndexEntry
	byHash  map[string][]IndexEntry
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{byPath: map[string][]IndexEntry{}, byHash: map[string][]IndexEntry{}}
}

// Add records one entry in the index.
func (idx *Index) Add(entry IndexEntry) {
	idx.entries = append(idx.entries, entry)
	idx.byPath[entry.Path] = append(idx.byPath[entry.Path], entry)
	idx.byHash[entry.SHA256] = append(idx.byHash[entry.SHA256], entry)
}

// LookupPath returns every entry recorded under path.
func (idx *Index) LookupPath(path string) []IndexEntry {
	return idx.byPath[path]
}

// LookupHash returns every entry recorded under a SHA-256 hash.
func (idx *Index) LookupHash(sha256 string) []IndexEntry {
	return idx.byHash[sha256]
}

// FileCount returns the total number of indexed files.
func (idx *Index) FileCount() int {
	return len(idx.entries)
}

// UniqueHashes returns the number of distinct content hashes indexed.
func (idx *Index) UniqueHashes() int {
	return len(idx.byHash)
}

// BuildIndex builds a non-semantic Index from a set of manifests,
// indexing every file entry by path, hash, and size only.
func BuildIndex(manifests []Manifest) *Index {
	idx := NewIndex()
	for _, mf := range manifests {
		mfID := mf.ManifestID
		if mfID == "" {
			mfID = "unknown"
		}
		for path, entry := range mf.Files {
			contentType := ""
			if entry.ContentType != nil {
				contentType = *entry.ContentType
			}
			idx.Add(IndexEntry{
				Path:        path,
				SHA256:      entry.SHA256,
				Size:        entry.Size,
				ManifestID:  mfID,
				ContentType: contentType,
			})
		}
	}
	return idx
}
