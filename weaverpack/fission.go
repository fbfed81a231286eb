package weaverpack

import (
	"sort"

	"weaver.dev/core/primitives"
)

// Transform names how a fission directive carries a source file into a
// child.
type Transform string

const (
	TransformCopy   Transform = "copy"
	TransformSlice  Transform = "slice"
	TransformFilter Transform = "filter"
	TransformRedact Transform = "redact"
	TransformDrop   Transform = "drop"
)

// SplitDirective assigns one source file to a child, optionally under a
// different path and transform.
type SplitDirective struct {
	SourcePath   string
	ChildIndex   int
	DestPath     string
	Transform    Transform
	SliceOffset  int64
	SliceLength  int64
	Lossy        bool
}

// SplitPlan is the explicit plan driving a fission operation.
type SplitPlan struct {
	ChildLabels    []string
	Directives     []SplitDirective
	TimebasePolicy string
	LicensePolicy  string
}

// SliceRange describes the byte range of a slice-transformed file.
type SliceRange struct {
	OffsetBytes int64 `json:"offset_bytes"`
	LengthBytes int64 `json:"length_bytes"`
}

// FileDestination is one child's assignment of a source file.
type FileDestination struct {
	ChildManifestID string      `json:"child_manifest_id"`
	DestPath        string      `json:"dest_path"`
	Transform       Transform   `json:"transform"`
	SliceRange      *SliceRange `json:"slice_range,omitempty"`
	Lossy           bool        `json:"lossy"`
}

// FileMapping records every destination a single source path was split
// into (empty if the path was dropped).
type FileMapping struct {
	SourcePath   string            `json:"source_path"`
	Destinations []FileDestination `json:"destinations"`
}

// ChildRef is a minimal reference to one fission child.
type ChildRef struct {
	ManifestID   string `json:"manifest_id"`
	WeaverPackID string `json:"weaverpack_id"`
	Label        string `json:"label"`
}

// TimebaseMapping records a child's timebase relative to its source.
type TimebaseMapping struct {
	ChildManifestID   string `json:"child_manifest_id"`
	Epoch             string `json:"epoch"`
	ResolutionNS      int64  `json:"resolution_ns"`
	OffsetFromSourceNS int64 `json:"offset_from_source_ns"`
}

// LossSummary declares anything fission did not carry forward losslessly
// (RW-C9: no silent split — loss must be declared, not omitted).
type LossSummary struct {
	HasLoss         bool     `json:"has_loss"`
	DroppedFiles    []string `json:"dropped_files"`
	TruncatedFiles  []string `json:"truncated_files"`
	TotalBytesLost  int64    `json:"total_bytes_lost"`
}

// ChildLicense names the license a single child carries forward.
type ChildLicense struct {
	ChildManifestID string `json:"child_manifest_id"`
	License         string `json:"license"`
}

// LicenseCarryForward records how the source license propagated to
// each child (RW-C11).
type LicenseCarryForward struct {
	SourceLicense        string         `json:"source_license"`
	ChildrenLicenses     []ChildLicense `json:"children_licenses"`
	AttributionPreserved bool           `json:"attribution_preserved"`
}

// SourceManifestRef is a minimal reference to the fissioned source.
type SourceManifestRef struct {
	ManifestID   string `json:"manifest_id"`
	WeaverPackID string `json:"weaverpack_id"`
	PackHash     string `json:"pack_hash"`
}

// LineageMap is the full record of how a fission split a source
// manifest into its children, including declared loss.
type LineageMap struct {
	SchemaVersion       string              `json:"schema_version"`
	LineageMapID        string              `json:"lineage_map_id"`
	CreatedAt           string              `json:"created_at"`
	SourceManifest      SourceManifestRef   `json:"source_manifest"`
	Children            []ChildRef          `json:"children"`
	FileMappings        []FileMapping       `json:"file_mappings"`
	TimebaseMappings    []TimebaseMapping   `json:"timebase_mappings"`
	LossSummary         LossSummary         `json:"loss_summary"`
	LicenseCarryForward LicenseCarryForward `json:"license_carry_forward"`
}

// FissionResult is the outcome of a fission operation.
type FissionResult struct {
	LineageMap     LineageMap
	ChildManifests []Manifest
	Errors         []string
	Passed         bool
}

func buildChildManifest(source Manifest, childFiles map[string]ManifestFileEntry) Manifest {
	childManifestID := primitives.GenerateID("RWMF")
	childWeaverPackID := primitives.GenerateID("RWPK")

	timebase := source.Timebase
	if timebase.Epoch == "" {
		timebase = Timebase{Epoch: primitives.NowUTC(), ResolutionNS: 1_000_000}
	}

	license := source.License
	if license == "" {
		license = "WCL-1.0"
	}
	disclosureTier := source.DisclosureTier
	if disclosureTier == "" {
		disclosureTier = "internal"
	}
	sensitivity := source.Sensitivity
	if sensitivity == (Sensitivity{}) {
		sensitivity = DefaultSensitivity()
	}

	child := Manifest{
		SchemaVersion:    SchemaVersion,
		ManifestID:       childManifestID,
		CreatedAt:        primitives.NowUTC(),
		WeaverPackID:     childWeaverPackID,
		ParentManifestID: &source.ManifestID,
		Lineage: []LineageEntry{{
			Operation:        "fission",
			SourceManifestID: source.ManifestID,
			Timestamp:        primitives.NowUTC(),
		}},
		Authorship:         source.Authorship,
		License:            license,
		DisclosureTier:     disclosureTier,
		Sensitivity:        sensitivity,
		Timebase:           timebase,
		Files:              childFiles,
		InvariantsDeclared: append([]string(nil), source.InvariantsDeclared...),
	}
	child.PackHash = child.ComputePackHash()
	return child
}

// Fission splits a source manifest into multiple children per splitPlan
// (RW-C9). fileContents supplies raw bytes for slice-transformed files;
// it may be nil if no directive uses TransformSlice. Fails closed on:
// fewer than two children, a source integrity mismatch, or any source
// file left unaccounted for by the plan (a "silent split").
func Fission(source Manifest, plan SplitPlan, fileContents map[string][]byte) FissionResult {
	result := FissionResult{}

	if len(plan.ChildLabels) < 2 {
		result.Errors = append(result.Errors, "Fission requires at least 2 children.")
		return result
	}

	expectedHash := source.ComputePackHash()
	if expectedHash != source.PackHash {
		result.Errors = append(result.Errors, "Source manifest integrity failure (RW-C1): expected "+expectedHash+", got "+source.PackHash)
		return result
	}

	assignedPaths := map[string]bool{}
	droppedPaths := map[string]bool{}
	for _, d := range plan.Directives {
		if d.Transform == TransformDrop {
			droppedPaths[d.SourcePath] = true
		} else {
			assignedPaths[d.SourcePath] = true
		}
	}

	var unaccounted []string
	for path := range source.Files {
		if !assignedPaths[path] && !droppedPaths[path] {
			unaccounted = append(unaccounted, path)
		}
	}
	if len(unaccounted) > 0 {
		result.Errors = append(result.Errors, "Silent split detected (RW-C9 violation): files not accounted for")
		return result
	}

	numChildren := len(plan.ChildLabels)
	childFileSets := make([]map[string]ManifestFileEntry, numChildren)
	for i := range childFileSets {
		childFileSets[i] = map[string]ManifestFileEntry{}
	}

	for _, d := range plan.Directives {
		if d.Transform == TransformDrop {
			continue
		}
		if d.ChildIndex < 0 || d.ChildIndex >= numChildren {
			result.Errors = append(result.Errors, wpErr(ErrInvalidPlan, "invalid child_index %d for %s", d.ChildIndex, d.SourcePath).Error())
			return result
		}
		sourceEntry, ok := source.Files[d.SourcePath]
		if !ok {
			result.Errors = append(result.Errors, "Source path not in manifest: "+d.SourcePath)
			return result
		}

		destPath := d.DestPath
		if destPath == "" {
			destPath = d.SourcePath
		}

		if d.Transform == TransformSlice && fileContents != nil {
			content := fileContents[d.SourcePath]
			offset := d.SliceOffset
			length := d.SliceLength
			if length == 0 {
				length = int64(len(content)) - offset
			}
			end := offset + length
			if end > int64(len(content)) {
				end = int64(len(content))
			}
			sliced := content[offset:end]
			childFileSets[d.ChildIndex][destPath] = ManifestFileEntry{
				SHA256: sha256Hex(sliced),
				Size:   int64(len(sliced)),
			}
		} else {
			childFileSets[d.ChildIndex][destPath] = sourceEntry
		}
	}

	for i := range plan.ChildLabels {
		result.ChildManifests = append(result.ChildManifests, buildChildManifest(source, childFileSets[i]))
	}

	var fileMappings []FileMapping
	for _, d := range plan.Directives {
		var destinations []FileDestination
		if d.Transform != TransformDrop {
			childMF := result.ChildManifests[d.ChildIndex]
			destPath := d.DestPath
			if destPath == "" {
				destPath = d.SourcePath
			}
			var sliceRange *SliceRange
			if d.Transform == TransformSlice {
				sliceRange = &SliceRange{OffsetBytes: d.SliceOffset, LengthBytes: d.SliceLength}
			}
			destinations = append(destinations, FileDestination{
				ChildManifestID: childMF.ManifestID,
				DestPath:        destPath,
				Transform:       d.Transform,
				SliceRange:      sliceRange,
				Lossy:           d.Lossy,
			})
		}
		fileMappings = append(fileMappings, FileMapping{SourcePath: d.SourcePath, Destinations: destinations})
	}

	var droppedFilesList []string
	for path := range droppedPaths {
		droppedFilesList = append(droppedFilesList, path)
	}
	sort.Strings(droppedFilesList)

	var truncatedFiles []string
	for _, d := range plan.Directives {
		if (d.Transform == TransformSlice || d.Transform == TransformFilter) && d.Lossy {
			truncatedFiles = append(truncatedFiles, d.SourcePath)
		}
	}

	var totalBytesLost int64
	for _, path := range droppedFilesList {
		totalBytesLost += source.Files[path].Size
	}
	hasLoss := len(droppedFilesList) > 0 || len(truncatedFiles) > 0

	var timebaseMappings []TimebaseMapping
	for _, childMF := range result.ChildManifests {
		timebaseMappings = append(timebaseMappings, TimebaseMapping{
			ChildManifestID: childMF.ManifestID,
			Epoch:           childMF.Timebase.Epoch,
			ResolutionNS:    childMF.Timebase.ResolutionNS,
		})
	}

	license := source.License
	if license == "" {
		license = "WCL-1.0"
	}
	var childrenLicenses []ChildLicense
	for _, cm := range result.ChildManifests {
		childrenLicenses = append(childrenLicenses, ChildLicense{ChildManifestID: cm.ManifestID, License: cm.License})
	}

	var children []ChildRef
	for i, cm := range result.ChildManifests {
		children = append(children, ChildRef{ManifestID: cm.ManifestID, WeaverPackID: cm.WeaverPackID, Label: plan.ChildLabels[i]})
	}

	result.LineageMap = LineageMap{
		SchemaVersion: SchemaVersion,
		LineageMapID:  primitives.GenerateID("RWLM"),
		CreatedAt:     primitives.NowUTC(),
		SourceManifest: SourceManifestRef{
			ManifestID:   source.ManifestID,
			WeaverPackID: source.WeaverPackID,
			PackHash:     source.PackHash,
		},
		Children:         children,
		FileMappings:     fileMappings,
		TimebaseMappings: timebaseMappings,
		LossSummary: LossSummary{
			HasLoss:        hasLoss,
			DroppedFiles:   droppedFilesList,
			TruncatedFiles: truncatedFiles,
			TotalBytesLost: totalBytesLost,
		},
		LicenseCarryForward: LicenseCarryForward{
			SourceLicense:        license,
			ChildrenLicenses:     childrenLicenses,
			AttributionPreserved: true,
		},
	}

	result.Passed = true
	return result
}
