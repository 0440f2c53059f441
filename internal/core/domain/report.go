package domain

import (
	"maps"
	"slices"
)

// ConversionReport summarizes one DEX conversion.
type ConversionReport struct {
	// ClassCount is the number of input class entries.
	ClassCount int
	// DexClassCount is the number of class definitions written, including synthetic classes.
	DexClassCount int
	// OutputPath is the published artifact.
	OutputPath string
	// DexVersion is the three-digit DEX format version, e.g. "038".
	DexVersion string
	// Rewrites counts desugaring rewrites per kind.
	Rewrites map[string]int
	// UpToDate is set when the conversion was skipped because nothing changed.
	UpToDate bool
}

// RewriteKinds returns the desugaring kinds that were applied, sorted.
func (r ConversionReport) RewriteKinds() []string {
	return slices.Sorted(maps.Keys(r.Rewrites))
}

// BuildResult is the outcome of one build invocation.
type BuildResult struct {
	// Inputs lists the resolved input locations.
	Inputs []InputLocation
	// Conversion is nil when the resolved input set holds no class entries.
	Conversion *ConversionReport
	// Metadata is nil when marker detection is disabled or no inputs were resolved.
	Metadata *PluginMetadata
	// MetadataPath is where Metadata was written.
	MetadataPath string
}

// Empty reports whether resolution produced no class entries, making the build a no-op.
func (r BuildResult) Empty() bool {
	return r.Conversion == nil
}

// DexSummary describes an existing DEX file or per-class archive.
type DexSummary struct {
	Path string
	// Version is the three-digit format version of the first DEX file.
	Version string
	// Files is the number of DEX files; 1 for a merged artifact.
	Files int
	// Classes lists every defined class descriptor, in file order.
	Classes []string
	// ChecksumValid is set when every stored adler32 checksum matches.
	ChecksumValid bool
	// SignatureValid is set when every stored SHA-1 signature matches.
	SignatureValid bool
}
