// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/dexer/internal/core/domain"
)

// DexConverter converts a resolved input set into a DEX artifact.
//
//go:generate go run go.uber.org/mock/mockgen -source=converter.go -destination=mocks/mock_converter.go -package=mocks
type DexConverter interface {
	// Convert streams every class entry of set, in order, into one artifact written to w.
	// Failures identify the offending entry and leave w partially written; callers discard it.
	Convert(ctx context.Context, cfg domain.BuildConfiguration, set domain.ResolvedInputSet, w io.Writer) (domain.ConversionReport, error)
}

// MetadataExtractor scans class entries for the marker annotation.
type MetadataExtractor interface {
	// Extract returns the marked classes according to the configured match policy.
	Extract(ctx context.Context, cfg domain.BuildConfiguration, set domain.ResolvedInputSet) (domain.PluginMetadata, error)
}

// DexReader reads existing DEX artifacts.
type DexReader interface {
	// Summarize parses the DEX file or per-class archive at path.
	Summarize(path string) (domain.DexSummary, error)
}

// ClassHeader is the structural summary of a classpath class.
type ClassHeader struct {
	Name        string
	SuperName   string
	Interfaces  []string
	AccessFlags uint16
}

// IsInterface reports whether the class is an interface.
func (h ClassHeader) IsInterface() bool {
	return h.AccessFlags&0x0200 != 0
}

// ClasspathProvider gives read access to library classes during desugaring.
// Providers hold open file handles and must be closed.
type ClasspathProvider interface {
	io.Closer
	// Lookup returns the header of the named class, with false when the class is absent.
	Lookup(binaryName string) (ClassHeader, bool, error)
	// Entries returns the library locations backing the provider.
	Entries() []string
}

// ClasspathFactory opens classpath providers for one conversion.
type ClasspathFactory interface {
	// OpenBoot opens the platform boot classpath. A missing SDK yields an empty provider.
	OpenBoot(cfg domain.BuildConfiguration) (ClasspathProvider, error)
	// OpenEmpty opens an empty supplementary classpath.
	OpenEmpty() ClasspathProvider
}
