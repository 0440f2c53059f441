package domain

import (
	"context"
	"iter"
	"strings"
)

// InputOrigin records why a location is part of the resolved input set.
type InputOrigin string

const (
	// OriginExplicit marks a location taken from the configured input paths.
	OriginExplicit InputOrigin = "explicit"
	// OriginConvention marks a location found by the auto-detection convention table.
	OriginConvention InputOrigin = "convention"
	// OriginFallback marks the default directory used when detection finds nothing.
	OriginFallback InputOrigin = "fallback"
)

// InputLocation is one directory or file that may contain class entries.
type InputLocation struct {
	// Path is the absolute location.
	Path string
	// Origin records how the location was selected.
	Origin InputOrigin
	// Module is the owning module name; empty for the root module.
	Module string
	// Producer is the upstream task expected to write into Path, if known.
	Producer string
}

// ClassEntry is one compiled class read from an input location.
type ClassEntry struct {
	// Location is the path of the input location the entry belongs to.
	Location string
	// RelPath is the slash-separated path of the entry inside its location.
	RelPath string
	// BinaryName is the internal class name derived from RelPath, e.g. "com/x/Foo".
	BinaryName string
	// Bytes is the raw class file content.
	Bytes []byte
}

// QualifiedName returns the dotted class name, e.g. "com.x.Foo".
func (e ClassEntry) QualifiedName() string {
	return strings.ReplaceAll(e.BinaryName, "/", ".")
}

// BinaryNameFromPath derives the internal class name from a slash-separated entry path.
func BinaryNameFromPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	return strings.TrimSuffix(rel, ClassFileExt)
}

// EntrySource lists the class entries of a location in deterministic order.
type EntrySource func(loc InputLocation) iter.Seq2[ClassEntry, error]

// ResolvedInputSet is the ordered, deduplicated set of input locations.
// It is read-only once produced. Entries are listed lazily until Load reads them.
type ResolvedInputSet struct {
	locations []InputLocation
	source    EntrySource
	loaded    [][]ClassEntry
}

// NewResolvedInputSet creates a set over the given locations, listed with source.
func NewResolvedInputSet(locations []InputLocation, source EntrySource) ResolvedInputSet {
	locs := make([]InputLocation, len(locations))
	copy(locs, locations)
	return ResolvedInputSet{locations: locs, source: source}
}

// Locations returns a copy of the ordered locations.
func (s ResolvedInputSet) Locations() []InputLocation {
	out := make([]InputLocation, len(s.locations))
	copy(out, s.locations)
	return out
}

// Len returns the number of locations.
func (s ResolvedInputSet) Len() int {
	return len(s.locations)
}

// Load reads every class entry once and returns a set that serves them from memory, so
// that every stage of one invocation sees the same bytes. The first read error is returned.
func (s ResolvedInputSet) Load(ctx context.Context) (ResolvedInputSet, error) {
	if s.loaded != nil {
		return s, nil
	}
	loaded := make([][]ClassEntry, len(s.locations))
	if s.source != nil {
		for i, loc := range s.locations {
			for entry, err := range s.source(loc) {
				if err != nil {
					return ResolvedInputSet{}, err
				}
				if err := ctx.Err(); err != nil {
					return ResolvedInputSet{}, err
				}
				loaded[i] = append(loaded[i], entry)
			}
		}
	}
	return ResolvedInputSet{locations: s.Locations(), loaded: loaded}, nil
}

// Loaded reports whether the entries are held in memory.
func (s ResolvedInputSet) Loaded() bool {
	return s.loaded != nil
}

// Entries yields every class entry of every location in resolver order.
// Iteration stops after the first error is yielded.
func (s ResolvedInputSet) Entries() iter.Seq2[ClassEntry, error] {
	return func(yield func(ClassEntry, error) bool) {
		if s.loaded != nil {
			for _, entries := range s.loaded {
				for _, entry := range entries {
					if !yield(entry, nil) {
						return
					}
				}
			}
			return
		}
		if s.source == nil {
			return
		}
		for _, loc := range s.locations {
			for entry, err := range s.source(loc) {
				if !yield(entry, err) {
					return
				}
				if err != nil {
					return
				}
			}
		}
	}
}

// IsEmpty reports whether no location yields a class entry.
// A read error counts as content so that it surfaces in the consuming stage.
func (s ResolvedInputSet) IsEmpty() bool {
	if s.loaded != nil {
		for _, entries := range s.loaded {
			if len(entries) > 0 {
				return false
			}
		}
		return true
	}
	for range s.Entries() {
		return false
	}
	return true
}

// Paths returns the absolute paths of every location.
func (s ResolvedInputSet) Paths() []string {
	out := make([]string, len(s.locations))
	for i, l := range s.locations {
		out[i] = l.Path
	}
	return out
}
