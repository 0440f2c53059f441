// Package marker finds compiled classes carrying the plugin marker annotation.
package marker

import (
	"context"
	"errors"
	"strings"

	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/zerr"
)

// Extractor scans class annotations without loading classes.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract implements ports.MetadataExtractor.
func (e *Extractor) Extract(
	ctx context.Context,
	cfg domain.BuildConfiguration,
	set domain.ResolvedInputSet,
) (domain.PluginMetadata, error) {
	var matches []string
	for entry, err := range set.Entries() {
		if err != nil {
			return domain.PluginMetadata{}, err
		}
		if err := ctx.Err(); err != nil {
			return domain.PluginMetadata{}, err
		}
		name, marked, err := carries(entry, cfg.MarkerAnnotation)
		if err != nil {
			return domain.PluginMetadata{}, domain.NewConversionError(entry, err)
		}
		if !marked {
			continue
		}
		matches = append(matches, strings.ReplaceAll(name, "/", "."))
		if cfg.MultipleMatchPolicy == domain.MatchFirst {
			break
		}
	}

	if cfg.MultipleMatchPolicy == domain.MatchFail && len(matches) > 1 {
		err := errors.Join(domain.ErrAmbiguousMarker, zerr.New("expected at most one marked class"))
		err = zerr.With(err, "annotation", cfg.MarkerAnnotation)
		return domain.PluginMetadata{}, zerr.With(err, "classes", strings.Join(matches, ", "))
	}
	return domain.PluginMetadata{Classes: matches}, nil
}

// carries reports whether the class in entry declares the annotation with either retention,
// along with the internal name the class file declares. Module descriptors never match.
func carries(entry domain.ClassEntry, descriptor string) (string, bool, error) {
	c, err := classfile.Parse(entry.Bytes)
	if err != nil {
		return "", false, err
	}
	if c.IsModule() {
		return "", false, nil
	}
	for _, a := range c.Annotations() {
		if a.Type == descriptor {
			return c.Name, true, nil
		}
	}
	return "", false, nil
}
