// Package dexgen implements the in-process DEX converter.
package dexgen

import (
	"context"
	"errors"
	"io"
	"strconv"

	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/adapters/dalvik"
	"go.trai.ch/dexer/internal/adapters/desugar"
	"go.trai.ch/dexer/internal/adapters/dex"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/zerr"
)

// Converter parses class entries, desugars them for the minimum platform version and
// writes a DEX file or a per-class DEX archive.
type Converter struct {
	classpath ports.ClasspathFactory
	log       ports.Logger
}

// New creates a Converter.
func New(classpath ports.ClasspathFactory, log ports.Logger) *Converter {
	return &Converter{classpath: classpath, log: log}
}

// program is the converted input in resolver order.
type program struct {
	classes []*dalvik.Class
	// entries maps class descriptors to the entry that defined them.
	entries map[string]domain.ClassEntry
	count   int
}

// Convert implements ports.DexConverter.
func (c *Converter) Convert(
	ctx context.Context,
	cfg domain.BuildConfiguration,
	set domain.ResolvedInputSet,
	w io.Writer,
) (report domain.ConversionReport, err error) {
	boot, err := c.classpath.OpenBoot(cfg)
	if err != nil {
		return domain.ConversionReport{}, err
	}
	extra := c.classpath.OpenEmpty()
	defer func() {
		if cerr := closeProviders(boot, extra); cerr != nil {
			err = errors.Join(err, cerr)
			report = domain.ConversionReport{}
		}
	}()

	prog, err := c.load(ctx, set)
	if err != nil {
		return domain.ConversionReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.ConversionReport{}, err
	}

	result, err := desugar.New(desugar.NewPlan(cfg.MinPlatformVersion), boot, extra).Run(prog.classes)
	if err != nil {
		return domain.ConversionReport{}, prog.attribute(err, nil)
	}
	for _, warning := range result.Warnings {
		c.log.Warn(warning)
	}

	opts := dex.Options{MinAPI: cfg.MinPlatformVersion, Debug: cfg.DebugInfoEnabled}
	if cfg.ArchiveMode == domain.ArchivePerClass {
		err = c.writeArchive(prog, result, opts, w)
	} else {
		err = c.writeMerged(prog, result, opts, w)
	}
	if err != nil {
		return domain.ConversionReport{}, err
	}

	c.log.Debug("converted " + strconv.Itoa(prog.count) + " class entries into " +
		strconv.Itoa(len(result.Classes)) + " dex classes")
	return domain.ConversionReport{
		ClassCount:    prog.count,
		DexClassCount: len(result.Classes),
		OutputPath:    cfg.OutputArtifactPath,
		DexVersion:    dex.VersionFor(cfg.MinPlatformVersion),
		Rewrites:      result.Rewrites,
	}, nil
}

// load streams every entry, rejecting duplicate class names before translating the entry.
func (c *Converter) load(ctx context.Context, set domain.ResolvedInputSet) (*program, error) {
	prog := &program{entries: make(map[string]domain.ClassEntry)}
	for entry, err := range set.Entries() {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prog.count++

		parsed, err := classfile.Parse(entry.Bytes)
		if err != nil {
			return nil, domain.NewConversionError(entry, err)
		}
		if parsed.IsModule() {
			c.log.Debug("skipping module descriptor " + entry.RelPath)
			continue
		}
		desc := classfile.TypeDescriptor(parsed.Name)
		if first, ok := prog.entries[desc]; ok {
			dup := zerr.With(zerr.New("class already defined"), "first", first.Location+"/"+first.RelPath)
			return nil, domain.NewConversionError(entry, errors.Join(domain.ErrDuplicateClass, dup))
		}
		prog.entries[desc] = entry

		class, err := dalvik.ConvertClass(parsed)
		if err != nil {
			return nil, domain.NewConversionError(entry, err)
		}
		prog.classes = append(prog.classes, class)
	}
	return prog, nil
}

// attribute turns a class-level failure into a ConversionError naming the input entry.
func (p *program) attribute(err error, origin map[string]string) error {
	var ce *dalvik.ClassError
	if !errors.As(err, &ce) {
		return &domain.ConversionError{Err: err}
	}
	class := ce.Class
	if o, ok := origin[class]; ok {
		class = o
	}
	entry, ok := p.entries[class]
	if !ok {
		return &domain.ConversionError{Class: classfile.InternalName(class), Err: ce.Err}
	}
	return domain.NewConversionError(entry, ce.Err)
}

func (c *Converter) writeMerged(prog *program, result desugar.Result, opts dex.Options, w io.Writer) error {
	data, err := dex.Write(result.Classes, opts)
	if err != nil {
		return prog.attribute(err, result.Origin)
	}
	if _, err := w.Write(data); err != nil {
		return errors.Join(domain.ErrPublishFailed, err)
	}
	return nil
}

// writeArchive writes one DEX file per program class. Synthetic classes are stored with
// the class they were created for.
func (c *Converter) writeArchive(prog *program, result desugar.Result, opts dex.Options, w io.Writer) error {
	var order []string
	groups := make(map[string][]*dalvik.Class)
	for _, class := range result.Classes {
		owner := class.Type
		if o, ok := result.Origin[owner]; ok {
			owner = o
		}
		if _, ok := groups[owner]; !ok {
			order = append(order, owner)
		}
		groups[owner] = append(groups[owner], class)
	}

	entries := make([]dex.Entry, 0, len(order))
	for _, owner := range order {
		data, err := dex.Write(groups[owner], opts)
		if err != nil {
			return prog.attribute(err, result.Origin)
		}
		entries = append(entries, dex.Entry{Name: classfile.InternalName(owner) + ".dex", Data: data})
	}
	if err := dex.WriteArchive(w, entries); err != nil {
		return errors.Join(domain.ErrPublishFailed, err)
	}
	return nil
}

func closeProviders(providers ...ports.ClasspathProvider) error {
	var errs []error
	for _, p := range providers {
		if err := p.Close(); err != nil {
			if !errors.Is(err, domain.ErrResourceCleanup) {
				err = errors.Join(domain.ErrResourceCleanup, err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
