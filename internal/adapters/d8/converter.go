package d8

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/adapters/dex"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/zerr"
)

// stderrLimit bounds the stderr tail attached to failures.
const stderrLimit = 4096

// Converter implements ports.DexConverter by running d8.
type Converter struct {
	classpath ports.ClasspathFactory
	log       ports.Logger
}

// New creates a Converter.
func New(classpath ports.ClasspathFactory, log ports.Logger) *Converter {
	return &Converter{classpath: classpath, log: log}
}

// Convert packs the class entries into a jar, runs d8 over it and copies the result to w.
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
	defer func() {
		if cerr := boot.Close(); cerr != nil {
			err = errors.Join(err, domain.ErrResourceCleanup, cerr)
			report = domain.ConversionReport{}
		}
	}()

	work, err := os.MkdirTemp("", "dexer-d8-")
	if err != nil {
		return domain.ConversionReport{}, zerr.Wrap(err, "failed to create d8 work directory")
	}
	defer func() { _ = os.RemoveAll(work) }()

	input := filepath.Join(work, "classes.jar")
	count, err := packInputs(ctx, set, input)
	if err != nil {
		return domain.ConversionReport{}, err
	}
	out := filepath.Join(work, "out")
	if err := os.Mkdir(out, 0o750); err != nil {
		return domain.ConversionReport{}, zerr.Wrap(err, "failed to create d8 output directory")
	}

	if err := c.run(ctx, cfg.D8Path, Args(cfg, boot.Entries(), []string{input}, out)); err != nil {
		return domain.ConversionReport{}, err
	}

	var files []dex.Entry
	if cfg.ArchiveMode == domain.ArchivePerClass {
		files, err = collect(out)
	} else {
		files, err = collectMerged(out)
	}
	if err != nil {
		return domain.ConversionReport{}, err
	}

	report = domain.ConversionReport{ClassCount: count, OutputPath: cfg.OutputArtifactPath}
	for i, f := range files {
		parsed, err := dex.Parse(f.Data)
		if err != nil {
			return domain.ConversionReport{}, zerr.With(err, "file", f.Name)
		}
		if i == 0 {
			report.DexVersion = parsed.Version
		}
		report.DexClassCount += len(parsed.Classes)
	}

	if cfg.ArchiveMode == domain.ArchivePerClass {
		err = dex.WriteArchive(w, files)
	} else {
		_, err = w.Write(files[0].Data)
	}
	if err != nil {
		return domain.ConversionReport{}, errors.Join(domain.ErrPublishFailed, err)
	}
	return report, nil
}

func (c *Converter) run(ctx context.Context, name string, args []string) error {
	c.log.Debug("running " + name + " " + strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // d8 path is configured by the user
	var stderr bytes.Buffer
	var stdout io.Writer = &logWriter{logger: c.log}
	var errOut io.Writer = &stderr
	if vertex, ok := ports.VertexFromContext(ctx); ok {
		stdout = io.MultiWriter(stdout, vertex.Stdout())
		errOut = io.MultiWriter(errOut, vertex.Stderr())
	}
	cmd.Stdout = stdout
	cmd.Stderr = errOut

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		tail := stderr.String()
		if len(tail) > stderrLimit {
			tail = tail[len(tail)-stderrLimit:]
		}
		failure := zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode)
		failure = zerr.With(failure, "stderr", strings.TrimSpace(tail))
		return &domain.ConversionError{Err: errors.Join(domain.ErrExternalConverterFailed, failure)}
	}
	return nil
}

// packInputs writes every class entry into a jar at path and returns the entry count.
func packInputs(ctx context.Context, set domain.ResolvedInputSet, path string) (n int, err error) {
	f, err := os.Create(path) //nolint:gosec // path is inside a private temp directory
	if err != nil {
		return 0, zerr.Wrap(err, "failed to create d8 input")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = zerr.Wrap(cerr, "failed to close d8 input")
		}
	}()

	zw := zip.NewWriter(f)
	seen := make(map[string]bool)
	for entry, err := range set.Entries() {
		if err != nil {
			return 0, err
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n++
		header, err := classfile.ParseHeader(entry.Bytes)
		if err != nil {
			return 0, domain.NewConversionError(entry, err)
		}
		name := header.Name + domain.ClassFileExt
		if seen[name] {
			dup := zerr.With(zerr.New("class entry already packed"), "class", header.Name)
			return 0, domain.NewConversionError(entry, errors.Join(domain.ErrDuplicateClass, dup))
		}
		seen[name] = true

		ew, err := zw.Create(name)
		if err != nil {
			return 0, zerr.Wrap(err, "failed to pack class entry")
		}
		if _, err := ew.Write(entry.Bytes); err != nil {
			return 0, zerr.Wrap(err, "failed to pack class entry")
		}
	}
	if err := zw.Close(); err != nil {
		return 0, zerr.Wrap(err, "failed to pack class entries")
	}
	return n, nil
}

// collectMerged reads the single classes.dex d8 produces. Inputs that overflow one file
// produce classes2.dex and on, which a merged artifact cannot hold.
func collectMerged(dir string) ([]dex.Entry, error) {
	files, err := collect(dir)
	if err != nil {
		return nil, err
	}
	if len(files) != 1 || files[0].Name != "classes.dex" {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name)
		}
		failure := zerr.With(zerr.New("d8 did not produce a single classes.dex"), "files", strings.Join(names, ","))
		return nil, &domain.ConversionError{Err: errors.Join(domain.ErrExternalConverterFailed, failure)}
	}
	return files, nil
}

// collect reads every .dex file below dir, sorted by slash-separated relative path.
func collect(dir string) ([]dex.Entry, error) {
	var files []dex.Entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".dex") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path) //nolint:gosec // path is inside a private temp directory
		if err != nil {
			return err
		}
		files = append(files, dex.Entry{Name: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read d8 output")
	}
	slices.SortFunc(files, func(a, b dex.Entry) int { return strings.Compare(a.Name, b.Name) })
	return files, nil
}

// logWriter forwards complete stdout lines to the logger at debug level.
type logWriter struct {
	logger ports.Logger
	buf    []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			return len(p), nil
		}
		if line := strings.TrimRight(string(w.buf[:i]), "\r"); line != "" {
			w.logger.Debug(line)
		}
		w.buf = w.buf[i+1:]
	}
}
