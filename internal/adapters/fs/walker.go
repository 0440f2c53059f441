// Package fs provides file system adapters for resolving, walking, hashing and publishing files.
package fs

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/zerr"
)

// Walker lists compiled class entries of input locations.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields the files below root whose name ends with ext, in lexical order.
// A missing root yields nothing.
func (w *Walker) WalkFiles(root, ext string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && path == root {
					return filepath.SkipAll
				}
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
				return nil
			}
			if !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield("", errors.Join(domain.ErrInputReadFailed, zerr.With(err, "path", root)))
		}
	}
}

// Entries yields the class entries of a location. Directories are walked recursively,
// a path naming a class file yields that file, and jar or zip archives yield their class members.
// A missing location yields nothing.
func (w *Walker) Entries(loc domain.InputLocation) iter.Seq2[domain.ClassEntry, error] {
	return func(yield func(domain.ClassEntry, error) bool) {
		info, err := os.Stat(loc.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			yield(domain.ClassEntry{}, errors.Join(domain.ErrInputReadFailed, zerr.With(err, "path", loc.Path)))
			return
		}

		switch {
		case info.IsDir():
			w.dirEntries(loc.Path, yield)
		case strings.HasSuffix(info.Name(), domain.ClassFileExt):
			entry, err := readEntry(filepath.Dir(loc.Path), loc.Path)
			yield(entry, err)
		case isArchive(info.Name()):
			w.archiveEntries(loc.Path, yield)
		}
	}
}

func (w *Walker) dirEntries(root string, yield func(domain.ClassEntry, error) bool) {
	for path, err := range w.WalkFiles(root, domain.ClassFileExt) {
		if err != nil {
			yield(domain.ClassEntry{}, err)
			return
		}
		entry, err := readEntry(root, path)
		if !yield(entry, err) || err != nil {
			return
		}
	}
}

func (w *Walker) archiveEntries(path string, yield func(domain.ClassEntry, error) bool) {
	r, err := zip.OpenReader(path)
	if err != nil {
		yield(domain.ClassEntry{}, errors.Join(domain.ErrInputReadFailed, zerr.With(err, "path", path)))
		return
	}
	defer r.Close() //nolint:errcheck // read-only archive

	files := slices.Clone(r.File)
	slices.SortFunc(files, func(a, b *zip.File) int { return strings.Compare(a.Name, b.Name) })

	for _, f := range files {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, domain.ClassFileExt) ||
			strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		data, err := readZipFile(f)
		entry := domain.ClassEntry{
			Location:   path,
			RelPath:    f.Name,
			BinaryName: domain.BinaryNameFromPath(f.Name),
			Bytes:      data,
		}
		if err != nil {
			err = errors.Join(domain.ErrInputReadFailed, zerr.With(zerr.With(err, "path", path), "entry", f.Name))
		}
		if !yield(entry, err) || err != nil {
			return
		}
	}
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only entry
	return io.ReadAll(rc)
}

func readEntry(root, path string) (domain.ClassEntry, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return domain.ClassEntry{}, errors.Join(domain.ErrInputReadFailed, zerr.With(err, "path", path))
	}
	rel = filepath.ToSlash(rel)
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the resolved input set
	entry := domain.ClassEntry{
		Location:   root,
		RelPath:    rel,
		BinaryName: domain.BinaryNameFromPath(rel),
		Bytes:      data,
	}
	if err != nil {
		return entry, errors.Join(domain.ErrInputReadFailed, zerr.With(err, "path", path))
	}
	return entry, nil
}

func isArchive(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".jar" || ext == ".zip"
}
