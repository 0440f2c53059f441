package fs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Publisher = (*AtomicPublisher)(nil)

// AtomicPublisher stages outputs in temporary files beside their destination and renames them into place.
type AtomicPublisher struct{}

// NewAtomicPublisher creates a new AtomicPublisher.
func NewAtomicPublisher() *AtomicPublisher {
	return &AtomicPublisher{}
}

// Stage creates the parent directories of path and opens a temporary file in the same directory,
// so that the final rename never crosses a file system boundary.
func (p *AtomicPublisher) Stage(path string) (ports.StagedFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return nil, errors.Join(domain.ErrPublishFailed, zerr.With(err, "path", dir))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, errors.Join(domain.ErrPublishFailed, zerr.With(err, "path", path))
	}
	return &stagedFile{File: tmp, dst: path}, nil
}

type stagedFile struct {
	*os.File
	dst  string
	done bool
}

func (s *stagedFile) Path() string {
	return s.dst
}

func (s *stagedFile) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	tmpName := s.Name()

	if err := s.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Join(domain.ErrPublishFailed, zerr.With(err, "path", s.dst))
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		_ = os.Remove(tmpName)
		return errors.Join(domain.ErrPublishFailed, zerr.With(err, "path", s.dst))
	}
	if err := os.Rename(tmpName, s.dst); err != nil {
		_ = os.Remove(tmpName)
		return errors.Join(domain.ErrPublishFailed, zerr.With(err, "path", s.dst))
	}
	return nil
}

func (s *stagedFile) Discard() error {
	if s.done {
		return nil
	}
	s.done = true
	tmpName := s.Name()
	_ = s.Close()
	if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, "failed to remove staged file"), "path", tmpName)
	}
	return nil
}
