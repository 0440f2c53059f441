// Package cas implements the build info store used for up-to-date checks.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/zerr"
)

// Store implements ports.BuildInfoStore using a file-per-key strategy below
// <root>/.dexer/store.
type Store struct{}

// NewStore creates a new BuildInfoStore.
func NewStore() *Store {
	return &Store{}
}

// Get retrieves the build info for a given key.
func (s *Store) Get(root, key string) (*domain.BuildInfo, error) {
	filename := s.filename(root, key)
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Join(domain.ErrStoreReadFailed, zerr.With(err, "path", filename))
	}

	var info domain.BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Join(domain.ErrStoreReadFailed, zerr.With(err, "path", filename))
	}
	return &info, nil
}

// Put stores the build info.
func (s *Store) Put(root string, info domain.BuildInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return errors.Join(domain.ErrStoreWriteFailed, err)
	}

	filename := s.filename(root, info.Key)
	if err := os.MkdirAll(filepath.Dir(filename), domain.DirPerm); err != nil {
		return errors.Join(domain.ErrStoreWriteFailed, zerr.With(err, "path", filename))
	}

	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	if err := os.WriteFile(filename, data, domain.FilePerm); err != nil {
		return errors.Join(domain.ErrStoreWriteFailed, zerr.With(err, "path", filename))
	}
	return nil
}

// Delete removes the build info for a given key.
func (s *Store) Delete(root, key string) error {
	filename := s.filename(root, key)
	if err := os.Remove(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Join(domain.ErrStoreWriteFailed, zerr.With(err, "path", filename))
	}
	return nil
}

func (s *Store) filename(root, key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(root, domain.DefaultStorePath(), hex.EncodeToString(hash[:])+".json")
}
