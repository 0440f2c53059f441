package fs

import (
	"errors"
	"io/fs"
	"os"

	"go.trai.ch/zerr"
)

// Verifier checks the existence of paths.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Missing returns the paths that do not exist, in the given order.
func (v *Verifier) Missing(paths []string) ([]string, error) {
	var missing []string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				missing = append(missing, path)
				continue
			}
			return nil, zerr.With(zerr.Wrap(err, "failed to stat path"), "path", path)
		}
	}
	return missing, nil
}
