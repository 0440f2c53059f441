package ports

import "go.trai.ch/dexer/internal/core/domain"

// Hasher defines the interface for computing fingerprints.
//
//go:generate mockgen -destination=mocks/hasher_mock.go -package=mocks -source=hasher.go
type Hasher interface {
	// ComputeInputHash computes one hash over the configuration and every class entry of the set.
	ComputeInputHash(cfg domain.BuildConfiguration, set domain.ResolvedInputSet) (string, error)
	// ComputeFileHash computes the hash of a single file. A missing file yields an error
	// matching fs.ErrNotExist.
	ComputeFileHash(path string) (string, error)
}
