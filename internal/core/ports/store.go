package ports

import "go.trai.ch/dexer/internal/core/domain"

// BuildInfoStore defines the interface for storing and retrieving build information.
// Records live in the state directory of the project at root.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BuildInfoStore interface {
	// Get retrieves the build info for a given key.
	// Returns nil, nil if not found.
	Get(root, key string) (*domain.BuildInfo, error)

	// Put stores the build info under info.Key.
	Put(root string, info domain.BuildInfo) error

	// Delete removes the build info for a given key. Deleting a missing key is not an error.
	Delete(root, key string) error
}
