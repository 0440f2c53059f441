package ports

import "io"

// StagedFile is an output written to a temporary location next to its destination.
type StagedFile interface {
	io.Writer
	// Path returns the final destination.
	Path() string
	// Commit closes the temporary file and atomically moves it into place.
	Commit() error
	// Discard removes the temporary file. It is a no-op after Commit.
	Discard() error
}

// Publisher stages files so that a destination is either fully written or untouched.
//
//go:generate go run go.uber.org/mock/mockgen -source=publisher.go -destination=mocks/mock_publisher.go -package=mocks
type Publisher interface {
	// Stage creates the parent directories of path and opens a temporary file beside it.
	Stage(path string) (StagedFile, error)
}
