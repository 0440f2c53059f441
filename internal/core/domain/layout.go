package domain

import "path/filepath"

const (
	// DexerDirName is the name of the internal state directory inside the project.
	DexerDirName = ".dexer"

	// StoreDirName is the name of the build info store directory.
	StoreDirName = "store"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "dexer.yaml"

	// ClassFileExt is the extension identifying compiled class files.
	ClassFileExt = ".class"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultStorePath returns the default path for the build info store, relative to the project.
// It joins .dexer and store.
func DefaultStorePath() string {
	return filepath.Join(DexerDirName, StoreDirName)
}
