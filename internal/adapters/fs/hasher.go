package fs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher provides fingerprints for configurations, input sets and files.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return "", errors.Join(iofs.ErrNotExist, zerr.With(zerr.New("file missing"), "path", path))
		}
		return "", zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}
	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// ComputeInputHash computes a single hash representing the configuration, the explicit
// boot classpath and every class entry of the set in resolution order.
func (h *Hasher) ComputeInputHash(cfg domain.BuildConfiguration, set domain.ResolvedInputSet) (string, error) {
	hasher := xxhash.New()

	h.hashConfiguration(cfg, hasher)

	for _, path := range cfg.BootClasspath {
		sum, err := h.ComputeFileHash(path)
		if err != nil && !errors.Is(err, iofs.ErrNotExist) {
			return "", err
		}
		writeField(hasher, path)
		writeField(hasher, sum)
	}
	_, _ = hasher.Write([]byte{0})

	for entry, err := range set.Entries() {
		if err != nil {
			return "", err
		}
		writeField(hasher, entry.Location)
		writeField(hasher, entry.RelPath)
		if err := binary.Write(hasher, binary.LittleEndian, xxhash.Sum64(entry.Bytes)); err != nil {
			return "", zerr.Wrap(err, "failed to write hash to digest")
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func (h *Hasher) hashConfiguration(cfg domain.BuildConfiguration, hasher *xxhash.Digest) {
	writeField(hasher, strconv.Itoa(cfg.MinPlatformVersion))
	writeField(hasher, strconv.FormatBool(cfg.DebugInfoEnabled))
	writeField(hasher, strconv.FormatBool(cfg.DetectMarkedClasses))
	writeField(hasher, cfg.OutputArtifactPath)
	writeField(hasher, cfg.MetadataFilePath)
	writeField(hasher, cfg.MarkerAnnotation)
	writeField(hasher, string(cfg.MultipleMatchPolicy))
	writeField(hasher, string(cfg.ArchiveMode))
	writeField(hasher, string(cfg.Engine))
	writeField(hasher, cfg.D8Path)
	writeField(hasher, cfg.AndroidSDK)
	writeField(hasher, strconv.Itoa(cfg.CompileSDK))
	_, _ = hasher.Write([]byte{0}) // Section separator
}

func writeField(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
	_, _ = w.Write([]byte{0})
}
