// Package d8 provides a DexConverter that delegates to the external d8 tool.
package d8

import (
	"strconv"

	"go.trai.ch/dexer/internal/core/domain"
)

// Args returns the d8 arguments converting inputs into outDir.
// libs are passed as library jars in order.
func Args(cfg domain.BuildConfiguration, libs, inputs []string, outDir string) []string {
	args := []string{"--min-api", strconv.Itoa(cfg.MinPlatformVersion)}
	if cfg.DebugInfoEnabled {
		args = append(args, "--debug")
	} else {
		args = append(args, "--release")
	}
	for _, lib := range libs {
		args = append(args, "--lib", lib)
	}
	if cfg.ArchiveMode == domain.ArchivePerClass {
		args = append(args, "--file-per-class-file")
	}
	args = append(args, "--output", outDir)
	return append(args, inputs...)
}
