// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/dexer/internal/adapters/bootcp"
	_ "go.trai.ch/dexer/internal/adapters/cas"
	_ "go.trai.ch/dexer/internal/adapters/config"
	_ "go.trai.ch/dexer/internal/adapters/d8"
	_ "go.trai.ch/dexer/internal/adapters/dex"
	_ "go.trai.ch/dexer/internal/adapters/dexgen"
	_ "go.trai.ch/dexer/internal/adapters/fs"
	_ "go.trai.ch/dexer/internal/adapters/linker"
	_ "go.trai.ch/dexer/internal/adapters/logger"
	_ "go.trai.ch/dexer/internal/adapters/marker"
	_ "go.trai.ch/dexer/internal/adapters/project"
	_ "go.trai.ch/dexer/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "go.trai.ch/dexer/internal/app"
	_ "go.trai.ch/dexer/internal/engine/pipeline"
)
