package ports

import "go.trai.ch/dexer/internal/core/domain"

// ConfigLoader defines the interface for loading project settings.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the settings of the project at projectDir.
	// An empty path selects dexer.yaml in projectDir; a missing default file yields zero settings.
	Load(projectDir, path string) (domain.Settings, error)
}
