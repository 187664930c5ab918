// Package ports defines the core interfaces of the application.
package ports

import "go.trai.ch/buildrules/internal/core/domain"

// ConfigLoader loads and validates a build configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration from the given directory and returns the
	// sealed rule graph together with the invocation settings. Malformed
	// input yields a configuration error before any scheduling begins.
	Load(confDir string) (*domain.Config, error)
}
