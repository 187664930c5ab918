// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/buildrules/internal/adapters/cas"
	_ "go.trai.ch/buildrules/internal/adapters/config"
	_ "go.trai.ch/buildrules/internal/adapters/logger"
	_ "go.trai.ch/buildrules/internal/adapters/objstore"
	_ "go.trai.ch/buildrules/internal/adapters/spack"
	_ "go.trai.ch/buildrules/internal/adapters/telemetry"
	// Register app nodes.
	_ "go.trai.ch/buildrules/internal/app"
)
