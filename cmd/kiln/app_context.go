package main

import (
	"context"

	"github.com/kilnbuild/kiln/internal/logging"
)

// AppContext bundles long-lived services created at startup.
type AppContext struct {
	Logger logging.Logger
}

// CommandContext returns a background context together with a
// component-scoped logger.
func (a *AppContext) CommandContext(component string) (context.Context, logging.Logger) {
	return context.Background(), a.LoggerFor(component)
}

// LoggerFor derives a child logger with the supplied component name.
func (a *AppContext) LoggerFor(component string) logging.Logger {
	if a == nil || a.Logger == nil {
		return logging.NoOp{}
	}
	return a.Logger.With("component", component)
}
