// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks wires this app into the WAFFLE lifecycle.
// Each function is called in order by app.Run, from configuration
// loading through DB setup, one-time startup work, HTTP handler
// construction, and finally graceful shutdown.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "researchportal", // used only for logging/diagnostics
	LoadConfig:     LoadConfig,       // load core + app config
	ValidateConfig: ValidateConfig,   // MongoDB URI, token secret, SameSite
	ConnectDB:      ConnectDB,        // connect to MongoDB (and Redis) and return DBDeps
	EnsureSchema:   EnsureSchema,     // collections, validators, indexes
	Startup:        Startup,          // report account counts
	BuildHandler:   BuildHandler,     // build the HTTP router + middleware stack
	Shutdown:       Shutdown,         // close Redis, disconnect MongoDB
}
