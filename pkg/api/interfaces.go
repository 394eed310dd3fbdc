// Package api provides interfaces for dependency injection
package api

import "context"

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API over catalog until ctx is cancelled
	StartServer(ctx context.Context, catalog RegistryCatalog, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
