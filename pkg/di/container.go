// Package di provides dependency injection container
package di

import (
	"log/slog"

	"github.com/ssargent/assetreg/pkg/api" //nolint:depguard
	"github.com/ssargent/assetreg/pkg/catalog"
	"github.com/ssargent/assetreg/pkg/config"
)

// CatalogOpener opens the registry catalog for a command.
type CatalogOpener func(dir string, opts ...catalog.Option) (*catalog.Catalog, error)

// Container holds all the dependencies for the application
type Container struct {
	serverFactory api.ServerFactory
	openCatalog   CatalogOpener
	config        *config.Config
	logger        *slog.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		serverFactory: api.NewServerFactory(),
		openCatalog:   catalog.Open,
		config:        config.DefaultConfig(),
		logger:        slog.New(slog.DiscardHandler),
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// Config returns the effective configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// SetConfig replaces the effective configuration.
func (c *Container) SetConfig(cfg *config.Config) {
	c.config = cfg
}

// Logger returns the application logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// SetLogger replaces the application logger.
func (c *Container) SetLogger(l *slog.Logger) {
	c.logger = l
}

// OpenCatalog opens the configured catalog with the configured limits and logger.
func (c *Container) OpenCatalog() (*catalog.Catalog, error) {
	return c.openCatalog(c.config.CatalogDir,
		catalog.WithLogger(c.logger),
		catalog.WithLimits(c.config.Limits.ToCodec()),
	)
}

// SetCatalogOpener allows overriding how catalogs are opened (for testing)
func (c *Container) SetCatalogOpener(open CatalogOpener) {
	c.openCatalog = open
}
