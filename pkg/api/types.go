package api

import (
	"log/slog"

	"github.com/ssargent/assetreg/pkg/catalog"
	"github.com/ssargent/assetreg/pkg/codec"
	"github.com/ssargent/assetreg/pkg/registry"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

// InspectResult is returned by POST /inspect.
type InspectResult struct {
	Summary  registry.Summary `json:"summary"`
	Valid    bool             `json:"valid"`
	Problems string           `json:"problems,omitempty"`
}

// RegistryCreated is returned by POST /registries.
type RegistryCreated struct {
	Entry   catalog.Entry `json:"entry"`
	Created bool          `json:"created"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"format_version"`
	Catalogs int    `json:"catalog_entries"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind         string
	Port         int
	APIKey       string
	Limits       codec.Limits
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// DefaultMaxBodyBytes bounds uploaded containers when ServerConfig leaves it unset.
const DefaultMaxBodyBytes = 64 << 20

// RegistryCatalog is the catalog surface the handlers use.
type RegistryCatalog interface {
	Put(name string, raw []byte) (catalog.Entry, bool, error)
	Get(id string) (catalog.Entry, error)
	Raw(id string) ([]byte, error)
	Load(id string) (*registry.Registry, error)
	List() ([]catalog.Entry, error)
	Count() (int, error)
	Delete(id string) error
}
