package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/assetreg/pkg/codec"
	"github.com/ssargent/assetreg/pkg/registry"
	"github.com/ssargent/assetreg/pkg/version"
)

// Server holds the API server state
type Server struct {
	catalog RegistryCatalog
	config  ServerConfig
	metrics *Metrics
	logger  *slog.Logger
}

// NewServer creates a new API server
func NewServer(catalog RegistryCatalog, config ServerConfig, metrics *Metrics) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		catalog: catalog,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
}

func (s *Server) decode(raw []byte) (*registry.Registry, error) {
	start := time.Now()
	reg, err := registry.DecodeBytes(raw, registry.WithLimits(s.config.Limits), registry.WithLogger(s.logger))
	s.metrics.RecordCodecOperation("decode", len(raw), codec.KindOf(err).String(), err == nil, time.Since(start))
	return reg, err
}

func (s *Server) refreshCatalogGauge() {
	n, err := s.catalog.Count()
	if err != nil {
		s.logger.Warn("failed to count catalog entries", "error", err)
		return
	}
	s.metrics.SetCatalogEntries(n)
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthStatus
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.catalog.Count()
	if err != nil {
		sendFailure(w, err)
		return
	}
	s.metrics.SetCatalogEntries(n)
	sendSuccess(w, HealthStatus{Status: "healthy", Version: version.Latest.String(), Catalogs: n})
}

// handleInspect godoc
//
//	@Summary		Inspect a container
//	@Description	Decode an uploaded container and report its summary without storing it
//	@Tags			registries
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"Container bytes"
//	@Success		200		{object}	InspectResult
//	@Failure		413		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/inspect [post]
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	raw, err := s.readBody(w, r)
	if err != nil {
		sendFailure(w, err)
		return
	}
	reg, err := s.decode(raw)
	if err != nil {
		sendFailure(w, err)
		return
	}
	result := InspectResult{Summary: reg.Summarize(), Valid: true}
	if err := reg.Validate(); err != nil {
		result.Valid = false
		result.Problems = err.Error()
	}
	sendSuccess(w, result)
}

// handleCreateRegistry godoc
//
//	@Summary		Store a container
//	@Description	Decode, validate and store a container. Identical bytes return the existing entry.
//	@Tags			registries
//	@Accept			octet-stream
//	@Produce		json
//	@Param			name	query		string	false	"Display name"
//	@Param			body	body		[]byte	true	"Container bytes"
//	@Success		200		{object}	RegistryCreated
//	@Success		201		{object}	RegistryCreated
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/registries [post]
func (s *Server) handleCreateRegistry(w http.ResponseWriter, r *http.Request) {
	raw, err := s.readBody(w, r)
	if err != nil {
		sendFailure(w, err)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload-" + strconv.FormatInt(time.Now().Unix(), 10)
	}

	start := time.Now()
	entry, created, err := s.catalog.Put(name, raw)
	s.metrics.RecordCodecOperation("decode", len(raw), codec.KindOf(err).String(), codec.KindOf(err) == codec.KindUnknown, time.Since(start))
	s.metrics.RecordCatalogOperation("put", err == nil)
	if err != nil {
		s.logger.Info("rejected registry upload", "name", name, "error", err)
		sendFailure(w, err)
		return
	}
	s.refreshCatalogGauge()

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	sendStatus(w, status, RegistryCreated{Entry: entry, Created: created})
}

// handleListRegistries godoc
//
//	@Summary		List stored containers
//	@Tags			registries
//	@Produce		json
//	@Success		200	{array}	catalog.Entry
//	@Security		ApiKeyAuth
//	@Router			/registries [get]
func (s *Server) handleListRegistries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.List()
	s.metrics.RecordCatalogOperation("list", err == nil)
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, entries)
}

// handleGetRegistry godoc
//
//	@Summary		Get a stored container's entry
//	@Tags			registries
//	@Produce		json
//	@Param			id	path		string	true	"Catalog id"
//	@Success		200	{object}	catalog.Entry
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/registries/{id} [get]
func (s *Server) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.catalog.Get(chi.URLParam(r, "id"))
	s.metrics.RecordCatalogOperation("get", err == nil)
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, entry)
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (*registry.Registry, bool) {
	reg, err := s.catalog.Load(chi.URLParam(r, "id"))
	s.metrics.RecordCatalogOperation("load", err == nil)
	if err != nil {
		sendFailure(w, err)
		return nil, false
	}
	return reg, true
}

// handleGetNames godoc
//
//	@Summary		List a container's names batch
//	@Tags			registries
//	@Produce		json
//	@Param			id	path	string	true	"Catalog id"
//	@Success		200	{array}	names.Row
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/registries/{id}/names [get]
func (s *Server) handleGetNames(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.load(w, r)
	if !ok {
		return
	}
	sendSuccess(w, reg.Names.Rows())
}

// handleGetPairs godoc
//
//	@Summary		List a container's resolved tag pairs
//	@Tags			registries
//	@Produce		json
//	@Param			id	path	string	true	"Catalog id"
//	@Success		200	{array}	registry.ResolvedPair
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/registries/{id}/pairs [get]
func (s *Server) handleGetPairs(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.load(w, r)
	if !ok {
		return
	}
	pairs, err := reg.ResolvedPairs()
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, pairs)
}

// handleGetRaw godoc
//
//	@Summary		Download a stored container
//	@Tags			registries
//	@Produce		octet-stream
//	@Param			id	path	string	true	"Catalog id"
//	@Success		200	{file}	binary
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/registries/{id}/raw [get]
func (s *Server) handleGetRaw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	raw, err := s.catalog.Raw(id)
	s.metrics.RecordCatalogOperation("raw", err == nil)
	if err != nil {
		sendFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".bin"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// handleDeleteRegistry godoc
//
//	@Summary		Delete a stored container
//	@Tags			registries
//	@Produce		json
//	@Param			id	path		string	true	"Catalog id"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/registries/{id} [delete]
func (s *Server) handleDeleteRegistry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.catalog.Delete(id)
	s.metrics.RecordCatalogOperation("delete", err == nil)
	if err != nil {
		sendFailure(w, err)
		return
	}
	s.refreshCatalogGauge()
	sendSuccess(w, map[string]string{"deleted": id})
}
