package http

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports the health of each dependency
// @Description Readiness status per component
type ReadyResponse struct {
	Status     string            `json:"status" example:"ready"`
	Components map[string]string `json:"components,omitempty"`
}

// readyCheckTimeout bounds each component ping
const readyCheckTimeout = 2 * time.Second

// handleHealth godoc
// @Summary      Health check
// @Description  Liveness check. Always ok while the process serves requests.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the database, Redis and the AI backends
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Components: make(map[string]string, len(s.checks))}
	status := http.StatusOK

	for _, name := range s.checkNames() {
		if err := s.ping(r.Context(), name); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}

	writeJSON(w, status, resp)
}

func (s *Server) checkNames() []string {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *Server) ping(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, readyCheckTimeout)
	defer cancel()
	return s.checks[name].Ping(ctx)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the build version of the server
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleSwaggerDoc serves the OpenAPI document registered by the docs package
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// handleStatus godoc
// @Summary      Backend status
// @Description  Reports the embedding model, the generation backend, whether the fallback backend is active, and the storage and session backends
// @Tags         Status
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Status
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status domain.Status
	if s.runtimeConfig != nil {
		status = s.runtimeConfig.Snapshot()
	}
	writeJSON(w, http.StatusOK, status)
}
