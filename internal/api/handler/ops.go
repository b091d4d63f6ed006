// Package handler provides HTTP handlers for the RoadStop API.
package handler

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/roadstop/roadstop/internal/api/models"
	"github.com/roadstop/roadstop/internal/api/response"
	"github.com/roadstop/roadstop/internal/provider/resilience"
	"github.com/roadstop/roadstop/internal/trip"
)

// readinessTimeout bounds each dependency check.
const readinessTimeout = 2 * time.Second

// Pinger is a dependency the readiness check pings, such as a database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandlerConfig configures an OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Trips     *trip.Store
	Database  Pinger // nil when stops are kept in memory
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	trips     *trip.Store
	database  Pinger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		trips:     cfg.Trips,
		database:  cfg.Database,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.database.Ping(ctx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"database": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.trips != nil {
		status.ActiveTrips = h.trips.Len()
		detail := strconv.Itoa(status.ActiveTrips) + " active trips"
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "trip-store",
			Status: models.HealthStatusOK,
			Detail: &detail,
		})
	}

	if h.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		sub := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
		if err := h.database.Ping(ctx); err != nil {
			msg := err.Error()
			sub.Status = models.HealthStatusFail
			sub.Detail = &msg
			status.Status = models.HealthStatusDegraded
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	if h.registry != nil {
		for _, ph := range h.registry.GetAllHealth() {
			status.Providers = append(status.Providers, toProviderStatus(ph))
		}
		sort.Slice(status.Providers, func(i, j int) bool {
			return status.Providers[i].Provider < status.Providers[j].Provider
		})

		switch h.registry.Status() {
		case resilience.StatusDown:
			status.Status = models.HealthStatusFail
			status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, "providers_down")
		case resilience.StatusDegraded:
			if status.Status == models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, "providers_degraded")
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func toProviderStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            ph.Name,
		Status:              models.HealthStatusOK,
		Circuit:             ph.CircuitState.String(),
		ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
	}
	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if ph.LastSuccessAt != nil {
		t := models.Timestamp(*ph.LastSuccessAt)
		ps.LastSuccessAt = &t
	}
	if ph.LastFailureAt != nil {
		t := models.Timestamp(*ph.LastFailureAt)
		ps.LastFailureAt = &t
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}
