// Package api exposes the control plane's REST surface: request a
// workspace, inspect or list workspaces, and request an inactivity
// shutdown, plus the standard health/readiness/metrics endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/cuemby/cradle/pkg/assignment"
	"github.com/cuemby/cradle/pkg/events"
	"github.com/cuemby/cradle/pkg/health"
	"github.com/cuemby/cradle/pkg/log"
	"github.com/cuemby/cradle/pkg/metrics"
	"github.com/cuemby/cradle/pkg/runtime"
	"github.com/cuemby/cradle/pkg/stats"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

// Server serves the workspace lifecycle control plane's HTTP API.
type Server struct {
	handler *assignment.Handler
	store   storage.Store
	runtime runtime.Runtime
	health  *health.Monitor
	statsC  *stats.Collector
	broker  *events.Broker
	logger  zerolog.Logger
}

// New creates a Server.
func New(handler *assignment.Handler, store storage.Store, rt runtime.Runtime, healthMonitor *health.Monitor, statsC *stats.Collector, broker *events.Broker) *Server {
	return &Server{
		handler: handler,
		store:   store,
		runtime: rt,
		health:  healthMonitor,
		statsC:  statsC,
		broker:  broker,
		logger:  log.WithComponent("api"),
	}
}

// Routes returns the fully mounted chi.Router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)

	r.Get("/healthz", metrics.HealthHandler())
	r.Get("/readyz", metrics.ReadyHandler())
	r.Get("/livez", metrics.LivenessHandler())
	r.Handle("/metrics", metrics.Handler())

	r.Route("/containers", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Delete("/{id}", s.handleDelete)
		r.Post("/{id}/inactivity-shutdown", s.handleInactivityShutdown)
	})

	return r
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		metrics.APIRequestsTotal.WithLabelValues(r.Method, http.StatusText(ww.Status())).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method)
	})
}

type startRequest struct {
	Bucket          string `json:"bucket"`
	Region          string `json:"region,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
	VNCPassword     string `json:"vnc_password,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	SkipRemoteCheck bool   `json:"skip_remote_check,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	result, err := s.handler.Assign(r.Context(), assignment.Request{
		Bucket:          req.Bucket,
		Region:          req.Region,
		AccessKeyID:     req.AccessKeyID,
		SecretAccessKey: req.SecretAccessKey,
		VNCPassword:     req.VNCPassword,
		UserID:          req.UserID,
		SkipRemoteCheck: req.SkipRemoteCheck,
	})
	if err != nil {
		s.respondTaxonomyError(w, err)
		return
	}

	respond(w, http.StatusCreated, result)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var filter storage.ListFilter
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = types.WorkspaceStatus(status)
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	items, err := s.store.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list workspaces")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"workspaces": items,
		"count":      len(items),
	})
}

// healthSummary is the condensed types.HealthState exposed on GET
// /containers/{id}.
type healthSummary struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastCheck           time.Time `json:"last_check,omitempty"`
	RecoveryAttempted   bool      `json:"recovery_attempted"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ws, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.respondTaxonomyError(w, err)
		return
	}

	out := map[string]any{
		"id":               ws.ID,
		"service_name":     ws.ServiceName,
		"bucket":           ws.Bucket,
		"region":           ws.Region,
		"status":           ws.Status,
		"created_at":       ws.CreatedAt,
		"started_at":       ws.StartedAt,
		"stopped_at":       ws.StoppedAt,
		"last_activity":    ws.LastActivity,
		"shutdown_reason":  ws.ShutdownReason,
		"urls":             ws.URLs,
		"resources":        ws.Resources,
		"is_pre_warmed":    ws.IsPreWarmed,
	}
	if ws.Status == types.WorkspaceRunning {
		out["uptime"] = ws.Uptime(time.Now())
	}
	if s.health != nil {
		if state, ok := s.health.Snapshot(id); ok {
			out["health"] = healthSummary{
				ConsecutiveFailures: state.ConsecutiveFailures,
				LastCheck:           state.LastCheck,
				RecoveryAttempted:   state.RecoveryAttempted,
			}
		}
	}

	respond(w, http.StatusOK, out)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.respondTaxonomyError(w, err)
		return
	}

	// An already-missing runtime service is treated as success: the
	// workspace is gone either way.
	if err := s.runtime.Stop(r.Context(), id); err != nil && types.KindOf(err) != types.KindNotFound {
		s.respondTaxonomyError(w, err)
		return
	}

	now := time.Now()
	stopped := types.WorkspaceStopped
	if err := s.store.UpdateLifecycle(r.Context(), id, storage.LifecycleUpdate{
		Status:         &stopped,
		StoppedAt:      &now,
		ShutdownReason: shutdownReasonPtr(types.ShutdownManual),
	}); err != nil {
		s.respondTaxonomyError(w, err)
		return
	}

	if s.health != nil {
		s.health.Forget(id)
	}
	s.statsC.OnStopped(r.Context(), id, types.ShutdownManual)
	s.broker.Publish(&events.Event{WorkspaceID: id, Type: events.EventWorkspaceStopped})

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInactivityShutdown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.respondTaxonomyError(w, err)
		return
	}

	stopped := types.WorkspaceStopped
	now := time.Now()
	if err := s.store.UpdateLifecycle(r.Context(), id, storage.LifecycleUpdate{
		Status:         &stopped,
		StoppedAt:      &now,
		ShutdownReason: shutdownReasonPtr(types.ShutdownInactivity),
	}); err != nil {
		s.respondTaxonomyError(w, err)
		return
	}

	if s.health != nil {
		s.health.Forget(id)
	}
	s.statsC.OnStopped(r.Context(), id, types.ShutdownInactivity)
	s.broker.Publish(&events.Event{WorkspaceID: id, Type: events.EventWorkspaceStopped})

	w.WriteHeader(http.StatusNoContent)
}

func shutdownReasonPtr(r types.ShutdownReason) *types.ShutdownReason { return &r }

// respondTaxonomyError maps a *types.Error's Kind to the fixed HTTP status
// the control plane's error taxonomy defines, regardless of which package
// produced it.
func (s *Server) respondTaxonomyError(w http.ResponseWriter, err error) {
	switch types.KindOf(err) {
	case types.KindInvalidInput, types.KindInvalidBucket:
		respondError(w, http.StatusBadRequest, err.Error())
	case types.KindResourceExhausted:
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case types.KindNotFound:
		respondError(w, http.StatusNotFound, err.Error())
	case types.KindLaunchFailed, types.KindAttachFailed, types.KindStoreUnavailable, types.KindTransientProbeFailure:
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}

// Shutdown gracefully drains an http.Server within ctx's deadline.
func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
