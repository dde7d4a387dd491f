// ABOUTME: HTTP handlers for bootstrap, startup lifecycle and discovery
// ABOUTME: Maps service errors to stable error codes and HTTP statuses

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bootgate/bootgate/internal/auth"
	"github.com/bootgate/bootgate/internal/bootstrap"
	"github.com/bootgate/bootgate/internal/policy"
	"github.com/bootgate/bootgate/internal/startup"
	"github.com/bootgate/bootgate/internal/store"
)

// BootstrapRequest is the JSON request body for POST /v1/bootstrap.
type BootstrapRequest struct {
	ComponentKey   string `json:"component_key"`
	PrincipalKey   string `json:"principal_key,omitempty"`
	LastPacketETag string `json:"last_packet_etag,omitempty"`
}

// StartupReadyRequest is the JSON request body for POST /v1/startup/ready.
type StartupReadyRequest struct {
	StartupID    string `json:"startup_id"`
	BuildVersion string `json:"build_version"`
	Health       string `json:"health,omitempty"`
}

// StartupFailedRequest is the JSON request body for POST /v1/startup/failed.
type StartupFailedRequest struct {
	StartupID string    `json:"startup_id"`
	Error     string    `json:"error"`
	Details   store.Doc `json:"details,omitempty"`
}

// StartupAckResponse is the JSON response for startup transitions.
type StartupAckResponse struct {
	StartupID      string `json:"startup_id"`
	Status         string `json:"status"`
	AcknowledgedAt string `json:"acknowledged_at"`
}

// SessionResponse is the JSON shape of a startup session.
type SessionResponse struct {
	StartupID           string    `json:"startup_id"`
	TenantKey           string    `json:"tenant_key"`
	DeploymentKey       string    `json:"deployment_key"`
	SubjectPrincipalKey string    `json:"subject_principal_key"`
	ComponentKey        string    `json:"component_key"`
	ProfileKey          string    `json:"profile_key"`
	ManifestKey         string    `json:"manifest_key"`
	PacketETag          string    `json:"packet_etag"`
	Status              string    `json:"status"`
	OpenedAt            string    `json:"opened_at"`
	DeadlineAt          string    `json:"deadline_at"`
	ReadyAt             *string   `json:"ready_at,omitempty"`
	FailedAt            *string   `json:"failed_at,omitempty"`
	ReadyPayload        store.Doc `json:"ready_payload,omitempty"`
	FailurePayload      store.Doc `json:"failure_payload,omitempty"`
	MirrorStatus        string    `json:"mirror_status"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Paths   []string `json:"paths,omitempty"`
}

// handleBootstrap handles POST /v1/bootstrap.
func (g *Gateway) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}

	var req BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.ComponentKey == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "component_key is required")
		return
	}

	wp, cached, err := g.bootstrap.Bootstrap(r.Context(), principal, bootstrap.Request{
		ComponentKey:     req.ComponentKey,
		PrincipalKeyHint: req.PrincipalKey,
		LastPacketETag:   req.LastPacketETag,
	})
	if err != nil {
		g.metrics.bootstrapTotal.WithLabelValues(bootstrapOutcome(err)).Inc()
		writeServiceError(w, err)
		return
	}

	if cached {
		g.metrics.bootstrapTotal.WithLabelValues("cached").Inc()
		w.Header().Set("ETag", req.LastPacketETag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	g.metrics.bootstrapTotal.WithLabelValues("issued").Inc()
	g.metrics.openSessions.Inc()

	w.Header().Set("ETag", wp.PacketETag)
	writeJSON(w, http.StatusOK, wp)
}

// handleStartupReady handles POST /v1/startup/ready.
func (g *Gateway) handleStartupReady(w http.ResponseWriter, r *http.Request) {
	var req StartupReadyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.StartupID == "" || req.BuildVersion == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "startup_id and build_version are required")
		return
	}

	sess, err := g.startup.MarkReady(r.Context(), req.StartupID, startup.ReadyReport{
		BuildVersion: req.BuildVersion,
		Health:       req.Health,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	g.metrics.startupTransitions.WithLabelValues(store.SessionReady).Inc()
	g.metrics.openSessions.Dec()
	writeJSON(w, http.StatusOK, startupAck(sess))
}

// handleStartupFailed handles POST /v1/startup/failed.
func (g *Gateway) handleStartupFailed(w http.ResponseWriter, r *http.Request) {
	var req StartupFailedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.StartupID == "" || req.Error == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "startup_id and error are required")
		return
	}

	sess, err := g.startup.MarkFailed(r.Context(), req.StartupID, startup.FailureReport{
		Error:   req.Error,
		Details: req.Details,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	g.metrics.startupTransitions.WithLabelValues(store.SessionFailed).Inc()
	g.metrics.openSessions.Dec()
	writeJSON(w, http.StatusOK, startupAck(sess))
}

// handleGetStartup handles GET /v1/startup/{id}.
func (g *Gateway) handleGetStartup(w http.ResponseWriter, r *http.Request) {
	sess, err := g.startup.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleDiscovery handles GET /.well-known/bootgate.json.
func (g *Gateway) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"bootgate_version":   Version,
		"bootstrap_endpoint": "/v1/bootstrap",
		"supported_auth":     []string{"bearer_jwt", "api_key"},
		"startup_endpoints": map[string]string{
			"ready":  "/v1/startup/ready",
			"failed": "/v1/startup/failed",
		},
	})
}

// handleHealth handles GET /health.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// handleRoot handles GET /.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":   "bootgate",
		"version":   Version,
		"discovery": "/.well-known/bootgate.json",
	})
}

func sessionResponse(sess *store.StartupSession) SessionResponse {
	resp := SessionResponse{
		StartupID:           sess.ID,
		TenantKey:           sess.TenantKey,
		DeploymentKey:       sess.DeploymentKey,
		SubjectPrincipalKey: sess.SubjectPrincipalKey,
		ComponentKey:        sess.ComponentKey,
		ProfileKey:          sess.ProfileKey,
		ManifestKey:         sess.ManifestKey,
		PacketETag:          sess.PacketETag,
		Status:              sess.Status,
		OpenedAt:            formatRFC3339(sess.OpenedAt),
		DeadlineAt:          formatRFC3339(sess.DeadlineAt),
		ReadyPayload:        sess.ReadyPayload,
		FailurePayload:      sess.FailurePayload,
		MirrorStatus:        sess.MirrorStatus,
	}
	if sess.ReadyAt != nil {
		s := formatRFC3339(*sess.ReadyAt)
		resp.ReadyAt = &s
	}
	if sess.FailedAt != nil {
		s := formatRFC3339(*sess.FailedAt)
		resp.FailedAt = &s
	}
	return resp
}

// startupAck reports the transition the session just made. The acknowledged
// timestamp is whichever terminal stamp the transition set.
func startupAck(sess *store.StartupSession) StartupAckResponse {
	ack := StartupAckResponse{StartupID: sess.ID, Status: sess.Status}
	switch {
	case sess.ReadyAt != nil:
		ack.AcknowledgedAt = formatRFC3339(*sess.ReadyAt)
	case sess.FailedAt != nil:
		ack.AcknowledgedAt = formatRFC3339(*sess.FailedAt)
	}
	return ack
}

func bootstrapOutcome(err error) string {
	var fkErr *policy.ForbiddenKeyError
	switch {
	case errors.Is(err, bootstrap.ErrPrincipalMismatch),
		errors.Is(err, bootstrap.ErrNoBinding),
		errors.Is(err, bootstrap.ErrComponentNotPermitted),
		errors.As(err, &fkErr):
		return "rejected"
	default:
		return "error"
	}
}

// writeServiceError maps service-layer errors to HTTP statuses and stable
// error codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var fkErr *policy.ForbiddenKeyError
	switch {
	case errors.Is(err, bootstrap.ErrPrincipalMismatch):
		writeError(w, http.StatusConflict, "PRINCIPAL_MISMATCH", err.Error())
	case errors.Is(err, bootstrap.ErrNoBinding):
		writeError(w, http.StatusForbidden, "NO_BINDING", err.Error())
	case errors.Is(err, bootstrap.ErrComponentNotPermitted):
		writeError(w, http.StatusForbidden, "COMPONENT_NOT_PERMITTED", err.Error())
	case errors.As(err, &fkErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    "FORBIDDEN_KEYS",
			Message: err.Error(),
			Paths:   fkErr.Paths,
		})
	case errors.Is(err, store.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "startup session not found")
	case errors.Is(err, store.ErrSessionNotOpen):
		writeError(w, http.StatusConflict, "INVALID_STATE", "startup session already reached a terminal state")
	case errors.Is(err, bootstrap.ErrProfileMissing), errors.Is(err, bootstrap.ErrManifestMissing):
		writeError(w, http.StatusInternalServerError, "DATA_INTEGRITY", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
