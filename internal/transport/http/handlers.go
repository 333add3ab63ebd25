package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shelfgrid/shelfgrid/internal/audit"
	"github.com/shelfgrid/shelfgrid/internal/authz"
	"github.com/shelfgrid/shelfgrid/internal/firmware"
	"github.com/shelfgrid/shelfgrid/internal/fleet"
	"github.com/shelfgrid/shelfgrid/internal/identity"
	"github.com/shelfgrid/shelfgrid/internal/observability/logger"
	"github.com/shelfgrid/shelfgrid/internal/observability/metrics"
	"github.com/shelfgrid/shelfgrid/internal/oplog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	fleetService    *fleet.Service
	oplogService    *oplog.Service
	firmwareService *firmware.Service
	policy          *authz.Engine
	tokenIssuer     *identity.TokenIssuer
	auditLogger     audit.Logger

	heartbeatCounter metric.Int64Counter
	logIngestCounter metric.Int64Counter
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	fleetService *fleet.Service,
	oplogService *oplog.Service,
	firmwareService *firmware.Service,
	policy *authz.Engine,
	tokenIssuer *identity.TokenIssuer,
	auditLogger audit.Logger,
	meter *metrics.Meter,
) (*Handler, error) {
	heartbeats, err := meter.CreateCounter(
		"shelfgrid_heartbeats_total",
		"Number of heartbeats received from on-site servers",
	)
	if err != nil {
		return nil, err
	}
	logLines, err := meter.CreateCounter(
		"shelfgrid_log_entries_ingested_total",
		"Number of device log entries accepted",
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		identityService:  identityService,
		fleetService:     fleetService,
		oplogService:     oplogService,
		firmwareService:  firmwareService,
		policy:           policy,
		tokenIssuer:      tokenIssuer,
		auditLogger:      auditLogger,
		heartbeatCounter: heartbeats,
		logIngestCounter: logLines,
	}, nil
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		// Hardware-facing routes, authenticated by server token
		r.Group(func(r chi.Router) {
			r.Use(h.ServerTokenMiddleware)
			r.Post("/ops/heartbeat", h.Heartbeat)
			r.Post("/ops/logs", h.IngestLogs)
			r.Get("/ops/wifi", h.WifiCredentials)
			r.Get("/ops/firmware/latest", h.LatestFirmware)
		})

		// Management panel routes, authenticated by bearer token
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.GetCurrentUser)
			r.Put("/auth/me/preferences", h.UpdatePreferences)

			r.Route("/users", func(r chi.Router) {
				r.Post("/", h.CreateUser)
				r.Get("/", h.ListUsers)
				r.Get("/{userID}", h.GetUser)
				r.Put("/{userID}", h.UpdateUser)
				r.Delete("/{userID}", h.DeleteUser)
			})

			r.Route("/stores", func(r chi.Router) {
				r.Post("/", h.CreateStore)
				r.Get("/", h.ListStores)
				r.Get("/{storeID}", h.GetStore)
				r.Put("/{storeID}", h.UpdateStore)
				r.Delete("/{storeID}", h.DeleteStore)
				r.Post("/{storeID}/regenerate-server-token", h.RegenerateServerToken)
				r.Post("/{storeID}/regenerate-esp32-token", h.RegenerateESP32Token)
				r.Post("/{storeID}/devices", h.AddDevice)
				r.Delete("/{storeID}/devices/{localID}", h.RemoveDevice)
				r.Get("/{storeID}/logs", h.ListStoreLogs)
			})

			r.Route("/firmware", func(r chi.Router) {
				r.Post("/", h.PublishFirmware)
				r.Get("/", h.ListFirmware)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "shelfgrid",
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and issues an access token. Authentication
// and panel authorization are distinct stages: valid market-side
// credentials still fail with a panel denial, not a credential error.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if d := h.policy.AuthorizePanel(user.Role); !d.Allowed {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypePanelDenied,
			ActorID:   user.ID,
			Resource:  "login",
			IPAddress: getClientIP(r),
			UserAgent: r.UserAgent(),
			Metadata:  map[string]any{audit.AttrRole: string(user.Role)},
		})
		respondDomainError(w, r, d.Err())
		return
	}

	token, err := h.tokenIssuer.Issue(user.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         userResponse(user),
	})
}

// GetCurrentUser returns the authenticated user's own profile
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.identityService.Get(r.Context(), p, p.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse(user))
}

// PreferencesRequest carries panel preference changes
type PreferencesRequest struct {
	Theme    *string `json:"theme"`
	Language *string `json:"language"`
}

// UpdatePreferences updates the authenticated user's theme and language
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req PreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.UpdatePreferences(r.Context(), p, identity.PreferencesInput{
		Theme:    req.Theme,
		Language: req.Language,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse(user))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
