// Package api provides the HTTP API for hookline webhook management.
//
// Every route is owner-scoped: the caller identity is resolved per request
// (by default from the X-Owner-Id header) and all reads and mutations are
// restricted to that owner's subscriptions.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/hooklinehq/hookline"
	"github.com/hooklinehq/hookline/ratelimit"
	"github.com/hooklinehq/hookline/subscription"
)

// IdentityFunc resolves the caller's owner ID from a request. Returning
// empty rejects the request with 401.
type IdentityFunc func(*http.Request) string

// HeaderIdentity resolves the owner from the X-Owner-Id header. Intended
// for deployments where an upstream gateway authenticates the caller.
func HeaderIdentity(r *http.Request) string {
	return r.Header.Get("X-Owner-Id")
}

// Handler is the root HTTP handler for the hookline API.
type Handler struct {
	hook     *hookline.Hookline
	identity IdentityFunc
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewHandler creates a new API handler. identity may be nil, in which case
// HeaderIdentity is used.
func NewHandler(h *hookline.Hookline, identity IdentityFunc, logger *slog.Logger) *Handler {
	if identity == nil {
		identity = HeaderIdentity
	}
	if logger == nil {
		logger = slog.Default()
	}

	handler := &Handler{
		hook:     h,
		identity: identity,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	handler.registerRoutes()
	return handler
}

func (h *Handler) registerRoutes() {
	// Subscriptions
	h.mux.HandleFunc("POST /webhooks", h.createSubscription)
	h.mux.HandleFunc("GET /webhooks", h.listSubscriptions)
	h.mux.HandleFunc("GET /webhooks/{id}", h.getSubscription)
	h.mux.HandleFunc("PATCH /webhooks/{id}", h.updateSubscription)
	h.mux.HandleFunc("DELETE /webhooks/{id}", h.deleteSubscription)
	h.mux.HandleFunc("POST /webhooks/{id}/rotate-secret", h.rotateSecret)
	h.mux.HandleFunc("GET /webhooks/{id}/deliveries", h.listDeliveries)

	// Events
	h.mux.HandleFunc("POST /events", h.publishEvent)
	h.mux.HandleFunc("GET /events", h.listEvents)
	h.mux.HandleFunc("GET /event-types", h.listEventTypes)

	// Dead letters
	h.mux.HandleFunc("GET /dead-letters", h.listDeadLetters)
	h.mux.HandleFunc("POST /dead-letters/{id}/requeue", h.requeueDeadLetter)
	h.mux.HandleFunc("DELETE /dead-letters", h.purgeDeadLetters)

	// Audit + stats
	h.mux.HandleFunc("GET /audit", h.listAudit)
	h.mux.HandleFunc("GET /stats", h.getStats)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.panicRecovery(h.logging(next))
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.Info("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// owner resolves the caller identity, writing a 401 when there is none.
func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := h.identity(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "caller identity required")
		return "", false
	}
	return owner, true
}

// handleError maps service errors onto HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var vErr *subscription.ValidationError
	var limitErr *ratelimit.LimitExceededError

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &limitErr):
		if m := h.hook.Metrics(); m != nil {
			m.RecordRateLimitReject(string(limitErr.Action))
		}
		w.Header().Set("Retry-After", strconv.Itoa(int(limitErr.RetryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, limitErr.Error())
	case errors.Is(err, hookline.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, "subscription not found")
	case errors.Is(err, hookline.ErrDeliveryNotFound):
		writeError(w, http.StatusNotFound, "delivery not found")
	case errors.Is(err, hookline.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, hookline.ErrEventTypeUnknown):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hookline.ErrPayloadValidationFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, hookline.ErrNotDeadLettered):
		writeError(w, http.StatusConflict, "delivery is not dead-lettered")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// JSON helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryParam returns a query parameter value, or empty string if not present.
func queryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryInt returns a query parameter as int or a default value.
func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
