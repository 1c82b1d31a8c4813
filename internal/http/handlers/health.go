package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/taskql/internal/http/respond"
)

// Pinger is the store health check; storage.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns uptime and store reachability.
type HealthHandler struct {
	startedAt time.Time
	store     Pinger
	timeout   time.Duration
	logger    *slog.Logger
}

// NewHealthHandler creates a health endpoint handler.
func NewHealthHandler(startedAt time.Time, store Pinger, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{startedAt: startedAt, store: store, timeout: 2 * time.Second, logger: logger}
}

// Register wires the handler into a router.
func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/health", h.handle)
}

type healthStatus struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Store  string `json:"store"`
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Truncate(time.Second).String(),
		Store:  "ok",
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.WarnContext(r.Context(), "health: store ping failed", slog.String("error", err.Error()))
		status.Status = "degraded"
		status.Store = "unreachable"
		respond.JSON(w, http.StatusServiceUnavailable, "degraded", status)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", status)
}
