package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	mode   string
	wallet string
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler reporting the given running mode
// and tracked wallet.
func NewHealthHandler(mode, wallet string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{mode: mode, wallet: wallet, logger: logger}
}

// HealthCheck reports liveness plus the running mode and whether a wallet
// is configured.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"mode":              h.mode,
		"wallet_configured": h.wallet != "",
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	})
}
