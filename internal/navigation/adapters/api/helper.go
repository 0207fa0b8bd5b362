package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"smartparking/internal/common/contextx"
	"smartparking/internal/common/log"
	"smartparking/internal/navigation/domain"
)

// -------------------- ERROR HANDLING --------------------

func (h *Handler) handleAppError(ctx context.Context, w http.ResponseWriter, err error, userID string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinates):
		writeJSONError(ctx, w, http.StatusBadRequest, "invalid coordinates")
	case errors.Is(err, domain.ErrInvalidUserID):
		writeJSONError(ctx, w, http.StatusBadRequest, "invalid user ID")
	case errors.Is(err, domain.ErrNoActiveTrip):
		writeJSONError(ctx, w, http.StatusNotFound, "no active trip")
	case errors.Is(err, domain.ErrRouteUnavailable):
		writeJSONError(ctx, w, http.StatusConflict, "no route available yet")
	case errors.Is(err, domain.ErrPositionUnavailable):
		writeJSONError(ctx, w, http.StatusConflict, "no live position available")
	case errors.Is(err, domain.ErrSessionClosed):
		writeJSONError(ctx, w, http.StatusGone, "trip already ended")
	default:
		log.Error(ctx, h.logger, "internal_error", "Unhandled error for user "+userID, err)
		writeJSONError(ctx, w, http.StatusInternalServerError, "internal server error")
	}
}

// -------------------- RESPONSE HELPERS --------------------

func writeJSONError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]any{
		"error":      message,
		"code":       status,
		"request_id": contextx.GetRequestID(ctx),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSONInfo(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
