package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"smartparking/internal/common/auth"
	"smartparking/internal/common/contextx"
	"smartparking/internal/common/log"
	"smartparking/internal/navigation/app"
	"smartparking/internal/navigation/domain"
)

// Handler exposes the navigation commands over HTTP.
type Handler struct {
	appService *app.AppService
	jwt        *auth.Manager
	logger     *slog.Logger
}

func NewHandler(appService *app.AppService, jwt *auth.Manager, lg *slog.Logger) *Handler {
	return &Handler{
		appService: appService,
		jwt:        jwt,
		logger:     lg,
	}
}

type coordinatePayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type startTripRequest struct {
	Destination coordinatePayload  `json:"destination"`
	Origin      *coordinatePayload `json:"origin,omitempty"`
}

type startTripResponse struct {
	TripID  string `json:"trip_id"`
	Message string `json:"message"`
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/trips/", h.tripsPrefixHandler)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

func (h *Handler) tripsPrefixHandler(w http.ResponseWriter, r *http.Request) {
	ctx := contextx.WithNewRequestID(r.Context())

	p := strings.TrimPrefix(r.URL.Path, "/trips/")
	parts := strings.Split(p, "/")
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}

	userID := parts[0]
	action := parts[1]

	if err := h.authorize(r, userID); err != nil {
		writeJSONError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	switch {
	case r.Method == http.MethodPost && action == "start":
		h.handleStartTrip(ctx, w, r, userID)
	case r.Method == http.MethodPost && action == "begin":
		h.handleCommand(ctx, w, userID, "begin_navigating", func() error {
			return h.appService.BeginNavigating(ctx, userID)
		})
	case r.Method == http.MethodPost && action == "stop":
		h.handleCommand(ctx, w, userID, "stop_navigating", func() error {
			return h.appService.StopNavigating(ctx, userID)
		})
	case r.Method == http.MethodPost && action == "recenter":
		h.handleCommand(ctx, w, userID, "request_recenter", func() error {
			return h.appService.RequestRecenter(userID)
		})
	case r.Method == http.MethodPost && action == "pan":
		h.handleCommand(ctx, w, userID, "report_manual_pan", func() error {
			return h.appService.ReportManualPan(userID)
		})
	case r.Method == http.MethodPost && action == "destination":
		h.handleChangeDestination(ctx, w, r, userID)
	case r.Method == http.MethodPost && action == "end":
		h.handleCommand(ctx, w, userID, "end_trip", func() error {
			return h.appService.EndTrip(ctx, userID)
		})
	case r.Method == http.MethodGet && action == "snapshot":
		h.handleSnapshot(ctx, w, userID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) authorize(r *http.Request, userID string) error {
	token, err := auth.FromAuthorization(r)
	if err != nil {
		return err
	}
	claims, err := h.jwt.ParseAndValidate(token)
	if err != nil {
		return err
	}
	if claims.UserID != userID {
		return auth.ErrInvalidToken
	}
	return nil
}

func (h *Handler) handleStartTrip(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string) {
	start := time.Now()

	var req startTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error(ctx, h.logger, "invalid_body", "Unable to decode request body", err)
		writeJSONError(ctx, w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	dest := domain.Coordinate(req.Destination)
	var origin *domain.Coordinate
	if req.Origin != nil {
		o := domain.Coordinate(*req.Origin)
		origin = &o
	}

	tripID, err := h.appService.StartTrip(ctx, userID, dest, origin)
	if err != nil {
		h.handleAppError(ctx, w, err, userID)
		return
	}

	writeJSONInfo(ctx, w, http.StatusCreated, startTripResponse{
		TripID:  tripID,
		Message: "Trip created; route fetch in progress",
	})

	log.Info(ctx, h.logger, "trip_started", fmt.Sprintf("user=%s trip=%s duration_ms=%d", userID, tripID, time.Since(start).Milliseconds()))
}

func (h *Handler) handleChangeDestination(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string) {
	var req coordinatePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error(ctx, h.logger, "invalid_body", "Unable to decode request body", err)
		writeJSONError(ctx, w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.appService.ChangeDestination(ctx, userID, domain.Coordinate(req)); err != nil {
		h.handleAppError(ctx, w, err, userID)
		return
	}

	writeJSONInfo(ctx, w, http.StatusOK, map[string]any{"message": "destination changed"})
}

func (h *Handler) handleCommand(ctx context.Context, w http.ResponseWriter, userID, action string, fn func() error) {
	if err := fn(); err != nil {
		h.handleAppError(ctx, w, err, userID)
		return
	}
	writeJSONInfo(ctx, w, http.StatusOK, map[string]any{"message": "ok"})
	log.Info(ctx, h.logger, action, fmt.Sprintf("user=%s", userID))
}

func (h *Handler) handleSnapshot(ctx context.Context, w http.ResponseWriter, userID string) {
	snap, err := h.appService.Snapshot(userID)
	if err != nil {
		h.handleAppError(ctx, w, err, userID)
		return
	}
	writeJSONInfo(ctx, w, http.StatusOK, snap)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
