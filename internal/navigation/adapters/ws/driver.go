package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"smartparking/internal/common/auth"
	"smartparking/internal/common/ws"
	"smartparking/internal/navigation/app"
	"smartparking/internal/navigation/domain"
)

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type clientMessage struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type serverMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WSHandler terminates the driver navigation socket: inbound position fixes
// and commands, outbound snapshot pushes via the shared hub.
type WSHandler struct {
	appService *app.AppService
	jwt        *auth.Manager
	logger     *slog.Logger
	hub        *ws.Hub
	upgrader   websocket.Upgrader
}

func NewWSHandler(appService *app.AppService, jwt *auth.Manager, hub *ws.Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		appService: appService,
		jwt:        jwt,
		logger:     logger,
		hub:        hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) HandleDriverWS(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/ws/drivers/")
	if userID == "" {
		http.Error(w, "missing driver id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws_upgrade_fail", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("ws_connected", "user_id", userID)

	// ---------------- AUTH PHASE ----------------
	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) // 5-second window for first message
	_, data, err := conn.ReadMessage()
	if err != nil {
		h.logger.Warn("ws_auth_timeout_or_fail", "user_id", userID, "error", err)
		conn.WriteJSON(serverMessage{Type: "error", Message: "auth timeout or failed"})
		return
	}

	var authMsg authMessage
	if err := json.Unmarshal(data, &authMsg); err != nil {
		h.logger.Warn("ws_auth_unmarshal_fail", "user_id", userID, "error", err)
		conn.WriteJSON(serverMessage{Type: "error", Message: "invalid auth message"})
		return
	}
	if authMsg.Type != "auth" || authMsg.Token == "" {
		conn.WriteJSON(serverMessage{Type: "error", Message: "bad auth format"})
		return
	}
	claims, err := h.jwt.ParseAndValidate(strings.TrimPrefix(authMsg.Token, "Bearer "))
	if err != nil {
		conn.WriteJSON(serverMessage{Type: "error", Message: "invalid token"})
		return
	}
	if claims.UserID != userID {
		conn.WriteJSON(serverMessage{Type: "error", Message: "token-user mismatch"})
		return
	}

	h.logger.Info("ws_auth_success", "user_id", userID)
	h.hub.Add(userID, conn)
	defer h.hub.Remove(userID)
	conn.WriteJSON(serverMessage{Type: "info", Message: "authenticated"})

	// ---------------- MESSAGE PHASE ----------------
	const pongWait = 60 * time.Second
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			h.logger.Warn("ws_read_fail", "user_id", userID, "error", err)
			return
		}
		// each message extends the read deadline
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		h.dispatch(r, userID, conn, msg)
	}
}

func (h *WSHandler) dispatch(r *http.Request, userID string, conn *websocket.Conn, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		conn.WriteJSON(serverMessage{Type: "error", Message: "invalid message"})
		return
	}

	ctx := r.Context()
	var err error
	switch msg.Type {
	case "position":
		fix := domain.Fix{
			Coordinate: domain.Coordinate{Latitude: msg.Latitude, Longitude: msg.Longitude},
			ReceivedAt: time.Now().UTC(),
		}
		err = h.appService.OnPosition(ctx, userID, fix)
	case "begin":
		err = h.appService.BeginNavigating(ctx, userID)
	case "stop":
		err = h.appService.StopNavigating(ctx, userID)
	case "recenter":
		err = h.appService.RequestRecenter(userID)
	case "pan":
		err = h.appService.ReportManualPan(userID)
	default:
		conn.WriteJSON(serverMessage{Type: "error", Message: "unknown message type"})
		return
	}

	if err != nil {
		conn.WriteJSON(serverMessage{Type: "error", Message: err.Error()})
	}
}
