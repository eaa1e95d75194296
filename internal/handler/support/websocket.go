package support

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"skydesk/internal/model/convo"
	"skydesk/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TurnMessage carries one customer message over the socket. A turn sent here
// produces the same response as the same turn posted over HTTP.
type TurnMessage struct {
	CustomerID string `json:"customerId"`
	TenantID   string `json:"tenantId"`
	Channel    string `json:"channel"`
	Text       string `json:"text"`
	Seq        int64  `json:"seq"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("websocket connected", zap.String("sessionId", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.sendInfo(conn, sessionID, map[string]any{"type": "connected"})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Warn("websocket read error", zap.Error(err))
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if msg.SessionID != "" && msg.SessionID != sessionID {
				h.sendSocketError(conn, "session mismatch")
				continue
			}

			h.handleSocketMessage(ctx, conn, sessionID, &msg)
		}
	}
}

func (h *Handler) handleSocketMessage(ctx context.Context, conn *websocket.Conn, sessionID string, msg *inboundMessage) {
	switch msg.Type {
	case "turn":
		h.handleSocketTurn(ctx, conn, sessionID, msg.Data)
	case "ping":
		h.sendInfo(conn, sessionID, map[string]any{"type": "pong"})
	default:
		h.sendSocketError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleSocketTurn(ctx context.Context, conn *websocket.Conn, sessionID string, raw json.RawMessage) {
	var turn TurnMessage
	if err := json.Unmarshal(raw, &turn); err != nil {
		h.sendSocketError(conn, "invalid turn payload")
		return
	}

	channel := convo.Channel(turn.Channel)
	if turn.Channel == "" {
		channel = convo.ChannelWeb
	}

	resp, err := h.orch.ProcessTurn(ctx, orchestrator.TurnInput{
		SessionID:  sessionID,
		CustomerID: turn.CustomerID,
		TenantID:   turn.TenantID,
		Channel:    channel,
		Text:       turn.Text,
		Seq:        turn.Seq,
	})
	if err != nil {
		_, message := h.turnErrorResponse(err)
		h.sendSocketError(conn, message)
		return
	}

	h.sendInfo(conn, sessionID, map[string]any{
		"type": "turn_result",
		"turn": resp,
	})
}

func (h *Handler) sendInfo(conn *websocket.Conn, sessionID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn("websocket write failed", zap.Error(err))
	}
}

func (h *Handler) sendSocketError(conn *websocket.Conn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn("websocket write failed", zap.Error(err))
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
