package support

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skydesk/internal/model/convo"
	"skydesk/internal/monitor"
	"skydesk/internal/orchestrator"
	"skydesk/internal/reference"
	"skydesk/internal/session"
	"skydesk/pkg/utils"
)

// Handler exposes the support conversation API.
type Handler struct {
	orch    *orchestrator.Orchestrator
	watcher *monitor.Monitor
	logger  *zap.Logger
}

// New creates the support handler. watcher may be nil when the background
// monitor is disabled.
func New(orch *orchestrator.Orchestrator, watcher *monitor.Monitor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{orch: orch, watcher: watcher, logger: logger}
}

// RegisterRoutes mounts the support routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/support/message", h.handleMessage)
	r.Post("/support/continue-channel", h.handleContinueChannel)
	r.Post("/support/session/{sessionID}/reset", h.handleReset)
	r.Post("/support/session/{sessionID}/escalation/clear", h.handleClearEscalation)
	r.Get("/support/session/{sessionID}", h.handleGetSession)
	r.Get("/support/references", h.handleListReferences)
	r.Get("/support/references/{referenceID}", h.handleGetReference)
	r.Get("/support/commitments", h.handleListCommitments)
	r.Get("/support/alerts", h.handleAlerts)
	r.Get("/support/ws/{sessionID}", h.handleWebsocket)
}

type messagePayload struct {
	SessionID  string `json:"sessionId"`
	CustomerID string `json:"customerId"`
	TenantID   string `json:"tenantId"`
	Channel    string `json:"channel"`
	Text       string `json:"text"`
	Seq        int64  `json:"seq"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload messagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	resp, err := h.orch.ProcessTurn(r.Context(), orchestrator.TurnInput{
		SessionID:  payload.SessionID,
		CustomerID: payload.CustomerID,
		TenantID:   payload.TenantID,
		Channel:    convo.Channel(payload.Channel),
		Text:       payload.Text,
		Seq:        payload.Seq,
	})
	if err != nil {
		h.respondTurnError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleContinueChannel(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		ToChannel string `json:"toChannel"`
		Phone     string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" || payload.ToChannel == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId and toChannel are required")
		return
	}

	cont, err := h.orch.ContinueChannel(r.Context(), payload.SessionID, convo.Channel(payload.ToChannel), payload.Phone)
	if errors.Is(err, session.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("continue-channel failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "could not prepare the channel switch")
		return
	}

	utils.RespondJSON(w, http.StatusOK, cont)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	replacement, err := h.orch.ResetSession(r.Context(), sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("session reset failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "could not reset the session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"sessionId":            sessionID,
		"replacementSessionId": replacement,
	})
}

func (h *Handler) handleClearEscalation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	err := h.orch.ClearEscalation(r.Context(), sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("escalation clear failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "could not clear the escalation")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID, "status": "cleared"})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.orch.Session(r.Context(), sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleListReferences(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		utils.RespondError(w, http.StatusBadRequest, "customerId query parameter is required")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string][]reference.Reference{
		"references": h.orch.References(r.Context(), customerID),
	})
}

func (h *Handler) handleGetReference(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "referenceID")

	ref, err := h.orch.Reference(r.Context(), id)
	if errors.Is(err, reference.ErrReferenceNotFound) {
		utils.RespondError(w, http.StatusNotFound, "reference not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, ref)
}

func (h *Handler) handleListCommitments(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		utils.RespondError(w, http.StatusBadRequest, "customerId query parameter is required")
		return
	}

	response := map[string]any{
		"commitments": h.orch.Commitments(r.Context(), customerID),
	}

	// The effort read rides along when the caller names a session.
	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		if eff, err := h.orch.SessionEffort(r.Context(), sessionID); err == nil {
			response["customerEffort"] = eff
		}
	}

	utils.RespondJSON(w, http.StatusOK, response)
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		utils.RespondError(w, http.StatusBadRequest, "customerId is required")
		return
	}

	sessions := make(map[string]bool)
	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		sessions[sessionID] = true
	} else {
		for _, id := range h.orch.CustomerSessionIDs(r.Context(), customerID) {
			sessions[id] = true
		}
	}

	alerts := []monitor.Alert{}
	if h.watcher != nil {
		alerts = scopeAlerts(h.watcher.Alerts(), sessions)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"overdueCommitments": h.orch.OverdueCommitments(r.Context(), customerID),
		"disruptionAlerts":   alerts,
	})
}

// scopeAlerts keeps only the alerts touching one of the caller's sessions.
// An alert for somebody else's flight is not this customer's business.
func scopeAlerts(alerts []monitor.Alert, sessions map[string]bool) []monitor.Alert {
	out := []monitor.Alert{}
	for _, alert := range alerts {
		for _, id := range alert.SessionIDs {
			if sessions[id] {
				out = append(out, alert)
				break
			}
		}
	}
	return out
}

// turnErrorResponse maps a ProcessTurn failure to the status and message
// the customer sees, shared by the REST and websocket surfaces.
func (h *Handler) turnErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyMessage):
		return http.StatusBadRequest, "text is required"
	case errors.Is(err, orchestrator.ErrStaleSequence):
		return http.StatusConflict, "sequence already processed with different text"
	case errors.Is(err, session.ErrSessionIDRequired):
		return http.StatusBadRequest, "sessionId is required"
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	default:
		h.logger.Error("turn processing failed", zap.Error(err))
		return http.StatusInternalServerError, "could not process the message"
	}
}

func (h *Handler) respondTurnError(w http.ResponseWriter, err error) {
	status, message := h.turnErrorResponse(err)
	utils.RespondError(w, status, message)
}
