package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gearadvisor-backend/internal/advisor"
	"gearadvisor-backend/internal/middleware"
	"gearadvisor-backend/internal/models"
	"gearadvisor-backend/internal/render"
	"gearadvisor-backend/internal/services"
)

type conversationBridge interface {
	Submit(ctx context.Context, session *advisor.Session, text string) (advisor.Exchange, error)
}

type ChatHandler struct {
	bridge   conversationBridge
	markdown *render.Markdown
	logger   *zap.Logger
}

func NewChatHandler(bridge conversationBridge, markdown *render.Markdown, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		bridge:   bridge,
		markdown: markdown,
		logger:   logger,
	}
}

// Transcript returns every turn of the caller's session.
func (h *ChatHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	writeJSON(w, http.StatusOK, models.TranscriptResponse{
		SessionID: session.ID,
		Title:     advisor.Title,
		Turns:     session.Turns(),
	})
}

// Send submits one message. A failed model call still answers 200: the
// fallback reply is a normal turn and the diagnostic explains the failure.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	exchange, err := submit(r, h.bridge, session, req.Message)
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		SessionID:  session.ID,
		UserTurn:   turnView(h.markdown, session, exchange.UserIndex, exchange.UserTurn),
		Reply:      turnView(h.markdown, session, exchange.ReplyIndex, exchange.Reply),
		Diagnostic: exchange.Diagnostic,
	})
}

func (h *ChatHandler) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, advisor.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
	case errors.Is(err, advisor.ErrCallInFlight):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "A reply is still being generated", r))
	default:
		h.logger.Error("chat submit failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to process message", r))
	}
}

// submit detaches the model call from the request so a client that goes
// away mid-call still gets a consistent history on its next visit.
func submit(r *http.Request, bridge conversationBridge, session *advisor.Session, text string) (advisor.Exchange, error) {
	return bridge.Submit(context.WithoutCancel(r.Context()), session, text)
}

func turnView(md *render.Markdown, session *advisor.Session, index int, turn models.Turn) models.TurnView {
	return models.TurnView{
		SessionID: session.ID,
		Index:     index,
		Role:      turn.Role,
		Content:   turn.Content,
		HTML:      services.RenderTurn(md, turn),
	}
}
