package models

import (
	"github.com/google/uuid"
)

// WebSocket message types
const (
	WSTypeTurn       = "turn"
	WSTypeDiagnostic = "diagnostic"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DiagnosticEvent carries the transient failure notice. It is never stored.
type DiagnosticEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	Message   string    `json:"message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
