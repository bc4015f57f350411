package models

import "github.com/google/uuid"

// Role tags the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role    Role   `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// TurnView is a turn positioned in its session and rendered for display.
// It is the payload of "turn" websocket events.
type TurnView struct {
	SessionID uuid.UUID `json:"session_id"`
	Index     int       `json:"index"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	HTML      string    `json:"html"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the result of one submit: the user's turn, the reply
// appended after it and, when the model call failed, a one-line diagnostic.
type ChatResponse struct {
	SessionID  uuid.UUID `json:"session_id"`
	UserTurn   TurnView  `json:"user_turn"`
	Reply      TurnView  `json:"reply"`
	Diagnostic string    `json:"diagnostic,omitempty"`
}

// TranscriptResponse lists every turn of a session in display order.
type TranscriptResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Title     string    `json:"title"`
	Turns     []Turn    `json:"turns"`
}
