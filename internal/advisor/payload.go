package advisor

import "gearadvisor-backend/internal/models"

// ModelRole is the role vocabulary of the external model API.
type ModelRole string

const (
	ModelRoleUser  ModelRole = "user"
	ModelRoleModel ModelRole = "model"
)

// Message is one entry of a model request.
type Message struct {
	Role ModelRole
	Text string
}

// BuildPayload re-expresses history as a model request. The system prompt
// and the greeting always come first; history[0] is the seeded greeting and
// is not repeated.
func BuildPayload(history []models.Turn) []Message {
	payload := make([]Message, 0, len(history)+1)
	payload = append(payload,
		Message{Role: ModelRoleUser, Text: SystemPrompt},
		Message{Role: ModelRoleModel, Text: Greeting},
	)

	if len(history) < 2 {
		return payload
	}

	for _, turn := range history[1:] {
		payload = append(payload, Message{Role: modelRole(turn.Role), Text: turn.Content})
	}
	return payload
}

func modelRole(role models.Role) ModelRole {
	if role == models.RoleUser {
		return ModelRoleUser
	}
	return ModelRoleModel
}
