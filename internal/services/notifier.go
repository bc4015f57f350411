package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gearadvisor-backend/internal/advisor"
	"gearadvisor-backend/internal/models"
	"gearadvisor-backend/internal/render"
)

// Publisher delivers a websocket message to every connection of a session.
type Publisher interface {
	Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) error
}

// SessionChannel is the Redis channel carrying events for one session.
func SessionChannel(sessionID uuid.UUID) string {
	return "session_turns:" + sessionID.String()
}

// RedisPublisher sends a WebSocket update via Redis pub/sub so any instance
// holding the session's sockets can forward it.
type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal ws message: %w", err)
	}
	return p.redis.Publish(ctx, SessionChannel(sessionID), string(data)).Err()
}

// publishTimeout bounds one event publish so a slow relay cannot hold up
// the reply.
const publishTimeout = 3 * time.Second

// TurnNotifier renders appended turns and pushes them to the session's
// sockets. It implements advisor.Notifier.
type TurnNotifier struct {
	publisher Publisher
	markdown  *render.Markdown
	logger    *zap.Logger
}

func NewTurnNotifier(publisher Publisher, markdown *render.Markdown, logger *zap.Logger) *TurnNotifier {
	return &TurnNotifier{
		publisher: publisher,
		markdown:  markdown,
		logger:    logger,
	}
}

func (n *TurnNotifier) TurnAppended(ctx context.Context, session *advisor.Session, index int, turn models.Turn) {
	event := models.TurnView{
		SessionID: session.ID,
		Index:     index,
		Role:      turn.Role,
		Content:   turn.Content,
		HTML:      RenderTurn(n.markdown, turn),
	}
	n.publish(ctx, session.ID, models.WSMessage{Type: models.WSTypeTurn, Payload: event})
}

func (n *TurnNotifier) Diagnostic(ctx context.Context, session *advisor.Session, message string) {
	event := models.DiagnosticEvent{SessionID: session.ID, Message: message}
	n.publish(ctx, session.ID, models.WSMessage{Type: models.WSTypeDiagnostic, Payload: event})
}

func (n *TurnNotifier) publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := n.publisher.Publish(ctx, sessionID, msg); err != nil {
		n.logger.Warn("failed to publish session event",
			zap.String("session_id", sessionID.String()),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
	}
}

// RenderTurn returns the HTML shown for a turn. Assistant replies are
// Markdown; user input is escaped verbatim.
func RenderTurn(md *render.Markdown, turn models.Turn) string {
	if turn.Role == models.RoleUser {
		return render.Plain(turn.Content)
	}
	out, err := md.ToHTML(turn.Content)
	if err != nil {
		return render.Plain(turn.Content)
	}
	return out
}
