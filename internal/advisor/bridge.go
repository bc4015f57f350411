// Package advisor implements the conversation bridge between a chat
// session and the hosted model.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gearadvisor-backend/internal/models"
)

var (
	ErrEmptyInput   = errors.New("message is required")
	ErrCallInFlight = errors.New("a reply is still being generated")
	ErrEmptyReply   = errors.New("model returned an empty reply")
)

// Generator sends a request payload to the model and returns the reply text.
type Generator interface {
	Generate(ctx context.Context, payload []Message) (string, error)
}

// Notifier renders turns as they are appended. Diagnostic is shown once
// and never stored.
type Notifier interface {
	TurnAppended(ctx context.Context, session *Session, index int, turn models.Turn)
	Diagnostic(ctx context.Context, session *Session, message string)
}

// ExternalCallError wraps any failure raised while calling the model or
// reading its reply.
type ExternalCallError struct {
	Err error
}

func (e *ExternalCallError) Error() string {
	return e.Err.Error()
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}

// Exchange is the outcome of one Submit.
type Exchange struct {
	UserTurn   models.Turn
	UserIndex  int
	Reply      models.Turn
	ReplyIndex int
	Failed     bool
	Diagnostic string
}

// outcome is what the model wrapper hands back: either text or a failure.
type outcome struct {
	text    string
	failure *ExternalCallError
}

type Bridge struct {
	generator Generator
	notifier  Notifier
	logger    *zap.Logger
}

func NewBridge(generator Generator, notifier Notifier, logger *zap.Logger) *Bridge {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		generator: generator,
		notifier:  notifier,
		logger:    logger,
	}
}

// Submit appends text as a user turn, asks the model for a reply and
// appends it. Model failures never surface as errors: the fallback reply
// is appended instead and Exchange.Diagnostic describes the failure.
func (b *Bridge) Submit(ctx context.Context, session *Session, text string) (Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return Exchange{}, ErrEmptyInput
	}
	if !session.begin() {
		return Exchange{}, ErrCallInFlight
	}
	defer session.end()

	userTurn := models.Turn{Role: models.RoleUser, Content: text}
	idx := session.appendTurn(userTurn)
	b.notifier.TurnAppended(ctx, session, idx, userTurn)

	payload := BuildPayload(session.Turns())
	result := b.invoke(ctx, payload)

	exchange := Exchange{UserTurn: userTurn, UserIndex: idx}
	if result.failure != nil {
		exchange.Failed = true
		exchange.Diagnostic = DiagnosticPrefix + firstLine(result.failure.Error())
		exchange.Reply = models.Turn{Role: models.RoleAssistant, Content: FallbackReply}

		b.logger.Warn("model call failed",
			zap.String("session_id", session.ID.String()),
			zap.Int("payload_len", len(payload)),
			zap.Error(result.failure),
		)
		b.notifier.Diagnostic(ctx, session, exchange.Diagnostic)
	} else {
		exchange.Reply = models.Turn{Role: models.RoleAssistant, Content: result.text}

		b.logger.Debug("model replied",
			zap.String("session_id", session.ID.String()),
			zap.Int("payload_len", len(payload)),
			zap.Int("reply_len", len(result.text)),
		)
	}

	exchange.ReplyIndex = session.appendTurn(exchange.Reply)
	b.notifier.TurnAppended(ctx, session, exchange.ReplyIndex, exchange.Reply)

	return exchange, nil
}

// invoke calls the generator and folds every failure mode, panics
// included, into the outcome.
func (b *Bridge) invoke(ctx context.Context, payload []Message) (res outcome) {
	defer func() {
		if r := recover(); r != nil {
			res = outcome{failure: &ExternalCallError{Err: fmt.Errorf("model client panic: %v", r)}}
		}
	}()

	text, err := b.generator.Generate(ctx, payload)
	if err != nil {
		return outcome{failure: &ExternalCallError{Err: err}}
	}
	if strings.TrimSpace(text) == "" {
		return outcome{failure: &ExternalCallError{Err: ErrEmptyReply}}
	}
	return outcome{text: text}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

type nopNotifier struct{}

func (nopNotifier) TurnAppended(context.Context, *Session, int, models.Turn) {}
func (nopNotifier) Diagnostic(context.Context, *Session, string)             {}
