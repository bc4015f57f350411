package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gearadvisor-backend/internal/advisor"
)

type contextKey string

const SessionKey contextKey = "session"

// SessionCookieName holds the signed session token.
const SessionCookieName = "advisor_session"

var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionStore is the subset of the session repository the middleware needs.
type SessionStore interface {
	Create(ctx context.Context) *advisor.Session
	Get(ctx context.Context, id uuid.UUID) (*advisor.Session, error)
}

// SessionAuth binds each browser to one conversation session through a
// signed cookie.
type SessionAuth struct {
	Secret []byte
	TTL    time.Duration
	Secure bool

	store  SessionStore
	logger *zap.Logger
}

func NewSessionAuth(secret string, ttl time.Duration, secure bool, store SessionStore, logger *zap.Logger) *SessionAuth {
	return &SessionAuth{
		Secret: []byte(secret),
		TTL:    ttl,
		Secure: secure,
		store:  store,
		logger: logger,
	}
}

// GenerateToken creates a JWT naming the session, valid for TTL.
func (a *SessionAuth) GenerateToken(sessionID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"session_id": sessionID.String(),
		"exp":        now.Add(a.TTL).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.Secret)
}

// ParseToken verifies tokenStr and returns the session id it names.
func (a *SessionAuth) ParseToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.Secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidSessionToken
	}

	idStr, ok := claims["session_id"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidSessionToken
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, ErrInvalidSessionToken
	}
	return id, nil
}

// Middleware resolves the caller's session from the cookie, creating a new
// one when the cookie is missing, invalid or names an ended session. Only
// the page entry point creates sessions; other routes use Resolve.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := a.resolve(r)
		if session == nil {
			session = a.store.Create(r.Context())
			a.logger.Info("session created", zap.String("session_id", session.ID.String()))
		}
		a.attach(w, r, next, session)
	})
}

// Resolve attaches the caller's existing session, if any, and never creates
// one. Handlers behind it see a nil session for cookieless requests.
func (a *SessionAuth) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := a.resolve(r)
		if session == nil {
			next.ServeHTTP(w, r)
			return
		}
		a.attach(w, r, next, session)
	})
}

// attach re-issues the cookie so active sessions do not expire, then runs
// next with the session in its context.
func (a *SessionAuth) attach(w http.ResponseWriter, r *http.Request, next http.Handler, session *advisor.Session) {
	token, err := a.GenerateToken(session.ID)
	if err != nil {
		a.logger.Error("failed to sign session token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not start a session", r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
}

func (a *SessionAuth) resolve(r *http.Request) *advisor.Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	id, err := a.ParseToken(cookie.Value)
	if err != nil {
		a.logger.Debug("discarding session cookie", zap.Error(err))
		return nil
	}

	session, err := a.store.Get(r.Context(), id)
	if err != nil {
		return nil
	}
	return session
}

// GetSession extracts the session attached by Middleware.
func GetSession(ctx context.Context) *advisor.Session {
	session, _ := ctx.Value(SessionKey).(*advisor.Session)
	return session
}

// WithSession attaches session to ctx.
func WithSession(ctx context.Context, session *advisor.Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}
