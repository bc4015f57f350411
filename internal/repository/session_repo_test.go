package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gearadvisor-backend/internal/advisor"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestRepo(ttl time.Duration) (*SessionRepo, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	repo := NewSessionRepo(ttl)
	repo.now = clock.Now
	return repo, clock
}

func TestSessionRepo_CreateAndGet(t *testing.T) {
	repo, _ := newTestRepo(time.Hour)
	ctx := context.Background()

	session := repo.Create(ctx)
	require.Equal(t, 1, session.Len())

	got, err := repo.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)
	assert.Equal(t, advisor.Greeting, got.Turns()[0].Content)
}

func TestSessionRepo_GetMissing(t *testing.T) {
	repo, _ := newTestRepo(time.Hour)

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepo_GetExpired(t *testing.T) {
	repo, clock := newTestRepo(time.Hour)
	ctx := context.Background()
	session := repo.Create(ctx)

	clock.t = clock.t.Add(30 * time.Minute)
	_, err := repo.Get(ctx, session.ID)
	require.NoError(t, err)

	// Get refreshed activity, so another 45 minutes is still within the TTL.
	clock.t = clock.t.Add(45 * time.Minute)
	_, err = repo.Get(ctx, session.ID)
	require.NoError(t, err)

	clock.t = clock.t.Add(61 * time.Minute)
	_, err = repo.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, repo.Count())
}

func TestSessionRepo_Sweep(t *testing.T) {
	repo, clock := newTestRepo(time.Hour)
	ctx := context.Background()

	stale := repo.Create(ctx)
	clock.t = clock.t.Add(50 * time.Minute)
	fresh := repo.Create(ctx)

	clock.t = clock.t.Add(20 * time.Minute)
	assert.Equal(t, 1, repo.Sweep())

	_, err := repo.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = repo.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestSessionRepo_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := NewSessionRepo(time.Nanosecond)
	repo.Create(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		repo.Run(ctx, time.Millisecond, func(removed int) {
			select {
			case swept <- removed:
			default:
			}
		})
	}()

	select {
	case n := <-swept:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never ran")
	}

	cancel()
	<-done
	assert.Equal(t, 0, repo.Count())
}
