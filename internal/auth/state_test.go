package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/crewdesk/internal/auth"
)

func newStateStore(t *testing.T) *auth.StateStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return auth.NewStateStore(client, time.Minute)
}

func TestStateStoreIssueAndConsume(t *testing.T) {
	store := newStateStore(t)
	ctx := context.Background()

	state, err := store.Issue(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	assert.NoError(t, store.Consume(ctx, state))
}

func TestStateStoreRejectsReplay(t *testing.T) {
	store := newStateStore(t)
	ctx := context.Background()

	state, err := store.Issue(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Consume(ctx, state))
	assert.ErrorIs(t, store.Consume(ctx, state), auth.ErrStateUnknown)
}

func TestStateStoreRejectsUnknownState(t *testing.T) {
	store := newStateStore(t)
	assert.ErrorIs(t, store.Consume(context.Background(), "never-issued"), auth.ErrStateUnknown)
	assert.ErrorIs(t, store.Consume(context.Background(), ""), auth.ErrStateUnknown)
}
