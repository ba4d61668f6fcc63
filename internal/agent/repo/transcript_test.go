package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/library-assistant-poc/server/internal/agent/model"
	pkgredis "github.com/library-assistant-poc/server/pkg/redis"
)

func newRepo(t *testing.T) *RedisTranscriptRepository {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	cfg := pkgredis.Config{URL: url, ReadTimeout: 3, WriteTimeout: 3, DialTimeout: 5}
	client, err := cfg.New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTranscriptRepository(client, time.Minute)
}

func TestTranscriptKey(t *testing.T) {
	r := NewRedisTranscriptRepository(nil, 0)
	assert.Equal(t, "library:session:abc:turns", r.transcriptKey("abc"))
}

func TestAppendTurnRejectsNil(t *testing.T) {
	r := NewRedisTranscriptRepository(nil, 0)
	err := r.AppendTurn(context.Background(), "abc", nil)
	require.Error(t, err)
}

func TestTranscriptRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	session := uuid.NewString()
	t.Cleanup(func() { _ = r.ClearTurns(ctx, session) })

	n, err := r.CountTurns(ctx, session)
	require.NoError(t, err)
	assert.Zero(t, n)

	turns, err := r.LoadTurns(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, turns)

	require.NoError(t, r.AppendTurn(ctx, session, &model.TurnResult{
		TurnID:    "t1",
		Query:     "Do you have Python Programming?",
		Output:    "Yes, 5 copies.",
		ToolCalls: []string{"check_book_availability"},
	}))
	require.NoError(t, r.AppendTurn(ctx, session, &model.TurnResult{
		TurnID:  "t2",
		Query:   "What's the weather?",
		Output:  "Tayyab I am only library assistant I can't talk about any other topic.",
		Refused: true,
		Verdict: model.GuardrailVerdict{QueryIsNotRelated: true},
	}))

	n, err = r.CountTurns(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	turns, err = r.LoadTurns(ctx, session)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "t1", turns[0].TurnID)
	assert.Equal(t, []string{"check_book_availability"}, turns[0].ToolCalls)
	assert.True(t, turns[1].Refused)

	require.NoError(t, r.ClearTurns(ctx, session))
	n, err = r.CountTurns(ctx, session)
	require.NoError(t, err)
	assert.Zero(t, n)
}
