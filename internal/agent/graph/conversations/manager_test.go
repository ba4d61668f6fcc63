package conversations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/library-assistant-poc/server/internal/agent/model"
)

type fakeRunner struct {
	inputs []model.QueryInput
	result *model.TurnResult
	err    error
}

func (f *fakeRunner) Invoke(_ context.Context, in model.QueryInput) (*model.TurnResult, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	out := *f.result
	out.TurnID = in.TurnID
	out.Query = in.Query
	return &out, nil
}

type memTranscript struct {
	turns map[string][]*model.TurnResult
	err   error
}

func (m *memTranscript) AppendTurn(_ context.Context, sessionID string, turn *model.TurnResult) error {
	if m.err != nil {
		return m.err
	}
	if m.turns == nil {
		m.turns = map[string][]*model.TurnResult{}
	}
	m.turns[sessionID] = append(m.turns[sessionID], turn)
	return nil
}

func (m *memTranscript) LoadTurns(_ context.Context, sessionID string) ([]*model.TurnResult, error) {
	return m.turns[sessionID], nil
}

func (m *memTranscript) ClearTurns(_ context.Context, sessionID string) error {
	delete(m.turns, sessionID)
	return nil
}

func (m *memTranscript) CountTurns(_ context.Context, sessionID string) (int, error) {
	return len(m.turns[sessionID]), nil
}

var tayyab = model.UserIdentity{Name: "Tayyab", UserID: 12345}

func TestAskBindsUserAndTurnID(t *testing.T) {
	runner := &fakeRunner{result: &model.TurnResult{Output: "ok"}}
	sm := NewSessionManager(runner, nil, tayyab)

	out, err := sm.Ask(context.Background(), "  Do you have Python Programming?  ")
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Output)

	require.Len(t, runner.inputs, 1)
	in := runner.inputs[0]
	assert.Equal(t, tayyab, in.User)
	assert.Equal(t, "Do you have Python Programming?", in.Query)
	assert.NotEmpty(t, in.TurnID)

	_, err = sm.Ask(context.Background(), "again")
	require.NoError(t, err)
	assert.NotEqual(t, runner.inputs[0].TurnID, runner.inputs[1].TurnID)
}

func TestAskRecordsTranscript(t *testing.T) {
	runner := &fakeRunner{result: &model.TurnResult{Output: "ok"}}
	store := &memTranscript{}
	sm := NewSessionManager(runner, store, tayyab)

	_, err := sm.Ask(context.Background(), "first")
	require.NoError(t, err)
	_, err = sm.Ask(context.Background(), "second")
	require.NoError(t, err)

	n, err := store.CountTurns(context.Background(), sm.SessionID())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "first", store.turns[sm.SessionID()][0].Query)
}

func TestAskIgnoresTranscriptFailure(t *testing.T) {
	runner := &fakeRunner{result: &model.TurnResult{Output: "ok"}}
	sm := NewSessionManager(runner, &memTranscript{err: errors.New("redis down")}, tayyab)

	out, err := sm.Ask(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Output)
}

func TestAskPropagatesTurnFailure(t *testing.T) {
	boom := errors.New("endpoint unreachable")
	store := &memTranscript{}
	sm := NewSessionManager(&fakeRunner{err: boom}, store, tayyab)

	_, err := sm.Ask(context.Background(), "hello")
	require.ErrorIs(t, err, boom)
	assert.Empty(t, store.turns)
}
