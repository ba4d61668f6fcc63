package conversations

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/library-assistant-poc/server/internal/agent/model"
	logx "github.com/library-assistant-poc/server/pkg/logger"
)

// TurnRunner executes a single turn.
type TurnRunner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error)
}

// SessionManager binds the session user to every turn and records finished
// turns when a transcript repository is configured.
type SessionManager struct {
	runner     TurnRunner
	transcript model.TranscriptRepository
	user       model.UserIdentity
	sessionID  string
}

func NewSessionManager(runner TurnRunner, transcript model.TranscriptRepository, user model.UserIdentity) *SessionManager {
	return &SessionManager{
		runner:     runner,
		transcript: transcript,
		user:       user,
		sessionID:  uuid.NewString(),
	}
}

func (sm *SessionManager) SessionID() string {
	return sm.sessionID
}

func (sm *SessionManager) User() model.UserIdentity {
	return sm.user
}

// Ask runs one turn for query. Transcript failures are logged and never fail the turn.
func (sm *SessionManager) Ask(ctx context.Context, query string) (*model.TurnResult, error) {
	result, err := sm.runner.Invoke(ctx, model.QueryInput{
		TurnID: uuid.NewString(),
		Query:  strings.TrimSpace(query),
		User:   sm.user,
	})
	if err != nil {
		return nil, err
	}

	sm.record(ctx, result)
	return result, nil
}

func (sm *SessionManager) record(ctx context.Context, result *model.TurnResult) {
	if sm.transcript == nil || result == nil {
		return
	}
	if err := sm.transcript.AppendTurn(ctx, sm.sessionID, result); err != nil {
		logx.Warn().
			Err(err).
			Str("session_id", sm.sessionID).
			Str("turn_id", result.TurnID).
			Msg("Failed to record turn")
	}
}
