package model

import "context"

// TranscriptRepository records finished turns for later inspection.
// Nothing in it is fed back to the model.
type TranscriptRepository interface {
	// AppendTurn adds a finished turn to the session transcript
	AppendTurn(ctx context.Context, sessionID string, turn *TurnResult) error

	// LoadTurns returns the session transcript in order
	LoadTurns(ctx context.Context, sessionID string) ([]*TurnResult, error)

	// ClearTurns removes the session transcript
	ClearTurns(ctx context.Context, sessionID string) error

	// CountTurns returns the number of recorded turns
	CountTurns(ctx context.Context, sessionID string) (int, error)
}
