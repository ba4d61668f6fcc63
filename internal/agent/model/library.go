package model

import "context"

// UserIdentity is the session user. It never changes after startup.
type UserIdentity struct {
	Name   string `json:"name"`
	UserID int    `json:"user_id"`
}

// BookRecord is one entry of the library catalog.
type BookRecord struct {
	BookName string `json:"book_name"`
	BookID   int    `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// GuardrailVerdict is the classifier's answer for a single query.
// QueryIsNotRelated is the tripwire.
type GuardrailVerdict struct {
	QueryIsNotRelated bool   `json:"query_is_not_related" jsonschema:"true when the query has nothing to do with the library"`
	Reasoning         string `json:"reasoning" jsonschema:"one short sentence explaining the decision"`
}

type userCtxKey struct{}

// WithUser attaches the session identity to ctx for identity-reading tools.
func WithUser(ctx context.Context, user UserIdentity) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// UserFromContext returns the identity stored by WithUser.
func UserFromContext(ctx context.Context) (UserIdentity, bool) {
	user, ok := ctx.Value(userCtxKey{}).(UserIdentity)
	return user, ok
}
