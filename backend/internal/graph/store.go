package graph

import (
	"context"

	"pathfinder/backend/internal/state"
)

// Store persists per-user knowledge graphs. Every operation is atomic at the
// single node or relationship level and scoped to one user.
type Store interface {
	// EnsureUserScope creates the user's KnowledgeGraph record if absent.
	EnsureUserScope(ctx context.Context, userID string) error
	// UpsertNode merges the node keyed by (label, name, userID), applying
	// createProps on first sight and updateProps afterwards.
	UpsertNode(ctx context.Context, label state.Label, name, userID string, createProps, updateProps map[string]any) error
	// UpsertEdge merges the relationship keyed by (type, from, to, userID).
	// Both endpoints must already belong to the user's scope.
	UpsertEdge(ctx context.Context, relType state.RelType, from, to, userID string, createProps, updateProps map[string]any) error
	// ReadUserGraph returns everything in the user's scope.
	ReadUserGraph(ctx context.Context, userID string) (*state.Graph, error)
}
