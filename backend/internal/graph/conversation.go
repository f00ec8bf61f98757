package graph

import (
	"context"
	"time"

	"pathfinder/backend/internal/state"
	"pathfinder/backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// DefaultHistoryLimit is used when a history read asks for fewer than one
// exchange.
const DefaultHistoryLimit = 20

// ConversationLog keeps each user's counselor exchanges. Messages live
// outside the KnowledgeGraph, so ReadUserGraph never returns them.
type ConversationLog interface {
	// LogExchange stores the student's message and the reply to it.
	LogExchange(ctx context.Context, userID string, ex state.Exchange) error
	// ConversationHistory returns the user's latest exchanges, oldest first.
	ConversationHistory(ctx context.Context, userID string, limit int) ([]state.Exchange, error)
}

// LogExchange stores an exchange as (:User)-[:SENT]->(:Message)-[:REPLIED_WITH]->(:Message).
func (r *Repository) LogExchange(ctx context.Context, userID string, ex state.Exchange) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now().UTC()
	}

	query := `
		MERGE (u:User {id: $userId})
		ON CREATE SET u.created = $created
		CREATE (m:Message {
			id: $msgId,
			userId: $userId,
			content: $message,
			sender: 'user',
			category: $category,
			timestamp: $timestamp
		})
		CREATE (r:Message {
			id: $replyId,
			userId: $userId,
			content: $reply,
			sender: 'counselor',
			category: $category,
			timestamp: $timestamp
		})
		CREATE (u)-[:SENT]->(m)
		CREATE (m)-[:REPLIED_WITH]->(r)
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"userId":    userID,
		"created":   time.Now().UTC().Format(time.RFC3339),
		"msgId":     ex.ID,
		"replyId":   uuid.NewString(),
		"message":   ex.UserMessage,
		"reply":     ex.Reply,
		"category":  ex.Category,
		"timestamp": ex.Timestamp,
	})
	if err != nil {
		return errors.NewGraphQueryFailed("log exchange", err)
	}
	return nil
}

// ConversationHistory retrieves the user's most recent exchanges.
func (r *Repository) ConversationHistory(ctx context.Context, userID string, limit int) ([]state.Exchange, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	if limit < 1 {
		limit = DefaultHistoryLimit
	}

	query := `
		MATCH (u:User {id: $userId})-[:SENT]->(m:Message)-[:REPLIED_WITH]->(r:Message)
		WHERE m.sender = 'user' AND r.sender = 'counselor'
		RETURN m.id as id, m.content as message, r.content as reply,
		       m.category as category, m.timestamp as timestamp
		ORDER BY m.timestamp DESC
		LIMIT $limit
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userId": userID,
		"limit":  limit,
	})
	if err != nil {
		return nil, errors.NewGraphQueryFailed("read conversation history", err)
	}

	history := []state.Exchange{}
	for result.Next(ctx) {
		record := result.Record()
		history = append(history, state.Exchange{
			ID:          getStringFromRecord(record, "id"),
			UserMessage: getStringFromRecord(record, "message"),
			Reply:       getStringFromRecord(record, "reply"),
			Category:    getStringFromRecord(record, "category"),
			Timestamp:   getTimeFromRecord(record, "timestamp"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, errors.NewGraphQueryFailed("read conversation history", err)
	}

	// Reverse to get chronological order
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	r.logger.Debug("Read conversation history",
		zap.String("user_id", userID),
		zap.Int("exchanges", len(history)),
	)
	return history, nil
}

// LogExchange implements ConversationLog.
func (s *MemoryStore) LogExchange(ctx context.Context, userID string, ex state.Exchange) error {
	if err := ctx.Err(); err != nil {
		return errors.NewContextCancelled("log exchange", err)
	}
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = append(s.history[userID], ex)
	return nil
}

// ConversationHistory implements ConversationLog.
func (s *MemoryStore) ConversationHistory(ctx context.Context, userID string, limit int) ([]state.Exchange, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewContextCancelled("read conversation history", err)
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.history[userID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]state.Exchange{}, all...), nil
}
