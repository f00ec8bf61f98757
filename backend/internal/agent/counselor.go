package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pathfinder/backend/internal/constants"
	"pathfinder/backend/internal/graph"
	"pathfinder/backend/internal/state"
	"pathfinder/backend/pkg/errors"
	"pathfinder/backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Generator produces a counselor reply. adapter.LLMAdapter implements it.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMsg string, temperature float32) (string, error)
}

// ConversationExtractor turns one exchange into graph additions.
type ConversationExtractor interface {
	ExtractFromConversation(ctx context.Context, userTurn, assistantTurn string, existing *state.Graph, profile map[string]any) *state.Graph
}

// GraphSession reads and extends one user's stored graph.
type GraphSession interface {
	UserGraph(ctx context.Context, userID string) (*state.Graph, error)
	MergeGraph(ctx context.Context, userID string, g *state.Graph) (*graph.MergeReport, error)
}

// Counselor manages one conversational turn: personalise the prompt from
// the stored graph, reply, then grow the graph from the exchange.
type Counselor struct {
	graphs    GraphSession
	history   graph.ConversationLog
	llm       Generator
	extractor ConversationExtractor
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// NewCounselor creates a counselor. history may be nil, in which case turns
// are neither recorded nor replayed. extractor may be nil, in which case
// conversations are not mined for graph additions.
func NewCounselor(graphs GraphSession, history graph.ConversationLog, llm Generator, extractor ConversationExtractor) *Counselor {
	return &Counselor{
		graphs:    graphs,
		history:   history,
		llm:       llm,
		extractor: extractor,
		logger:    logger.Named("counselor"),
	}
}

// TurnResult represents the result of a single counselor turn
type TurnResult struct {
	Content  string `json:"response"`
	Category string `json:"category"`
}

// RunTurn answers message for userID. The graph extraction that follows
// runs in the background; Wait blocks until it has finished.
func (c *Counselor) RunTurn(ctx context.Context, userID, message, category string) (*TurnResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.NewInvalidInput("user id", "user id is empty")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.NewInvalidInput("message", "message is empty")
	}
	category = normalizeCategory(category)

	c.logger.Debug("Starting counselor turn",
		zap.String("user_id", userID),
		zap.String("category", category),
	)

	// 1. Load what we know
	existing, err := c.graphs.UserGraph(ctx, userID)
	if err != nil {
		c.logger.Warn("Failed to read user graph, replying without profile",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		existing = state.NewGraph()
	}
	profile := state.ProfileFromGraph(existing)
	recent := c.recentExchanges(ctx, userID)

	// 2. Build System Prompt
	systemPrompt := buildSystemPrompt(profile, recent, category, message)

	// 3. Reply
	reply, err := c.llm.Generate(ctx, systemPrompt, message, constants.ReplyTemperature)
	if err != nil {
		return nil, fmt.Errorf("failed to generate counselor reply: %w", err)
	}

	// 4. Record the exchange
	c.record(ctx, userID, state.Exchange{
		ID:          uuid.NewString(),
		UserMessage: message,
		Reply:       reply,
		Category:    category,
		Timestamp:   time.Now().UTC(),
	})

	// 5. Grow the graph from the exchange (async, non-blocking)
	if c.extractor != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.learn(userID, message, reply, existing, profile)
		}()
	}

	return &TurnResult{Content: reply, Category: category}, nil
}

func (c *Counselor) recentExchanges(ctx context.Context, userID string) []state.Exchange {
	if c.history == nil {
		return nil
	}
	recent, err := c.history.ConversationHistory(ctx, userID, constants.HistoryTurns)
	if err != nil {
		c.logger.Debug("Failed to fetch conversation history", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return recent
}

// record stores the exchange. A failure costs the history entry, not the reply.
func (c *Counselor) record(ctx context.Context, userID string, ex state.Exchange) {
	if c.history == nil {
		return
	}
	if err := c.history.LogExchange(ctx, userID, ex); err != nil {
		c.logger.Warn("Failed to record exchange",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// learn extracts and merges; every failure here is logged, never surfaced.
func (c *Counselor) learn(userID, message, reply string, existing *state.Graph, profile state.Profile) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ExtractionTimeout)
	defer cancel()

	g := c.extractor.ExtractFromConversation(ctx, message, reply, existing, profileMap(profile))
	if g.IsEmpty() {
		c.logger.Debug("Nothing extracted from conversation", zap.String("user_id", userID))
		return
	}

	report, err := c.graphs.MergeGraph(ctx, userID, g)
	if err != nil {
		c.logger.Warn("Failed to merge conversation graph",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	if !report.OK() {
		c.logger.Warn("Conversation graph merged with failures",
			zap.String("user_id", userID),
			zap.Int("node_failures", report.NodeFailures),
			zap.Int("edge_failures", report.EdgeFailures),
			zap.Error(report.Err()),
		)
	}
}

// Wait blocks until background extractions started by RunTurn are done.
func (c *Counselor) Wait() {
	c.wg.Wait()
}

func normalizeCategory(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case constants.CategoryAcademic:
		return constants.CategoryAcademic
	case constants.CategoryEmotional:
		return constants.CategoryEmotional
	case constants.CategorySocial:
		return constants.CategorySocial
	case constants.CategoryFuture:
		return constants.CategoryFuture
	default:
		return constants.CategoryGeneral
	}
}

// profileMap is the background block handed to the extraction prompt.
func profileMap(p state.Profile) map[string]any {
	out := make(map[string]any)
	add := func(key string, v []string) {
		if len(v) > 0 {
			out[key] = v
		}
	}
	add("strengths", p.Strengths)
	add("strategies", p.Strategies)
	add("passions", p.Passions)
	add("goals", p.Goals)
	add("requirements", p.Requirements)
	add("challenges", p.Challenges)
	add("resources", p.Resources)
	if p.LearningStyle != "" {
		out["learningStyle"] = p.LearningStyle
	}
	return out
}
