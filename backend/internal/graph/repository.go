package graph

import (
	"context"
	"fmt"
	"time"

	"pathfinder/backend/internal/state"
	"pathfinder/backend/pkg/errors"
	"pathfinder/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Repository is the Neo4j Store. Each user owns one (:KnowledgeGraph
// {userId}) node that CONTAINS every node in the user's scope; relationship
// endpoints are matched through it so names never cross users.
type Repository struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewRepository creates a new graph repository. database may be empty for
// the server default.
func NewRepository(driver neo4j.DriverWithContext, database string) *Repository {
	return &Repository{
		driver:   driver,
		database: database,
		logger:   logger.Named("graph"),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
}

// EnsureSchema creates the uniqueness constraint on KnowledgeGraph and a
// (name, userId) index per label. Failures are logged; older servers
// without IF NOT EXISTS still work, just slower.
func (r *Repository) EnsureSchema(ctx context.Context) {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT knowledge_graph_user IF NOT EXISTS FOR (kg:KnowledgeGraph) REQUIRE kg.userId IS UNIQUE`,
		`CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
		`CREATE INDEX message_user IF NOT EXISTS FOR (m:Message) ON (m.userId, m.timestamp)`,
	}
	for _, l := range []state.Label{
		state.LabelCategory, state.LabelSkill, state.LabelStrategy, state.LabelTopic, state.LabelGoal,
		state.LabelAspiration, state.LabelRequirement, state.LabelChallenge, state.LabelResource,
	} {
		statements = append(statements, fmt.Sprintf(
			"CREATE INDEX %s_name_user IF NOT EXISTS FOR (n:%s) ON (n.name, n.userId)", l, l))
	}

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			r.logger.Warn("Failed to apply schema statement",
				zap.String("statement", stmt),
				zap.Error(err),
			)
		}
	}
}

// EnsureUserScope creates the user and KnowledgeGraph records if absent.
func (r *Repository) EnsureUserScope(ctx context.Context, userID string) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		MERGE (u:User {id: $userId})
		ON CREATE SET u.created = $now
		MERGE (kg:KnowledgeGraph {userId: $userId})
		ON CREATE SET kg.id = $kgId, kg.created = $now
		MERGE (u)-[:HAS_KNOWLEDGE_GRAPH]->(kg)
		RETURN kg.id as id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userId": userID,
		"kgId":   uuid.New().String(),
		"now":    now,
	})
	if err != nil {
		return errors.NewGraphQueryFailed("ensure user scope", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return errors.NewGraphQueryFailed("ensure user scope", err)
	}
	return nil
}

// UpsertNode merges a node into the user's scope.
func (r *Repository) UpsertNode(ctx context.Context, label state.Label, name, userID string, createProps, updateProps map[string]any) error {
	// Labels are interpolated into Cypher
	if !label.Valid() {
		return errors.NewInvalidGraphItem("label", string(label))
	}

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (kg:KnowledgeGraph {userId: $userId})
		MERGE (n:%s {name: $name, userId: $userId})
		ON CREATE SET n += $createProps
		ON MATCH SET n += $updateProps
		MERGE (kg)-[:CONTAINS]->(n)
		RETURN n.name as name
	`, label)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userId":      userID,
		"name":        name,
		"createProps": createProps,
		"updateProps": updateProps,
	})
	if err != nil {
		return errors.NewGraphQueryFailed("upsert node", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return errors.NewGraphQueryFailed("upsert node", err)
		}
		return errors.NewGraphQueryFailed("upsert node", fmt.Errorf("no knowledge graph for user %s", userID))
	}
	return nil
}

// UpsertEdge merges a relationship between two nodes of the user's scope.
func (r *Repository) UpsertEdge(ctx context.Context, relType state.RelType, from, to, userID string, createProps, updateProps map[string]any) error {
	// Relationship types are interpolated into Cypher
	if !relType.Valid() {
		return errors.NewInvalidGraphItem("relationship type", string(relType))
	}

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (kg:KnowledgeGraph {userId: $userId})
		MATCH (kg)-[:CONTAINS]->(source {name: $fromName, userId: $userId})
		MATCH (kg)-[:CONTAINS]->(target {name: $toName, userId: $userId})
		MERGE (source)-[r:%s]->(target)
		ON CREATE SET r = $createProps
		ON MATCH SET r += $updateProps
		RETURN type(r) as rel_type
	`, relType)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userId":      userID,
		"fromName":    from,
		"toName":      to,
		"createProps": createProps,
		"updateProps": updateProps,
	})
	if err != nil {
		return errors.NewGraphQueryFailed("upsert edge", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return errors.NewGraphQueryFailed("upsert edge", err)
		}
		return errors.NewEndpointNotFound(userID, from, to)
	}
	return nil
}

// ReadUserGraph returns the nodes and relationships in the user's scope,
// ordered by name. A user without a scope yields an empty graph.
func (r *Repository) ReadUserGraph(ctx context.Context, userID string) (*state.Graph, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	g := state.NewGraph()

	nodeQuery := `
		MATCH (kg:KnowledgeGraph {userId: $userId})-[:CONTAINS]->(n)
		RETURN labels(n) as labels, properties(n) as props
		ORDER BY n.name
	`
	result, err := session.Run(ctx, nodeQuery, map[string]interface{}{"userId": userID})
	if err != nil {
		return nil, errors.NewGraphQueryFailed("read nodes", err)
	}
	for result.Next(ctx) {
		record := result.Record()
		label, ok := graphLabel(getStringSliceFromRecord(record, "labels"))
		if !ok {
			continue
		}
		g.Nodes = append(g.Nodes, nodeFromProps(label, getMapFromRecord(record, "props")))
	}
	if err := result.Err(); err != nil {
		return nil, errors.NewGraphQueryFailed("read nodes", err)
	}

	relQuery := `
		MATCH (kg:KnowledgeGraph {userId: $userId})-[:CONTAINS]->(a)-[r]->(b)<-[:CONTAINS]-(kg)
		RETURN a.name as from_name, b.name as to_name, type(r) as rel_type, properties(r) as props
		ORDER BY from_name, to_name, rel_type
	`
	result, err = session.Run(ctx, relQuery, map[string]interface{}{"userId": userID})
	if err != nil {
		return nil, errors.NewGraphQueryFailed("read relationships", err)
	}
	for result.Next(ctx) {
		record := result.Record()
		relType := state.RelType(getStringFromRecord(record, "rel_type"))
		if !relType.Valid() {
			continue
		}
		g.Relationships = append(g.Relationships, relationshipFromProps(
			relType,
			getStringFromRecord(record, "from_name"),
			getStringFromRecord(record, "to_name"),
			getMapFromRecord(record, "props"),
		))
	}
	if err := result.Err(); err != nil {
		return nil, errors.NewGraphQueryFailed("read relationships", err)
	}

	r.logger.Debug("Read user graph",
		zap.String("user_id", userID),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("relationships", len(g.Relationships)),
	)
	return g, nil
}

// Connect opens and verifies a Neo4j driver.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, errors.NewGraphConnectionFailed(uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.NewGraphConnectionFailed(uri, err)
	}
	return driver, nil
}
