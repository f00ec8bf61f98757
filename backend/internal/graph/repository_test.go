package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"pathfinder/backend/internal/state"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The repository tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.

func TestRepository_MergeIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Skipf("Neo4j not reachable: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver, "")
	repo.EnsureSchema(ctx)

	userID := "test-user-" + time.Now().Format("20060102150405")
	defer cleanupUser(ctx, driver, userID)

	m := NewMerger(repo, nil)
	report, err := m.Merge(ctx, userID, sampleGraph())
	require.NoError(t, err)
	require.True(t, report.OK(), report.Err())

	first, err := repo.ReadUserGraph(ctx, userID)
	require.NoError(t, err)

	_, err = m.Merge(ctx, userID, sampleGraph())
	require.NoError(t, err)

	second, err := repo.ReadUserGraph(ctx, userID)
	require.NoError(t, err)

	assert.Len(t, second.Nodes, len(first.Nodes))
	assert.Len(t, second.Relationships, len(first.Relationships))
	assert.Len(t, first.Nodes, 3)
	assert.Len(t, first.Relationships, 2)
}

func TestRepository_UsersAreIsolated(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Skipf("Neo4j not reachable: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver, "")
	suffix := time.Now().Format("20060102150405")
	alice, bob := "alice-"+suffix, "bob-"+suffix
	defer cleanupUser(ctx, driver, alice)
	defer cleanupUser(ctx, driver, bob)

	m := NewMerger(repo, nil)
	_, err = m.Merge(ctx, alice, sampleGraph())
	require.NoError(t, err)

	g := state.NewGraph()
	g.Nodes = append(g.Nodes, state.Node{Label: state.LabelSkill, Name: "Reading", Confidence: 1})
	g.Relationships = append(g.Relationships, state.Relationship{From: "Reading", To: "College", Type: state.RelHelpsWith})

	report, err := m.Merge(ctx, bob, g)
	require.NoError(t, err)
	assert.Equal(t, 1, report.EdgeFailures)

	bobGraph, err := repo.ReadUserGraph(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, bobGraph.Nodes, 1)
	assert.Empty(t, bobGraph.Relationships)
}

func cleanupUser(ctx context.Context, driver neo4j.DriverWithContext, userID string) {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	_, _ = session.Run(ctx, `
		MATCH (n {userId: $id}) DETACH DELETE n
	`, map[string]interface{}{"id": userID})
	_, _ = session.Run(ctx, "MATCH (u:User {id: $id}) DETACH DELETE u", map[string]interface{}{"id": userID})
}

func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := getenv("NEO4J_URI", "bolt://localhost:7687")
	user := getenv("NEO4J_USER", "neo4j")
	password := getenv("NEO4J_PASSWORD", "password")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return Connect(ctx, uri, user, password)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
