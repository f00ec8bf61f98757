package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pathfinder/backend/internal/app"
	"pathfinder/backend/internal/extractor"
	"pathfinder/backend/internal/graph"
	"pathfinder/backend/internal/lock"
	"pathfinder/backend/internal/metrics"
	"pathfinder/backend/internal/pipeline"
	"pathfinder/backend/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryBuild(store *graph.MemoryStore) buildFunc {
	return func(ctx context.Context, dryRun bool) (*app.Container, error) {
		collector := metrics.NewCollector("test")
		compiler := extractor.NewCompiler(nil, extractor.Options{Scaffold: true})
		return &app.Container{
			Config:   &config.Config{GraphStore: config.StoreMemory},
			Metrics:  collector,
			Store:    store,
			Pipeline: pipeline.NewService(compiler, "rules", store, lock.NewMemoryLocker(), collector),
		}, nil
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, build buildFunc, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(build, &out)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIngest_MergesEachFileIntoItsUser(t *testing.T) {
	dir := t.TempDir()
	alice := writeFile(t, dir, "alice.json", `{"strengths":["Art"],"goals":["Become a Designer"]}`)
	bob := writeFile(t, dir, "survey-2.json", `{"userId":"bob","interests":"Chess"}`)

	store := graph.NewMemoryStore()
	out, err := execute(t, memoryBuild(store), "--concurrency", "2", "-o", "json", alice, bob)
	require.NoError(t, err, out)

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "alice", results[0].UserID)
	assert.Equal(t, "bob", results[1].UserID)

	nodes, _ := store.Counts("alice")
	assert.Equal(t, results[0].Nodes, nodes)
	nodes, _ = store.Counts("bob")
	assert.Equal(t, results[1].Nodes, nodes)
}

func TestIngest_UserOverrideAndDryRun(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "x.json", `{"userId":"ignored","strengths":"Reading, Writing"}`)

	store := graph.NewMemoryStore()
	out, err := execute(t, memoryBuild(store), "--user", "carol", "--dry-run", file)
	require.NoError(t, err, out)
	assert.Contains(t, out, "carol")

	nodes, edges := store.Counts("carol")
	assert.Zero(t, nodes)
	assert.Zero(t, edges)
}

func TestIngest_BadFileIsReportedNotFatal(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "dave.json", `{"strengths":["Math"]}`)
	bad := writeFile(t, dir, "erin.json", `not json`)

	store := graph.NewMemoryStore()
	out, err := execute(t, memoryBuild(store), "-o", "json", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files")

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)

	nodes, _ := store.Counts("dave")
	assert.NotZero(t, nodes)
}

func TestIngest_FlagValidation(t *testing.T) {
	store := graph.NewMemoryStore()

	_, err := execute(t, memoryBuild(store))
	assert.Error(t, err)

	_, err = execute(t, memoryBuild(store), "--concurrency", "0", "a.json")
	assert.Error(t, err)

	_, err = execute(t, memoryBuild(store), "-o", "yaml", "a.json")
	assert.Error(t, err)
}

func TestUserFor(t *testing.T) {
	assert.Equal(t, "x", userFor("/tmp/x.json", map[string]any{}, ""))
	assert.Equal(t, "y", userFor("/tmp/x.json", map[string]any{"user_id": " y "}, ""))
	assert.Equal(t, "z", userFor("/tmp/x.json", map[string]any{"userId": "y"}, "z"))
}
