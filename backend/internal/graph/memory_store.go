package graph

import (
	"context"
	"sort"
	"sync"

	"pathfinder/backend/internal/state"
	"pathfinder/backend/pkg/errors"
)

type memNode struct {
	label state.Label
	props map[string]any
}

type memEdge struct {
	relType  state.RelType
	from, to string
	props    map[string]any
}

type memScope struct {
	nodes map[string]*memNode // label\x00name
	names map[string]bool
	edges map[string]*memEdge // type\x00from\x00to
}

// MemoryStore is an in-process Store with the same scoping rules as the
// Neo4j repository. It backs GRAPH_STORE=memory and the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	scopes  map[string]*memScope
	history map[string][]state.Exchange
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scopes:  make(map[string]*memScope),
		history: make(map[string][]state.Exchange),
	}
}

// EnsureUserScope implements Store.
func (s *MemoryStore) EnsureUserScope(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scopes[userID]; !ok {
		s.scopes[userID] = &memScope{
			nodes: make(map[string]*memNode),
			names: make(map[string]bool),
			edges: make(map[string]*memEdge),
		}
	}
	return nil
}

// UpsertNode implements Store.
func (s *MemoryStore) UpsertNode(ctx context.Context, label state.Label, name, userID string, createProps, updateProps map[string]any) error {
	if err := ctx.Err(); err != nil {
		return errors.NewContextCancelled("upsert node", err)
	}
	if !label.Valid() {
		return errors.NewInvalidGraphItem("label", string(label))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scope, ok := s.scopes[userID]
	if !ok {
		return errors.NewGraphQueryFailed("upsert node", errNoScope(userID))
	}

	key := string(label) + "\x00" + name
	if n, ok := scope.nodes[key]; ok {
		for k, v := range updateProps {
			n.props[k] = v
		}
		return nil
	}

	props := make(map[string]any, len(createProps)+2)
	for k, v := range createProps {
		props[k] = v
	}
	props["name"] = name
	props["userId"] = userID
	scope.nodes[key] = &memNode{label: label, props: props}
	scope.names[name] = true
	return nil
}

// UpsertEdge implements Store.
func (s *MemoryStore) UpsertEdge(ctx context.Context, relType state.RelType, from, to, userID string, createProps, updateProps map[string]any) error {
	if err := ctx.Err(); err != nil {
		return errors.NewContextCancelled("upsert edge", err)
	}
	if !relType.Valid() {
		return errors.NewInvalidGraphItem("relationship type", string(relType))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scope, ok := s.scopes[userID]
	if !ok || !scope.names[from] || !scope.names[to] {
		return errors.NewEndpointNotFound(userID, from, to)
	}

	key := string(relType) + "\x00" + from + "\x00" + to
	if e, ok := scope.edges[key]; ok {
		for k, v := range updateProps {
			e.props[k] = v
		}
		return nil
	}

	// ON CREATE SET r = $createProps replaces, so copy rather than merge
	props := make(map[string]any, len(createProps))
	for k, v := range createProps {
		props[k] = v
	}
	scope.edges[key] = &memEdge{relType: relType, from: from, to: to, props: props}
	return nil
}

// ReadUserGraph implements Store. Output is sorted by name.
func (s *MemoryStore) ReadUserGraph(ctx context.Context, userID string) (*state.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewContextCancelled("read user graph", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	g := state.NewGraph()
	scope, ok := s.scopes[userID]
	if !ok {
		return g, nil
	}

	for _, n := range scope.nodes {
		g.Nodes = append(g.Nodes, nodeFromProps(n.label, n.props))
	}
	for _, e := range scope.edges {
		g.Relationships = append(g.Relationships, relationshipFromProps(e.relType, e.from, e.to, e.props))
	}

	sort.Slice(g.Nodes, func(i, j int) bool {
		if g.Nodes[i].Name != g.Nodes[j].Name {
			return g.Nodes[i].Name < g.Nodes[j].Name
		}
		return g.Nodes[i].Label < g.Nodes[j].Label
	})
	sort.Slice(g.Relationships, func(i, j int) bool {
		return g.Relationships[i].Key() < g.Relationships[j].Key()
	})
	return g, nil
}

// NodeProps returns a copy of the stored properties of one node, or nil.
func (s *MemoryStore) NodeProps(userID string, label state.Label, name string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope, ok := s.scopes[userID]
	if !ok {
		return nil
	}
	n, ok := scope.nodes[string(label)+"\x00"+name]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(n.props))
	for k, v := range n.props {
		out[k] = v
	}
	return out
}

// Counts returns the number of nodes and relationships in a user's scope.
func (s *MemoryStore) Counts(userID string) (nodes, relationships int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope, ok := s.scopes[userID]
	if !ok {
		return 0, 0
	}
	return len(scope.nodes), len(scope.edges)
}

type errNoScope string

func (e errNoScope) Error() string {
	return "no knowledge graph for user " + string(e)
}
