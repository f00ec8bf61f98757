package extractor

import (
	"pathfinder/backend/internal/state"
)

// Draft accumulates nodes and edges while a survey is compiled. Nodes are
// deduplicated by (label, name) and edges by (from, to, type); insertion
// order is kept so the output is deterministic.
type Draft struct {
	Nodes         []state.Node
	Relationships []state.Relationship

	nodeKeys map[string]bool
	names    map[string]bool
	relKeys  map[string]bool
}

// NewDraft returns an empty draft.
func NewDraft() *Draft {
	return &Draft{
		Nodes:         []state.Node{},
		Relationships: []state.Relationship{},
		nodeKeys:      make(map[string]bool),
		names:         make(map[string]bool),
		relKeys:       make(map[string]bool),
	}
}

// AddNode appends n unless a node with the same label and name exists.
// It reports whether the node was added.
func (d *Draft) AddNode(n state.Node) bool {
	key := string(n.Label) + "\x00" + n.Name
	if d.nodeKeys[key] {
		return false
	}
	d.nodeKeys[key] = true
	d.names[n.Name] = true
	d.Nodes = append(d.Nodes, n)
	return true
}

// HasName reports whether any node, of any label, carries the name.
func (d *Draft) HasName(name string) bool {
	return d.names[name]
}

// AddRelationship appends r unless it is a self-loop or duplicates an
// existing (from, to, type) triple.
func (d *Draft) AddRelationship(r state.Relationship) bool {
	if r.From == r.To {
		return false
	}
	if d.relKeys[r.Key()] {
		return false
	}
	d.relKeys[r.Key()] = true
	d.Relationships = append(d.Relationships, r)
	return true
}

// Names returns the names of nodes with the given label, in insertion order.
func (d *Draft) Names(label state.Label) []string {
	var out []string
	for _, n := range d.Nodes {
		if n.Label == label {
			out = append(out, n.Name)
		}
	}
	return out
}

// Graph converts the draft into an IR. Edges whose endpoints are missing are
// dropped.
func (d *Draft) Graph() *state.Graph {
	g := state.NewGraph()
	g.Nodes = append(g.Nodes, d.Nodes...)
	for _, r := range d.Relationships {
		if d.names[r.From] && d.names[r.To] {
			g.Relationships = append(g.Relationships, r)
		}
	}
	return g
}
