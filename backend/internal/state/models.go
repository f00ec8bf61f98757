package state

import (
	"fmt"
	"sort"
	"strings"
)

// Label is a node label in the knowledge graph.
type Label string

const (
	LabelCategory    Label = "Category"
	LabelSkill       Label = "Skill"
	LabelStrategy    Label = "Strategy"
	LabelTopic       Label = "Topic"
	LabelGoal        Label = "Goal"
	LabelAspiration  Label = "Aspiration"
	LabelRequirement Label = "Requirement"
	LabelChallenge   Label = "Challenge"
	LabelResource    Label = "Resource"
)

// RelType is a relationship type in the knowledge graph.
type RelType string

const (
	RelRelatesTo     RelType = "RELATES_TO"
	RelRequiredFor   RelType = "REQUIRED_FOR"
	RelHelpsWith     RelType = "HELPS_WITH"
	RelLeadsTo       RelType = "LEADS_TO"
	RelContains      RelType = "CONTAINS"
	RelEnhances      RelType = "ENHANCES"
	RelContributesTo RelType = "CONTRIBUTES_TO"
	RelPartOf        RelType = "PART_OF"
	RelRequires      RelType = "REQUIRES"
	RelUses          RelType = "USES"
)

// Source records where a node came from.
type Source string

const (
	SourceSurvey       Source = "survey"
	SourceDerived      Source = "derived"
	SourceConversation Source = "conversation"
	SourceSystem       Source = "system"
)

// Facet is one of the four life dimensions. Category scaffold nodes are named
// after their facet.
type Facet string

const (
	FacetStrengths     Facet = "Strengths"
	FacetLearningStyle Facet = "LearningStyle"
	FacetPassions      Facet = "Passions"
	FacetGoals         Facet = "Goals"
)

// Facets lists the facets in scaffold order.
var Facets = []Facet{FacetStrengths, FacetLearningStyle, FacetPassions, FacetGoals}

var knownLabels = map[Label]bool{
	LabelCategory: true, LabelSkill: true, LabelStrategy: true, LabelTopic: true,
	LabelGoal: true, LabelAspiration: true, LabelRequirement: true,
	LabelChallenge: true, LabelResource: true,
}

var knownRelTypes = map[RelType]bool{
	RelRelatesTo: true, RelRequiredFor: true, RelHelpsWith: true, RelLeadsTo: true,
	RelContains: true, RelEnhances: true, RelContributesTo: true, RelPartOf: true,
	RelRequires: true, RelUses: true,
}

// Valid reports whether the label may be written to the store.
func (l Label) Valid() bool { return knownLabels[l] }

// Valid reports whether the relationship type may be written to the store.
func (t RelType) Valid() bool { return knownRelTypes[t] }

// Node is a typed entity in a user's graph.
type Node struct {
	Label       Label   `json:"label"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Source      Source  `json:"source,omitempty"`
	Confidence  float64 `json:"confidence"`
	Relevance   string  `json:"relevance,omitempty"`
	Category    Facet   `json:"category,omitempty"`
}

// Relationship is a directed edge between two nodes, addressed by name.
type Relationship struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Type        RelType `json:"type"`
	Strength    float64 `json:"strength"`
	Description string  `json:"description,omitempty"`
}

// Key returns the (from, to, type) triple used to suppress duplicates.
func (r Relationship) Key() string {
	return r.From + "\x00" + r.To + "\x00" + string(r.Type)
}

// Graph is the intermediate representation produced by every extractor and
// consumed by the merge engine.
type Graph struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

// NewGraph returns an empty graph with non-nil slices so it encodes as
// {"nodes":[],"relationships":[]}.
func NewGraph() *Graph {
	return &Graph{Nodes: []Node{}, Relationships: []Relationship{}}
}

// IsEmpty reports whether the graph has neither nodes nor relationships.
func (g *Graph) IsEmpty() bool {
	return g == nil || (len(g.Nodes) == 0 && len(g.Relationships) == 0)
}

// Count returns the number of nodes and relationships.
func (g *Graph) Count() (nodes, relationships int) {
	if g == nil {
		return 0, 0
	}
	return len(g.Nodes), len(g.Relationships)
}

// NodeNames returns the set of node names in the graph.
func (g *Graph) NodeNames() map[string]bool {
	names := make(map[string]bool)
	if g == nil {
		return names
	}
	for _, n := range g.Nodes {
		names[n.Name] = true
	}
	return names
}

// NodesByLabel returns the nodes carrying the given label, in graph order.
func (g *Graph) NodesByLabel(label Label) []Node {
	var out []Node
	if g == nil {
		return out
	}
	for _, n := range g.Nodes {
		if n.Label == label {
			out = append(out, n)
		}
	}
	return out
}

// Validate returns the first invariant violation found in the graph.
func (g *Graph) Validate() error {
	if g == nil {
		return nil
	}
	names := make(map[string]bool, len(g.Nodes))
	seenNodes := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if strings.TrimSpace(n.Name) == "" {
			return ErrInvalidGraph{Reason: fmt.Sprintf("node %d has an empty name", i)}
		}
		if !n.Label.Valid() {
			return ErrInvalidGraph{Reason: fmt.Sprintf("node %q has unknown label %q", n.Name, n.Label)}
		}
		if n.Confidence < 0 || n.Confidence > 1 {
			return ErrInvalidGraph{Reason: fmt.Sprintf("node %q confidence %v out of range", n.Name, n.Confidence)}
		}
		key := string(n.Label) + "\x00" + n.Name
		if seenNodes[key] {
			return ErrInvalidGraph{Reason: fmt.Sprintf("duplicate %s node %q", n.Label, n.Name)}
		}
		seenNodes[key] = true
		names[n.Name] = true
	}

	seenRels := make(map[string]bool, len(g.Relationships))
	for _, r := range g.Relationships {
		if r.From == r.To {
			return ErrInvalidGraph{Reason: fmt.Sprintf("self-loop on %q", r.From)}
		}
		if !r.Type.Valid() {
			return ErrInvalidGraph{Reason: fmt.Sprintf("unknown relationship type %q", r.Type)}
		}
		if !names[r.From] || !names[r.To] {
			return ErrInvalidGraph{Reason: fmt.Sprintf("dangling edge %q -[%s]-> %q", r.From, r.Type, r.To)}
		}
		if seenRels[r.Key()] {
			return ErrInvalidGraph{Reason: fmt.Sprintf("duplicate edge %q -[%s]-> %q", r.From, r.Type, r.To)}
		}
		seenRels[r.Key()] = true
	}
	return nil
}

// Sorted returns a copy of the graph with nodes and relationships in a stable
// order, for comparing graphs up to ordering.
func (g *Graph) Sorted() *Graph {
	out := NewGraph()
	if g == nil {
		return out
	}
	out.Nodes = append(out.Nodes, g.Nodes...)
	out.Relationships = append(out.Relationships, g.Relationships...)
	sort.SliceStable(out.Nodes, func(i, j int) bool {
		if out.Nodes[i].Label != out.Nodes[j].Label {
			return out.Nodes[i].Label < out.Nodes[j].Label
		}
		return out.Nodes[i].Name < out.Nodes[j].Name
	})
	sort.SliceStable(out.Relationships, func(i, j int) bool {
		return out.Relationships[i].Key() < out.Relationships[j].Key()
	})
	return out
}

// Errors

type ErrInvalidGraph struct {
	Reason string
}

func (e ErrInvalidGraph) Error() string {
	return fmt.Sprintf("invalid graph: %s", e.Reason)
}
