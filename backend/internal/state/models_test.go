package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_Validate(t *testing.T) {
	base := func() *Graph {
		return &Graph{
			Nodes: []Node{
				{Label: LabelSkill, Name: "Mathematics", Confidence: 1},
				{Label: LabelGoal, Name: "Engineering", Confidence: 1},
			},
			Relationships: []Relationship{
				{From: "Mathematics", To: "Engineering", Type: RelHelpsWith, Strength: 0.8},
			},
		}
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Graph)
	}{
		{"empty name", func(g *Graph) { g.Nodes[0].Name = "  " }},
		{"unknown label", func(g *Graph) { g.Nodes[0].Label = "Person" }},
		{"confidence out of range", func(g *Graph) { g.Nodes[0].Confidence = 1.5 }},
		{"duplicate node", func(g *Graph) { g.Nodes = append(g.Nodes, g.Nodes[0]) }},
		{"self loop", func(g *Graph) { g.Relationships[0].To = "Mathematics" }},
		{"dangling", func(g *Graph) { g.Relationships[0].To = "Medicine" }},
		{"unknown type", func(g *Graph) { g.Relationships[0].Type = "LIKES" }},
		{"duplicate edge", func(g *Graph) { g.Relationships = append(g.Relationships, g.Relationships[0]) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := base()
			tt.mutate(g)
			err := g.Validate()
			require.Error(t, err)
			assert.IsType(t, ErrInvalidGraph{}, err)
		})
	}
}

func TestNewGraph_EncodesEmptyArrays(t *testing.T) {
	data, err := json.Marshal(NewGraph())
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"relationships":[]}`, string(data))
}

func TestGraph_Sorted(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{Label: LabelTopic, Name: "b"}, {Label: LabelSkill, Name: "z"}, {Label: LabelSkill, Name: "a"}},
	}
	sorted := g.Sorted()

	assert.Equal(t, []string{"a", "z", "b"}, []string{sorted.Nodes[0].Name, sorted.Nodes[1].Name, sorted.Nodes[2].Name})
	assert.Equal(t, "b", g.Nodes[0].Name, "original must not be reordered")
}

func TestProfileFromGraph(t *testing.T) {
	g := &Graph{Nodes: []Node{
		{Label: LabelCategory, Name: "Strengths"},
		{Label: LabelSkill, Name: "Curious"},
		{Label: LabelStrategy, Name: "Visual Learning", Source: SourceSurvey},
		{Label: LabelStrategy, Name: "Mind mapping", Source: SourceDerived},
		{Label: LabelTopic, Name: "Robotics"},
		{Label: LabelGoal, Name: "Engineering"},
		{Label: LabelRequirement, Name: "Physics"},
		{Label: LabelChallenge, Name: "Procrastination"},
	}}

	p := ProfileFromGraph(g)
	assert.Equal(t, "Visual", p.LearningStyle)
	assert.Equal(t, []string{"Curious"}, p.Strengths)
	assert.Equal(t, []string{"Mind mapping"}, p.Strategies)
	assert.Equal(t, []string{"Robotics"}, p.Passions)
	assert.Equal(t, []string{"Engineering"}, p.Goals)
	assert.Equal(t, []string{"Physics"}, p.Requirements)
	assert.Equal(t, []string{"Procrastination"}, p.Challenges)
	assert.False(t, p.IsEmpty())
	assert.True(t, ProfileFromGraph(NewGraph()).IsEmpty())
}
