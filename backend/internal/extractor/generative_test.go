package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pathfinder/backend/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	response    string
	err         error
	prompts     []string
	temperature float32
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, temperature float32) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.temperature = temperature
	return f.response, f.err
}

const conversationJSON = `Here is the graph:
` + "```json" + `
{
  "nodes": [
    {"label": "Topic", "name": "Robotics", "description": "Builds robots", "confidence": 0.9},
    {"label": "Challenge", "properties": {"name": "Time management", "confidence": 0.6}},
    {"label": "Person", "name": "Alice"},
    {"label": "Skill", "name": "   "},
    {"label": "Topic", "name": "Robotics"}
  ],
  "relationships": [
    {"from": "Robotics", "to": "Engineering", "type": "leads_to", "strength": 0.8},
    {"from": "Time management", "to": "Robotics", "type": "RELATES_TO", "properties": {"strength": 0.4}},
    {"from": "Robotics", "to": "Nowhere", "type": "RELATES_TO"},
    {"from": "Robotics", "to": "Robotics", "type": "RELATES_TO"},
    {"from": "Robotics", "to": "Engineering", "type": "LIKES"}
  ]
}
` + "```"

func existingGraph() *state.Graph {
	g := state.NewGraph()
	g.Nodes = append(g.Nodes, state.Node{Label: state.LabelGoal, Name: "Engineering", Confidence: 1})
	return g
}

func TestExtractFromConversation_ParsesAndValidates(t *testing.T) {
	llm := &fakeCompleter{response: conversationJSON}
	e := NewGenerativeExtractor(llm, nil)

	g := e.ExtractFromConversation(context.Background(), "I love robotics", "That's great!", existingGraph(), map[string]any{"grade": "11"})

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "Robotics", g.Nodes[0].Name)
	assert.Equal(t, 0.9, g.Nodes[0].Confidence)
	assert.Equal(t, state.SourceConversation, g.Nodes[0].Source)
	assert.Empty(t, g.Nodes[0].Category)
	assert.Equal(t, state.LabelChallenge, g.Nodes[1].Label)
	assert.Equal(t, 0.6, g.Nodes[1].Confidence)

	require.Len(t, g.Relationships, 2)
	assert.Equal(t, state.RelLeadsTo, g.Relationships[0].Type)
	assert.Equal(t, "Engineering", g.Relationships[0].To)
	assert.Equal(t, 0.4, g.Relationships[1].Strength)

	assert.Equal(t, float32(0.2), llm.temperature)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "User: I love robotics")
	assert.Contains(t, llm.prompts[0], `"Engineering"`)
}

func TestExtractFromConversation_Degrades(t *testing.T) {
	tests := []struct {
		name string
		llm  Completer
	}{
		{"service error", &fakeCompleter{err: errors.New("connection refused")}},
		{"no json", &fakeCompleter{response: "I could not find anything."}},
		{"broken json", &fakeCompleter{response: `{"nodes": [`}},
		{"nil service", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewGenerativeExtractor(tt.llm, nil)
			g := e.ExtractFromConversation(context.Background(), "hi", "hello", nil, nil)
			require.NotNil(t, g)
			assert.True(t, g.IsEmpty())
		})
	}
}

func TestGenerativeExtract_SurveyMode(t *testing.T) {
	llm := &fakeCompleter{response: `{"nodes":[{"label":"Skill","name":"Chess"}],"relationships":[]}`}
	e := NewGenerativeExtractor(llm, nil)

	g, err := e.Extract(context.Background(), map[string]any{"hobbies": "chess"})
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, state.SourceSurvey, g.Nodes[0].Source)
	assert.Equal(t, state.FacetStrengths, g.Nodes[0].Category)
	assert.Equal(t, defaultConfidence, g.Nodes[0].Confidence)
	assert.Equal(t, float32(0.1), llm.temperature)
	assert.True(t, strings.Contains(llm.prompts[0], `"hobbies": "chess"`))
}

func TestGenerativeExtract_FallsBackToRules(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("breaker open")}
	e := NewGenerativeExtractor(llm, NewCompiler(nil, Options{Scaffold: true}))

	g, err := e.Extract(context.Background(), map[string]any{"strengths": "Art"})
	require.NoError(t, err)
	_, ok := findNode(g, state.LabelSkill, "Art")
	assert.True(t, ok)
}

func TestExtractJSON(t *testing.T) {
	got, err := extractJSON("```json\n{\"a\": 1}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got)

	got, err = extractJSON(`Sure! {"a": {"b": 2}} hope that helps`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 2}}`, got)

	_, err = extractJSON("nothing here")
	assert.Error(t, err)
}
