package extractor

import (
	"context"
	"testing"

	"pathfinder/backend/internal/state"
	"pathfinder/backend/internal/survey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findNode(g *state.Graph, label state.Label, name string) (state.Node, bool) {
	for _, n := range g.Nodes {
		if n.Label == label && n.Name == name {
			return n, true
		}
	}
	return state.Node{}, false
}

func edgesTo(g *state.Graph, to string, t state.RelType) []string {
	var from []string
	for _, r := range g.Relationships {
		if r.To == to && r.Type == t {
			from = append(from, r.From)
		}
	}
	return from
}

func TestCompile_MathematicsVisualEngineering(t *testing.T) {
	c := NewCompiler(nil, Options{Scaffold: true})
	g := c.Compile(map[string]any{
		"strengths":     []any{"Mathematics"},
		"learningStyle": "I like visuals",
		"goals":         []any{"Engineering"},
	})
	require.NoError(t, g.Validate())

	skill, ok := findNode(g, state.LabelSkill, "Mathematics")
	require.True(t, ok)
	assert.Equal(t, state.SourceSurvey, skill.Source)
	assert.Equal(t, 1.0, skill.Confidence)

	style, ok := findNode(g, state.LabelStrategy, "Visual Learning")
	require.True(t, ok)
	assert.Equal(t, state.FacetLearningStyle, style.Category)
	assert.ElementsMatch(t,
		[]string{"Mind mapping", "Color-coding notes", "Diagrams and charts", "Video tutorials", "Visual organization tools"},
		targets(g, "Visual Learning", state.RelLeadsTo))

	_, ok = findNode(g, state.LabelGoal, "Engineering")
	require.True(t, ok)

	_, ok = findNode(g, state.LabelRequirement, "Mathematics")
	assert.False(t, ok, "existing Mathematics node must be reused")
	for _, name := range []string{"Physics", "Problem Solving"} {
		req, ok := findNode(g, state.LabelRequirement, name)
		require.True(t, ok, name)
		assert.Equal(t, state.SourceDerived, req.Source)
		assert.Equal(t, 0.8, req.Confidence)
	}

	assert.ElementsMatch(t, []string{"Mathematics", "Physics", "Problem Solving"}, edgesTo(g, "Engineering", state.RelHelpsWith))
}

func targets(g *state.Graph, from string, t state.RelType) []string {
	var to []string
	for _, r := range g.Relationships {
		if r.From == from && r.Type == t {
			to = append(to, r.To)
		}
	}
	return to
}

func TestCompile_EmptySurvey(t *testing.T) {
	scaffolded := NewCompiler(nil, Options{Scaffold: true}).Compile(map[string]any{})
	require.Len(t, scaffolded.Nodes, 4)
	assert.Empty(t, scaffolded.Relationships)
	for i, f := range state.Facets {
		assert.Equal(t, state.LabelCategory, scaffolded.Nodes[i].Label)
		assert.Equal(t, string(f), scaffolded.Nodes[i].Name)
		assert.Equal(t, state.SourceSystem, scaffolded.Nodes[i].Source)
	}

	flat := NewCompiler(nil, Options{}).Compile(map[string]any{})
	assert.True(t, flat.IsEmpty())
}

func TestCompile_DedupSkill(t *testing.T) {
	c := NewCompiler(nil, Options{Scaffold: true})
	g := c.Compile(map[string]any{"strengths": []any{"Curious", "Curious", " Curious "}})

	assert.Len(t, g.NodesByLabel(state.LabelSkill), 1)
	assert.Equal(t, []string{"Strengths"}, edgesTo(g, "Curious", state.RelContains))
}

func richSurvey() map[string]any {
	return map[string]any{
		"strengths":        []any{"Communication", "Creative writing", "Creative design"},
		"hobbies":          "Music, Spanish club",
		"favoriteSubjects": []any{"Physics"},
		"learnBest":        "hands-on experiments",
		"goals":            []any{"Become a teacher"},
		"careerGoals":      []any{map[string]any{"path": "Business Management", "details": "Run a company"}},
		"aspirations":      []any{map[string]any{"unknown": "field"}},
	}
}

func TestCompile_Deterministic(t *testing.T) {
	c := NewCompiler(nil, Options{Scaffold: true})
	assert.Equal(t, c.Compile(richSurvey()), c.Compile(richSurvey()))
}

func TestCompile_RichSurveyInvariants(t *testing.T) {
	c := NewCompiler(nil, Options{Scaffold: true})
	g := c.Compile(richSurvey())
	require.NoError(t, g.Validate())

	for _, r := range g.Relationships {
		assert.NotEqual(t, r.From, r.To)
	}

	goal, ok := findNode(g, state.LabelGoal, "Business Management")
	require.True(t, ok)
	assert.Equal(t, "Run a company", goal.Description)
	assert.Equal(t, "Career interest", goal.Relevance)

	teacher, ok := findNode(g, state.LabelGoal, "Become a teacher")
	require.True(t, ok)
	assert.Equal(t, "Aspiration to Become a teacher", teacher.Description)

	assert.Len(t, g.NodesByLabel(state.LabelGoal), 2, "item without a name is dropped")

	// Peer edges are symmetric
	assert.Contains(t, targets(g, "Creative writing", state.RelRelatesTo), "Creative design")
	assert.Contains(t, targets(g, "Creative design", state.RelRelatesTo), "Creative writing")

	// Communication is a Business prerequisite and already a skill
	_, ok = findNode(g, state.LabelRequirement, "Communication")
	assert.False(t, ok)
	assert.Contains(t, edgesTo(g, "Business Management", state.RelHelpsWith), "Communication")

	// Languages domain links the skill to the club
	assert.Contains(t, targets(g, "Communication", state.RelRelatesTo), "Spanish club")

	_, ok = findNode(g, state.LabelStrategy, "Kinesthetic Learning")
	assert.True(t, ok)
}

func TestCompiler_ExtractHonoursContext(t *testing.T) {
	c := NewCompiler(nil, Options{Scaffold: true})

	g, err := c.Extract(context.Background(), map[string]any{"strengths": "Art"})
	require.NoError(t, err)
	_, ok := findNode(g, state.LabelSkill, "Art")
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Extract(ctx, map[string]any{})
	assert.Error(t, err)
}

type stubInferencer []state.Relationship

func (s stubInferencer) Infer(*Draft) []state.Relationship { return s }

func TestCompiler_FinalPassFiltersEdges(t *testing.T) {
	edges := stubInferencer{
		{From: "Art", To: "Art", Type: state.RelRelatesTo},
		{From: "Art", To: "Ghost", Type: state.RelRelatesTo},
		{From: "Art", To: "Music", Type: state.RelRelatesTo, Strength: 0.7},
		{From: "Art", To: "Music", Type: state.RelRelatesTo, Strength: 0.1},
	}
	c := NewCompilerWith(survey.NewNormalizer(nil), NewRuleSynthesizer(nil, Options{}), edges)

	g := c.Compile(map[string]any{"strengths": "Art", "interests": "Music"})
	require.Len(t, g.Relationships, 1)
	assert.Equal(t, 0.7, g.Relationships[0].Strength)
}
