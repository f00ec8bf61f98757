package extractor

import (
	"testing"

	"pathfinder/backend/internal/state"

	"github.com/stretchr/testify/assert"
)

func TestRelated(t *testing.T) {
	i := NewRuleInferencer(nil)

	tests := []struct {
		a, b string
		want bool
	}{
		{"Data Science", "Science Fair", true},
		{"Physics", "Robotics", true},
		{"Creative writing", "Music", true},
		{"Chess", "Music", false},
		{"Art", "Cat", false},
		{"Big Dog", "Big Cat", false},
		{"Día libre", "Mi día", false},
		{"Música clásica", "Música pop", true},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, i.Related(tt.a, tt.b))
		})
	}
}

func TestInfer_RuleFamilies(t *testing.T) {
	d := NewDraft()
	d.AddNode(state.Node{Label: state.LabelSkill, Name: "Mathematics"})
	d.AddNode(state.Node{Label: state.LabelSkill, Name: "Physics"})
	d.AddNode(state.Node{Label: state.LabelTopic, Name: "Robotics"})
	d.AddNode(state.Node{Label: state.LabelGoal, Name: "Computer Engineering"})
	d.AddNode(state.Node{Label: state.LabelStrategy, Name: "Lab experiments"})

	rels := NewRuleInferencer(nil).Infer(d)

	has := func(from, to string, typ state.RelType, strength float64) bool {
		for _, r := range rels {
			if r.From == from && r.To == to && r.Type == typ {
				return r.Strength == strength
			}
		}
		return false
	}

	assert.True(t, has("Mathematics", "Physics", state.RelRelatesTo, 0.7))
	assert.True(t, has("Physics", "Mathematics", state.RelRelatesTo, 0.7))
	assert.True(t, has("Mathematics", "Robotics", state.RelRelatesTo, 0.7))
	assert.True(t, has("Mathematics", "Computer Engineering", state.RelHelpsWith, 0.8))
	assert.True(t, has("Robotics", "Computer Engineering", state.RelContributesTo, 0.7))
	assert.False(t, has("Mathematics", "Lab experiments", state.RelEnhances, 0.6))

	for _, r := range rels {
		assert.NotEqual(t, r.From, r.To)
	}
}
