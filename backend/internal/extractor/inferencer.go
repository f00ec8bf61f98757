package extractor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pathfinder/backend/internal/state"
	"pathfinder/backend/internal/tables"
)

// Inferencer derives relationships between the nodes of a draft.
type Inferencer interface {
	Infer(d *Draft) []state.Relationship
}

// RuleInferencer links nodes whose names are related by token overlap or by
// a shared domain in the lookup tables.
type RuleInferencer struct {
	tables *tables.Tables
}

// NewRuleInferencer creates an inferencer backed by the given tables.
func NewRuleInferencer(t *tables.Tables) *RuleInferencer {
	if t == nil {
		t = tables.Default()
	}
	return &RuleInferencer{tables: t}
}

// Infer returns peer edges within the Strengths, Passions and Goals facets
// and directed edges across them.
func (i *RuleInferencer) Infer(d *Draft) []state.Relationship {
	skills := d.Names(state.LabelSkill)
	topics := d.Names(state.LabelTopic)
	goals := d.Names(state.LabelGoal)
	strategies := d.Names(state.LabelStrategy)

	var out []state.Relationship
	add := func(from, to string, t state.RelType, strength float64, desc string) {
		if from == to {
			return
		}
		out = append(out, state.Relationship{From: from, To: to, Type: t, Strength: strength, Description: desc})
	}

	peers := []struct {
		names []string
		desc  string
	}{
		{skills, "Complementary strengths"},
		{topics, "Related areas of interest"},
		{goals, "Related aspirations"},
	}
	for _, p := range peers {
		for _, a := range p.names {
			for _, b := range p.names {
				if a != b && i.Related(a, b) {
					add(a, b, state.RelRelatesTo, 0.7, p.desc)
				}
			}
		}
	}

	for _, skill := range skills {
		for _, topic := range topics {
			if i.Related(skill, topic) {
				add(skill, topic, state.RelRelatesTo, 0.7, fmt.Sprintf("%s is relevant to %s", skill, topic))
			}
		}
		for _, goal := range goals {
			if i.tables.SkillHelpsGoal(skill, goal) || i.Related(skill, goal) {
				add(skill, goal, state.RelHelpsWith, 0.8, fmt.Sprintf("%s helps achieve %s", skill, goal))
			}
		}
		for _, strategy := range strategies {
			if i.Related(skill, strategy) {
				add(skill, strategy, state.RelEnhances, 0.6, "Strength enhancing learning approach")
			}
		}
	}

	for _, topic := range topics {
		for _, goal := range goals {
			if i.Related(topic, goal) {
				add(topic, goal, state.RelContributesTo, 0.7, fmt.Sprintf("Interest in %s contributes to %s", topic, goal))
			}
		}
	}

	return out
}

// Related reports whether two names share a word of four or more letters
// or fall in the same domain.
func (i *RuleInferencer) Related(a, b string) bool {
	wordsB := strings.Fields(strings.ToLower(b))
	for _, w := range strings.Fields(strings.ToLower(a)) {
		if utf8.RuneCountInString(w) < 4 {
			continue
		}
		for _, o := range wordsB {
			if w == o {
				return true
			}
		}
	}
	return i.tables.SameDomain(a, b)
}
