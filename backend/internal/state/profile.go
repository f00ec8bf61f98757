package state

import "strings"

// Profile is a per-facet summary of a stored graph, used to give the
// counselor conversation situational context.
type Profile struct {
	Strengths     []string `json:"strengths,omitempty"`
	LearningStyle string   `json:"learning_style,omitempty"`
	Strategies    []string `json:"strategies,omitempty"`
	Passions      []string `json:"passions,omitempty"`
	Goals         []string `json:"goals,omitempty"`
	Requirements  []string `json:"requirements,omitempty"`
	Challenges    []string `json:"challenges,omitempty"`
	Resources     []string `json:"resources,omitempty"`
}

// ProfileFromGraph summarises a graph read back from the store.
func ProfileFromGraph(g *Graph) Profile {
	var p Profile
	if g == nil {
		return p
	}
	for _, n := range g.Nodes {
		switch n.Label {
		case LabelSkill:
			p.Strengths = append(p.Strengths, n.Name)
		case LabelStrategy:
			// The style node is the only survey-sourced strategy
			if n.Source == SourceSurvey && strings.HasSuffix(n.Name, " Learning") && p.LearningStyle == "" {
				p.LearningStyle = strings.TrimSuffix(n.Name, " Learning")
				continue
			}
			p.Strategies = append(p.Strategies, n.Name)
		case LabelTopic:
			p.Passions = append(p.Passions, n.Name)
		case LabelGoal, LabelAspiration:
			p.Goals = append(p.Goals, n.Name)
		case LabelRequirement:
			p.Requirements = append(p.Requirements, n.Name)
		case LabelChallenge:
			p.Challenges = append(p.Challenges, n.Name)
		case LabelResource:
			p.Resources = append(p.Resources, n.Name)
		}
	}
	return p
}

// IsEmpty reports whether nothing is known about the user yet.
func (p Profile) IsEmpty() bool {
	return len(p.Strengths) == 0 && p.LearningStyle == "" && len(p.Strategies) == 0 &&
		len(p.Passions) == 0 && len(p.Goals) == 0 && len(p.Requirements) == 0 &&
		len(p.Challenges) == 0 && len(p.Resources) == 0
}
