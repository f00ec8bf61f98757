package extractor

import (
	"fmt"
	"sort"
	"strings"

	"pathfinder/backend/internal/state"
	"pathfinder/backend/internal/survey"
	"pathfinder/backend/internal/tables"
	"pathfinder/backend/pkg/errors"
	"pathfinder/backend/pkg/logger"

	"go.uber.org/zap"
)

// Synthesizer turns normalized survey buckets into typed nodes and the edges
// implied by the static tables (style strategies, goal prerequisites).
type Synthesizer interface {
	Synthesize(n survey.Normalized) *Draft
}

// Options tunes the rule-based synthesizer.
type Options struct {
	// Scaffold emits the four Category nodes and their CONTAINS edges even
	// when the survey is empty.
	Scaffold bool
}

// nameAccessor pulls a display name out of a structured item.
type nameAccessor func(attrs map[string]any) (string, bool)

func prop(key string) nameAccessor {
	return func(attrs map[string]any) (string, bool) {
		s, ok := attrs[key].(string)
		if !ok {
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	}
}

func props(keys ...string) []nameAccessor {
	out := make([]nameAccessor, len(keys))
	for i, k := range keys {
		out[i] = prop(k)
	}
	return out
}

var (
	strengthNames = props("strength", "skill", "ability", "name", "title", "label", "path")
	passionNames  = props("hobby", "interest", "passion", "activity", "name", "title", "label", "path")
	goalNames     = props("goal", "aspiration", "target", "objective", "name", "title", "label", "path")
	detailFields  = props("details", "description")
)

type scaffoldEntry struct {
	facet       state.Facet
	description string
	relevance   string
	contains    string
}

var scaffold = []scaffoldEntry{
	{state.FacetStrengths, "Who You Are - Personal strengths and abilities", "Core identity category", "Category contains specific strength"},
	{state.FacetLearningStyle, "How You Learn - Preferred learning approaches", "Educational preference category", "Category contains specific learning style"},
	{state.FacetPassions, "What You Care About - Interests and motivations", "Motivational category", "Category contains specific interest"},
	{state.FacetGoals, "What You Strive For - Future aspirations", "Aspirational category", "Category contains specific goal"},
}

// RuleSynthesizer is the table-driven Synthesizer.
type RuleSynthesizer struct {
	tables *tables.Tables
	opts   Options
	logger *zap.Logger
}

// NewRuleSynthesizer creates a synthesizer backed by the given tables.
func NewRuleSynthesizer(t *tables.Tables, opts Options) *RuleSynthesizer {
	if t == nil {
		t = tables.Default()
	}
	return &RuleSynthesizer{
		tables: t,
		opts:   opts,
		logger: logger.Named("synthesizer"),
	}
}

// Synthesize builds the draft for one survey.
func (s *RuleSynthesizer) Synthesize(n survey.Normalized) *Draft {
	d := NewDraft()

	if s.opts.Scaffold {
		for _, c := range scaffold {
			d.AddNode(state.Node{
				Label:       state.LabelCategory,
				Name:        string(c.facet),
				Description: c.description,
				Source:      state.SourceSystem,
				Confidence:  1.0,
				Relevance:   c.relevance,
				Category:    c.facet,
			})
		}
	}

	s.addStrengths(d, n.Strengths)
	s.addLearningStyle(d, n.LearningStyle)
	s.addPassions(d, n.Interests, "Area of personal interest")
	s.addPassions(d, n.AcademicInterests, "Academic interest")
	s.addPassions(d, n.Extracurriculars, "Extracurricular activity")
	goals := s.addGoals(d, n.Goals, "Personal or career aspiration")
	goals = append(goals, s.addGoals(d, n.CareerInterests, "Career interest")...)

	// Prerequisites only after every goal exists, so one goal's prerequisite
	// that is itself a goal is reused rather than added as a Requirement.
	for _, goal := range goals {
		s.addPrerequisites(d, goal)
	}

	return d
}

func (s *RuleSynthesizer) addStrengths(d *Draft, items []survey.Item) {
	for _, it := range items {
		name, details, ok := s.resolve(state.FacetStrengths, it, strengthNames)
		if !ok {
			continue
		}
		desc := details
		if desc == "" {
			desc = "Self-identified strength in " + name
		}
		s.addItem(d, state.Node{
			Label:       state.LabelSkill,
			Name:        name,
			Description: desc,
			Source:      state.SourceSurvey,
			Confidence:  1.0,
			Relevance:   "Personal strength identified by student",
			Category:    state.FacetStrengths,
		})
	}
}

func (s *RuleSynthesizer) addLearningStyle(d *Draft, style string) {
	if style == "" {
		return
	}
	lower := strings.ToLower(style)
	styleNode := style + " Learning"

	s.addItem(d, state.Node{
		Label:       state.LabelStrategy,
		Name:        styleNode,
		Description: fmt.Sprintf("Preference for %s learning approaches", lower),
		Source:      state.SourceSurvey,
		Confidence:  1.0,
		Relevance:   "Primary learning style preference",
		Category:    state.FacetLearningStyle,
	})

	for _, strategy := range s.tables.StrategiesFor(style) {
		d.AddNode(state.Node{
			Label:       state.LabelStrategy,
			Name:        strategy,
			Description: fmt.Sprintf("Effective approach for %s learners", lower),
			Source:      state.SourceDerived,
			Confidence:  0.9,
			Relevance:   fmt.Sprintf("Strategy aligned with %s learning", style),
			Category:    state.FacetLearningStyle,
		})
		d.AddRelationship(state.Relationship{
			From:        styleNode,
			To:          strategy,
			Type:        state.RelLeadsTo,
			Strength:    0.9,
			Description: fmt.Sprintf("%s is effective for %s learners", strategy, lower),
		})
	}
}

func (s *RuleSynthesizer) addPassions(d *Draft, items []survey.Item, relevance string) {
	for _, it := range items {
		name, details, ok := s.resolve(state.FacetPassions, it, passionNames)
		if !ok {
			continue
		}
		desc := details
		if desc == "" {
			desc = "Interest in " + name
		}
		s.addItem(d, state.Node{
			Label:       state.LabelTopic,
			Name:        name,
			Description: desc,
			Source:      state.SourceSurvey,
			Confidence:  1.0,
			Relevance:   relevance,
			Category:    state.FacetPassions,
		})
	}
}

// addGoals adds goal nodes and returns the names that resolved.
func (s *RuleSynthesizer) addGoals(d *Draft, items []survey.Item, relevance string) []string {
	var names []string
	for _, it := range items {
		name, details, ok := s.resolve(state.FacetGoals, it, goalNames)
		if !ok {
			continue
		}
		desc := details
		if desc == "" {
			desc = aspiration(name)
		}
		s.addItem(d, state.Node{
			Label:       state.LabelGoal,
			Name:        name,
			Description: desc,
			Source:      state.SourceSurvey,
			Confidence:  1.0,
			Relevance:   relevance,
			Category:    state.FacetGoals,
		})
		names = append(names, name)
	}
	return names
}

// addPrerequisites links the goal's table prerequisites to it. A
// prerequisite that already names any node is reused rather than duplicated.
func (s *RuleSynthesizer) addPrerequisites(d *Draft, goal string) {
	for _, req := range s.tables.RequirementsFor(goal) {
		if req == goal {
			continue
		}
		if !d.HasName(req) {
			d.AddNode(state.Node{
				Label:       state.LabelRequirement,
				Name:        req,
				Description: "Skill needed for " + goal,
				Source:      state.SourceDerived,
				Confidence:  0.8,
				Relevance:   "Needed to achieve " + goal,
				Category:    state.FacetGoals,
			})
		}
		d.AddRelationship(state.Relationship{
			From:        req,
			To:          goal,
			Type:        state.RelHelpsWith,
			Strength:    0.8,
			Description: fmt.Sprintf("%s is important for %s", req, goal),
		})
	}
}

// addItem adds a facet item and, with the scaffold on, its CONTAINS edge.
func (s *RuleSynthesizer) addItem(d *Draft, n state.Node) {
	if !d.AddNode(n) || !s.opts.Scaffold {
		return
	}
	for _, c := range scaffold {
		if c.facet == n.Category {
			d.AddRelationship(state.Relationship{
				From:        string(c.facet),
				To:          n.Name,
				Type:        state.RelContains,
				Strength:    1.0,
				Description: c.contains,
			})
			return
		}
	}
}

// resolve returns the display name and optional details of an item. Items
// without a usable name are logged and skipped.
func (s *RuleSynthesizer) resolve(facet state.Facet, it survey.Item, names []nameAccessor) (string, string, bool) {
	if it.Text != "" {
		return strings.TrimSpace(it.Text), "", true
	}
	if it.Attrs != nil {
		for _, get := range names {
			if name, ok := get(it.Attrs); ok {
				var details string
				for _, detail := range detailFields {
					if v, ok := detail(it.Attrs); ok {
						details = v
						break
					}
				}
				return name, details, true
			}
		}
	}

	keys := make([]string, 0, len(it.Attrs))
	for k := range it.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var item any = it.Raw
	if it.Attrs != nil {
		item = it.Attrs
	}
	s.logger.Warn("Skipping item without a name",
		zap.Error(errors.NewUnresolvableEntityName(string(facet), keys)),
		zap.Any("item", item),
	)
	return "", "", false
}

func aspiration(goal string) string {
	if strings.HasPrefix(strings.ToLower(goal), "become") {
		return "Aspiration to " + goal
	}
	return "Aspiration to achieve " + goal
}
