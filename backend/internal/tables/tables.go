// Package tables holds the static lookup data used by the rule-based
// compiler: learning style keywords and strategies, domain keyword groups,
// skill→goal hints and goal→requirement lists. The data is immutable once
// loaded and is injected into the synthesizer and inferencer at construction.
package tables

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// StyleRule maps free text onto a learning style and lists its strategies.
type StyleRule struct {
	Style      string   `yaml:"style"`
	Keywords   []string `yaml:"keywords"`
	Strategies []string `yaml:"strategies"`
}

// Domain is a group of keywords that mark two names as related.
type Domain struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// SkillGoalRule says a skill containing Skill helps goals containing any of Goals.
type SkillGoalRule struct {
	Skill string   `yaml:"skill"`
	Goals []string `yaml:"goals"`
}

// GoalRequirement lists the prerequisites of goals containing Key.
type GoalRequirement struct {
	Key      string   `yaml:"key"`
	Requires []string `yaml:"requires"`
}

// Tables is the full set of lookup data.
type Tables struct {
	LearningStyles          []StyleRule       `yaml:"learning_styles"`
	FallbackStyle           StyleRule         `yaml:"fallback_style"`
	Domains                 []Domain          `yaml:"domains"`
	SkillGoals              []SkillGoalRule   `yaml:"skill_goals"`
	GoalRequirements        []GoalRequirement `yaml:"goal_requirements"`
	DefaultRequirements     []string          `yaml:"default_requirements"`
	SelfDescriptionKeywords []string          `yaml:"self_description_keywords"`
}

// Default returns the embedded tables. It panics only if the embedded file is
// broken, which the package tests guard against.
func Default() *Tables {
	t, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("tables: embedded defaults invalid: %v", err))
	}
	return t
}

// Load reads tables from a YAML file, or returns the defaults when path is empty.
func Load(path string) (*Tables, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates tables from YAML.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the tables are usable by the compiler.
func (t *Tables) Validate() error {
	if len(t.LearningStyles) == 0 {
		return fmt.Errorf("tables: no learning styles")
	}
	for _, s := range t.LearningStyles {
		if s.Style == "" || len(s.Keywords) == 0 || len(s.Strategies) == 0 {
			return fmt.Errorf("tables: learning style %q needs keywords and strategies", s.Style)
		}
	}
	if t.FallbackStyle.Style == "" || len(t.FallbackStyle.Strategies) == 0 {
		return fmt.Errorf("tables: fallback style needs a name and strategies")
	}
	if len(t.DefaultRequirements) == 0 {
		return fmt.Errorf("tables: default requirements are empty")
	}
	for _, g := range t.GoalRequirements {
		if g.Key == "" || len(g.Requires) == 0 {
			return fmt.Errorf("tables: goal requirement %q is incomplete", g.Key)
		}
	}
	return nil
}

// ClassifyStyle maps free text onto a style name, trying styles in table
// order. Text that matches nothing yields the fallback style.
func (t *Tables) ClassifyStyle(text string) string {
	lower := strings.ToLower(text)
	for _, s := range t.LearningStyles {
		for _, kw := range s.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return s.Style
			}
		}
	}
	return t.FallbackStyle.Style
}

// StrategiesFor returns the strategies for a style, or the fallback's.
func (t *Tables) StrategiesFor(style string) []string {
	for _, s := range t.LearningStyles {
		if s.Style == style {
			return s.Strategies
		}
	}
	return t.FallbackStyle.Strategies
}

// RequirementsFor returns the prerequisites of a goal: those of the first key
// the goal contains (case-insensitive), else the defaults.
func (t *Tables) RequirementsFor(goal string) []string {
	lower := strings.ToLower(goal)
	for _, g := range t.GoalRequirements {
		if strings.Contains(lower, strings.ToLower(g.Key)) {
			return g.Requires
		}
	}
	return t.DefaultRequirements
}

// SameDomain reports whether both names hit keywords of one domain.
func (t *Tables) SameDomain(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, d := range t.Domains {
		if containsAny(la, d.Keywords) && containsAny(lb, d.Keywords) {
			return true
		}
	}
	return false
}

// SkillHelpsGoal reports whether a skill-goal rule links the two names.
func (t *Tables) SkillHelpsGoal(skill, goal string) bool {
	ls, lg := strings.ToLower(skill), strings.ToLower(goal)
	for _, r := range t.SkillGoals {
		if strings.Contains(ls, strings.ToLower(r.Skill)) && containsAny(lg, r.Goals) {
			return true
		}
	}
	return false
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
