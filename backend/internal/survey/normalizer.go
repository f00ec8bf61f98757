// Package survey maps heterogeneous survey payloads onto the canonical
// category buckets consumed by the compiler.
package survey

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"pathfinder/backend/internal/tables"
	"pathfinder/backend/pkg/errors"
	"pathfinder/backend/pkg/logger"

	"go.uber.org/zap"
)

// Item is one extraction unit pulled from a survey field. Exactly one of
// Text, Attrs or Raw is set.
type Item struct {
	Text  string         // item arrived as a string
	Attrs map[string]any // item arrived as an object, e.g. {"path": ..., "details": ...}
	Raw   any            // any other shape, kept for name resolution to reject
}

// IsStructured reports whether the item arrived as an object.
func (i Item) IsStructured() bool { return i.Attrs != nil }

// Normalized holds the canonical buckets.
type Normalized struct {
	Strengths         []Item `json:"strengths"`
	LearningStyle     string `json:"learningStyle,omitempty"`
	Interests         []Item `json:"interests"`
	AcademicInterests []Item `json:"academicInterests"`
	Extracurriculars  []Item `json:"extracurriculars"`
	Goals             []Item `json:"goals"`
	CareerInterests   []Item `json:"careerInterests"`
	Challenges        []Item `json:"challenges"`
	GradeLevel        string `json:"gradeLevel,omitempty"`
}

// Alternate field names per bucket, scanned in order.
var (
	strengthFields        = []string{"strengths", "personalTraits", "skills", "abilities", "talents", "goodAt", "strongPoints", "expertise"}
	interestFields        = []string{"interests", "passions", "hobbies", "pastimes", "enjoyableActivities", "favoriteThings"}
	academicFields        = []string{"academicInterests", "favoriteSubjects", "preferredSubjects", "studyPreferences", "academicStrengths"}
	extracurricularFields = []string{"extracurriculars", "activities", "clubs", "sports", "afterSchoolActivities", "organizations"}
	goalFields            = []string{"goals", "futureGoals", "aspirations", "dreams", "ambitions", "objectives", "lifeGoals", "collegeGoals", "paths"}
	careerFields          = []string{"careerInterests", "careerGoals", "desiredProfessions", "jobInterests", "careerPlans"}
	challengeFields       = []string{"challenges", "difficulties", "struggles", "obstacles", "weaknesses", "areasToImprove"}
	learningStyleFields   = []string{"learningStyle", "preferredLearningMethod", "studyStyle", "learnBest", "learningPreferences"}
	gradeFields           = []string{"gradeLevel", "grade"}
)

// Normalizer maps raw survey payloads onto buckets. It never fails: unusable
// fields degrade to empty buckets.
type Normalizer struct {
	tables *tables.Tables
	logger *zap.Logger
}

// NewNormalizer creates a normalizer using the given lookup tables.
func NewNormalizer(t *tables.Tables) *Normalizer {
	if t == nil {
		t = tables.Default()
	}
	return &Normalizer{
		tables: t,
		logger: logger.Named("survey"),
	}
}

// Normalize maps a raw survey onto the canonical buckets.
func (n *Normalizer) Normalize(raw map[string]any) Normalized {
	out := Normalized{
		Strengths:         n.collect(raw, strengthFields),
		Interests:         n.collect(raw, interestFields),
		AcademicInterests: n.collect(raw, academicFields),
		Extracurriculars:  n.collect(raw, extracurricularFields),
		Goals:             n.collect(raw, goalFields),
		CareerInterests:   n.collect(raw, careerFields),
		Challenges:        n.collect(raw, challengeFields),
		LearningStyle:     n.learningStyle(raw),
		GradeLevel:        firstScalar(raw, gradeFields),
	}

	if desc, ok := raw["selfDescription"].(string); ok {
		out.Strengths = dedupe(append(out.Strengths, n.selfDescribed(desc)...))
	}

	return out
}

// collect accumulates the items of every non-empty alias field, in alias order.
func (n *Normalizer) collect(raw map[string]any, fields []string) []Item {
	var items []Item
	for _, field := range fields {
		value, ok := raw[field]
		if !ok || isEmpty(value) {
			continue
		}
		items = append(items, n.itemsOf(field, value)...)
	}
	return dedupe(items)
}

// itemsOf expands one field value: a sequence, a comma-delimited string or an
// object whose values are taken.
func (n *Normalizer) itemsOf(field string, value any) []Item {
	switch v := value.(type) {
	case string:
		return splitComma(v)
	case []string:
		items := make([]Item, 0, len(v))
		for _, s := range v {
			items = append(items, Item{Text: s})
		}
		return items
	case []any:
		items := make([]Item, 0, len(v))
		for _, elem := range v {
			items = append(items, elementItem(elem))
		}
		return items
	case map[string]any:
		// Values in key order so the same payload always yields the same buckets
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		items := make([]Item, 0, len(v))
		for _, k := range keys {
			elem := v[k]
			if isEmpty(elem) {
				continue
			}
			if _, isString := elem.(string); !isString {
				n.logger.Debug("Passing through non-string object value",
					zap.String("field", field),
					zap.String("key", k),
					zap.String("type", fmt.Sprintf("%T", elem)),
				)
			}
			items = append(items, elementItem(elem))
		}
		return items
	default:
		n.logger.Debug("Skipping unusable survey field", zap.Error(errors.NewMalformedInput(field, value)))
		return nil
	}
}

func elementItem(elem any) Item {
	switch e := elem.(type) {
	case string:
		return Item{Text: e}
	case map[string]any:
		return Item{Attrs: e}
	default:
		return Item{Raw: e}
	}
}

// learningStyle classifies the first non-empty learning-style field. It
// returns "" when the survey has no such field at all.
func (n *Normalizer) learningStyle(raw map[string]any) string {
	for _, field := range learningStyleFields {
		value, ok := raw[field]
		if !ok || isEmpty(value) {
			continue
		}
		return n.tables.ClassifyStyle(flattenText(value))
	}
	return ""
}

// selfDescribed turns strength keywords found in free text into items.
func (n *Normalizer) selfDescribed(desc string) []Item {
	lower := strings.ToLower(desc)
	var items []Item
	for _, kw := range n.tables.SelfDescriptionKeywords {
		if strings.Contains(lower, kw) {
			items = append(items, Item{Text: "Self-described " + kw})
		}
	}
	return items
}

// Names returns the text of plain items, skipping structured ones.
func Names(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Text != "" {
			out = append(out, it.Text)
		}
	}
	return out
}

func splitComma(s string) []Item {
	parts := strings.Split(s, ",")
	items := make([]Item, 0, len(parts))
	for _, p := range parts {
		items = append(items, Item{Text: p})
	}
	return items
}

// dedupe trims text items, drops blanks and removes exact duplicates while
// keeping first-seen order. Structured items are kept as they are.
func dedupe(items []Item) []Item {
	seen := make(map[string]bool, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Attrs != nil || it.Raw != nil {
			out = append(out, it)
			continue
		}
		text := strings.TrimSpace(it.Text)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, Item{Text: text})
	}
	return out
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case bool:
		return !x
	}
	return false
}

// flattenText joins the string content of a value for keyword matching.
func flattenText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		return strings.Join(x, " ")
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, flattenText(e))
		}
		return strings.Join(parts, " ")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(x))
		for _, k := range keys {
			parts = append(parts, flattenText(x[k]))
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func firstScalar(raw map[string]any, fields []string) string {
	for _, field := range fields {
		switch v := raw[field].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}
