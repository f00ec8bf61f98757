package survey

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestNormalize_AliasesAccumulateInOrder(t *testing.T) {
	n := NewNormalizer(nil)
	out := n.Normalize(decode(t, `{
		"skills": ["Coding"],
		"strengths": ["Mathematics", "Curious"],
		"talents": "Curious, Drawing ,  "
	}`))

	assert.Equal(t, []string{"Mathematics", "Curious", "Coding", "Drawing"}, Names(out.Strengths))
}

func TestNormalize_DedupIsCaseSensitive(t *testing.T) {
	n := NewNormalizer(nil)
	out := n.Normalize(decode(t, `{"strengths": ["Curious", " Curious", "curious"]}`))

	assert.Equal(t, []string{"Curious", "curious"}, Names(out.Strengths))
}

func TestNormalize_ObjectField(t *testing.T) {
	n := NewNormalizer(nil)
	out := n.Normalize(decode(t, `{"hobbies": {"b": "Chess", "a": "Robotics", "c": 3, "d": ""}}`))

	require.Len(t, out.Interests, 3)
	assert.Equal(t, "Robotics", out.Interests[0].Text)
	assert.Equal(t, "Chess", out.Interests[1].Text)
	assert.Equal(t, float64(3), out.Interests[2].Raw)
}

func TestNormalize_StructuredItemsKept(t *testing.T) {
	n := NewNormalizer(nil)
	out := n.Normalize(decode(t, `{
		"paths": [{"path": "Engineering", "details": "Mechanical"}, "Medicine"]
	}`))

	require.Len(t, out.Goals, 2)
	assert.True(t, out.Goals[0].IsStructured())
	assert.Equal(t, "Engineering", out.Goals[0].Attrs["path"])
	assert.Equal(t, "Medicine", out.Goals[1].Text)
}

func TestNormalize_LearningStyle(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"absent", `{}`, ""},
		{"blank", `{"learningStyle": "  "}`, ""},
		{"visual", `{"learningStyle": "visual"}`, "Visual"},
		{"alias", `{"learnBest": "by listening"}`, "Auditory"},
		{"array", `{"learningPreferences": ["hands-on"]}`, "Kinesthetic"},
		{"unmatched", `{"studyStyle": "whatever works"}`, "Balanced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(decode(t, tt.raw)).LearningStyle)
		})
	}
}

func TestNormalize_MalformedFieldsDegrade(t *testing.T) {
	n := NewNormalizer(nil)
	out := n.Normalize(decode(t, `{"strengths": 42, "interests": null, "goals": true, "grade": 11}`))

	assert.Empty(t, out.Strengths)
	assert.Empty(t, out.Interests)
	assert.Empty(t, out.Goals)
	assert.Equal(t, "11", out.GradeLevel)
}

func TestNormalize_SelfDescription(t *testing.T) {
	n := NewNormalizer(nil)
	out := n.Normalize(decode(t, `{"strengths": ["Art"], "selfDescription": "I am talented and good at chess"}`))

	assert.Equal(t, []string{"Art", "Self-described good at", "Self-described talented"}, Names(out.Strengths))
}

func TestNormalize_BucketsSeparated(t *testing.T) {
	n := NewNormalizer(nil)
	out := n.Normalize(decode(t, `{
		"favoriteSubjects": "Physics",
		"clubs": ["Robotics"],
		"careerGoals": ["Engineer"],
		"struggles": ["Procrastination"]
	}`))

	assert.Equal(t, []string{"Physics"}, Names(out.AcademicInterests))
	assert.Equal(t, []string{"Robotics"}, Names(out.Extracurriculars))
	assert.Equal(t, []string{"Engineer"}, Names(out.CareerInterests))
	assert.Equal(t, []string{"Procrastination"}, Names(out.Challenges))
}
