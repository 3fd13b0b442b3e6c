package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		skills    []Skill
		expected  []Issue
		hasErrors bool
	}{
		{
			name:   "clean catalog",
			skills: []Skill{{ID: "a", Name: "A", SourceURL: "https://github.com/o/r"}},
		},
		{
			name: "missing id",
			skills: []Skill{
				{ID: "a", Name: "A", SourceURL: "https://github.com/o/r"},
				{Name: "B", SourceURL: "https://github.com/o/r"},
			},
			expected:  []Issue{{Severity: SeverityError, Message: "skill at index 1 has no id"}},
			hasErrors: true,
		},
		{
			name: "duplicate id",
			skills: []Skill{
				{ID: "a", Name: "A", SourceURL: "https://github.com/o/r"},
				{ID: "a", Name: "B", SourceURL: "https://github.com/o/r"},
			},
			expected:  []Issue{{Severity: SeverityError, SkillID: "a", Message: "duplicate id (first seen at index 0, again at 1)"}},
			hasErrors: true,
		},
		{
			name:      "blank name",
			skills:    []Skill{{ID: "a", Name: "  ", SourceURL: "https://github.com/o/r"}},
			expected:  []Issue{{Severity: SeverityError, SkillID: "a", Message: "name is empty"}},
			hasErrors: true,
		},
		{
			name:     "missing source only warns",
			skills:   []Skill{{ID: "a", Name: "A"}},
			expected: []Issue{{Severity: SeverityWarning, SkillID: "a", Message: "sourceUrl is empty"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := Validate(tt.skills)
			assert.Equal(t, tt.expected, issues)
			assert.Equal(t, tt.hasErrors, HasErrors(issues))
		})
	}
}

func TestIssueString(t *testing.T) {
	assert.Equal(t, "error: a: name is empty", Issue{Severity: SeverityError, SkillID: "a", Message: "name is empty"}.String())
	assert.Equal(t, "warning: no skills", Issue{Severity: SeverityWarning, Message: "no skills"}.String())
}

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "array", doc["type"])
	assert.Equal(t, "openskills catalog", doc["title"])

	items, ok := doc["items"].(map[string]any)
	require.True(t, ok, "items should be inlined")
	props, ok := items["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"id", "name", "description", "category", "tags", "sourceUrl", "owner"} {
		assert.Contains(t, props, key)
	}
	assert.Equal(t, false, items["additionalProperties"])
}
