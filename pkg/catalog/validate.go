package catalog

import (
	"fmt"
	"strings"
)

// Severity grades a catalog Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found while checking a catalog.
type Issue struct {
	Severity Severity `json:"severity"`
	SkillID  string   `json:"skillId,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.SkillID == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.SkillID, i.Message)
}

// Validate checks the records themselves: ids must be present and unique and
// every skill needs a name. A missing source URL only warns, since such a
// skill can be served but not synced.
func Validate(skills []Skill) []Issue {
	var issues []Issue
	seen := make(map[string]int, len(skills))

	for i, skill := range skills {
		if strings.TrimSpace(skill.ID) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("skill at index %d has no id", i),
			})
			continue
		}

		if first, ok := seen[skill.ID]; ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				SkillID:  skill.ID,
				Message:  fmt.Sprintf("duplicate id (first seen at index %d, again at %d)", first, i),
			})
		} else {
			seen[skill.ID] = i
		}

		if strings.TrimSpace(skill.Name) == "" {
			issues = append(issues, Issue{Severity: SeverityError, SkillID: skill.ID, Message: "name is empty"})
		}
		if strings.TrimSpace(skill.SourceURL) == "" {
			issues = append(issues, Issue{Severity: SeverityWarning, SkillID: skill.ID, Message: "sourceUrl is empty"})
		}
	}

	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
