package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ListRequest holds the optional filters of a catalog listing. Empty fields
// are ignored.
type ListRequest struct {
	// Query is matched as a case-insensitive substring of "name description".
	Query string
	// Owner, Category and Tag are case-insensitive exact matches.
	Owner    string
	Category string
	Tag      string
}

// ListResponse is the listing payload.
type ListResponse struct {
	Skills []Skill `json:"skills"`
	Count  int     `json:"count"`
}

// List filters repo by req and sorts the result by name using locale-aware
// collation.
func List(repo Repository, req ListRequest) *ListResponse {
	query := strings.ToLower(req.Query)
	owner := strings.ToLower(req.Owner)
	category := strings.ToLower(req.Category)
	tag := strings.ToLower(req.Tag)

	skills := make([]Skill, 0, len(repo.All()))
	for _, skill := range repo.All() {
		if query != "" {
			searchable := strings.ToLower(skill.Name + " " + skill.Description)
			if !strings.Contains(searchable, query) {
				continue
			}
		}
		if owner != "" && strings.ToLower(skill.Owner) != owner {
			continue
		}
		if category != "" && strings.ToLower(skill.Category) != category {
			continue
		}
		if tag != "" && !hasTag(skill, tag) {
			continue
		}
		skills = append(skills, skill)
	}

	SortByName(skills)

	return &ListResponse{
		Skills: skills,
		Count:  len(skills),
	}
}

func hasTag(skill Skill, tag string) bool {
	for _, t := range skill.Tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

// SortByName sorts skills in place by name. Collators are not safe for
// concurrent use, so each call builds its own.
func SortByName(skills []Skill) {
	c := collate.New(language.Und)
	sort.SliceStable(skills, func(i, j int) bool {
		return c.CompareString(skills[i].Name, skills[j].Name) < 0
	})
}

// Facets lists the distinct filter values present in a catalog.
type Facets struct {
	Owners     []string `json:"owners"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
}

// BuildFacets collects distinct owners, categories and tags. Values are
// de-duplicated case-insensitively, keeping the first spelling seen.
func BuildFacets(repo Repository) *Facets {
	owners := newValueSet()
	categories := newValueSet()
	tags := newValueSet()

	for _, skill := range repo.All() {
		owners.add(skill.Owner)
		categories.add(skill.Category)
		for _, t := range skill.Tags {
			tags.add(t)
		}
	}

	return &Facets{
		Owners:     owners.sorted(),
		Categories: categories.sorted(),
		Tags:       tags.sorted(),
	}
}

type valueSet struct {
	seen   map[string]struct{}
	values []string
}

func newValueSet() *valueSet {
	return &valueSet{seen: make(map[string]struct{})}
}

func (v *valueSet) add(value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	key := strings.ToLower(value)
	if _, ok := v.seen[key]; ok {
		return
	}
	v.seen[key] = struct{}{}
	v.values = append(v.values, value)
}

func (v *valueSet) sorted() []string {
	out := make([]string, len(v.values))
	copy(out, v.values)
	collate.New(language.Und).SortStrings(out)
	return out
}
