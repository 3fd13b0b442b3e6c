// Package catalog holds the read-only set of skill records served by the API.
// A Repository is loaded once from a bundled data file (JSON or YAML) and is
// injected into the components that list, filter and score skills.
package catalog

// Skill is one entry of the catalog. Its ID names exactly one directory under
// the skills root.
type Skill struct {
	ID          string   `json:"id" yaml:"id" jsonschema:"description=Opaque identifier; also the directory name under the skills root"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Category    string   `json:"category" yaml:"category"`
	Tags        []string `json:"tags" yaml:"tags"`
	SourceURL   string   `json:"sourceUrl" yaml:"sourceUrl" jsonschema:"format=uri"`
	Owner       string   `json:"owner" yaml:"owner"`
}

// Repository is a read-only view over the catalog.
type Repository interface {
	// All returns every skill in catalog order. Callers must not mutate the result.
	All() []Skill
	// Get returns the first skill with the given id.
	Get(id string) (Skill, bool)
}

// Catalog is the in-memory Repository implementation.
type Catalog struct {
	skills []Skill
	byID   map[string]int
}

// New builds a Catalog from skills, preserving their order. When ids repeat,
// Get resolves to the earliest entry.
func New(skills []Skill) *Catalog {
	c := &Catalog{
		skills: make([]Skill, len(skills)),
		byID:   make(map[string]int, len(skills)),
	}
	for i, s := range skills {
		if s.Tags == nil {
			s.Tags = []string{}
		}
		c.skills[i] = s
		if _, exists := c.byID[s.ID]; !exists {
			c.byID[s.ID] = i
		}
	}
	return c
}

// All returns every skill in catalog order.
func (c *Catalog) All() []Skill {
	return c.skills
}

// Get returns the skill with the given id.
func (c *Catalog) Get(id string) (Skill, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Skill{}, false
	}
	return c.skills[i], true
}

// Len returns the number of skills in the catalog.
func (c *Catalog) Len() int {
	return len(c.skills)
}
