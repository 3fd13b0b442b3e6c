package catalog

import "github.com/invopop/jsonschema"

// Schema describes the catalog file: a JSON array of skills.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect([]Skill{})
	schema.Title = "openskills catalog"
	return schema
}
