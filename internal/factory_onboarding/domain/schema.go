package domain

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	schemaOnce sync.Once
	schemaJSON string
)

// CandidateSchema is the JSON schema of Factory, sent to the text
// understanding service as the shape it should produce.
func CandidateSchema() string {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			AllowAdditionalProperties: true,
			DoNotReference:            true,
		}
		s := r.Reflect(&Factory{})
		s.Title = "factory"
		b, err := json.Marshal(s)
		if err != nil {
			panic(err)
		}
		schemaJSON = string(b)
	})
	return schemaJSON
}
