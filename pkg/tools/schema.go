package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// generateSchema reflects T's json/jsonschema struct tags into the
// map[string]any shape every Tool.Schema() exposes to the LLM, so each
// tool's argument struct is the single source of truth for its schema
// instead of a hand-duplicated literal.
func generateSchema[T any]() map[string]any {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("generate schema: %v", err))
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("generate schema: %v", err))
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
