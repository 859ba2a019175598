package analysis

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
)

// schema binds a record type to its validator and the system prompt used to repair output
// that failed validation.
type schema[T any] struct {
	name     string
	validate func(string) (T, error)
	repair   string
}

// newSchema renders T's JSON Schema into the repair prompt so the repair call sees the exact
// shape and bounds the validator enforces.
func newSchema[T any](name string, validate func(string) (T, error), repairHeader string) schema[T] {
	return schema[T]{
		name:     name,
		validate: validate,
		repair:   composeRepairPrompt(repairHeader, SchemaJSON[T]()),
	}
}

// parse extracts and validates raw model output.
func (s schema[T]) parse(raw string) (T, error) {
	var zero T
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return zero, err
	}
	return s.validate(obj)
}

var (
	analysisSchema  = newSchema("analysis", ValidateAnalysis, repairAnalysisHeader)
	signalsSchema   = newSchema("signals", validateSignals, repairSignalsHeader)
	narrativeSchema = newSchema("narrative", validateNarrative, repairNarrativeHeader)
	weeklySchema    = newSchema("weekly_report", ValidateWeeklyReport, repairWeeklyHeader)
	languageSchema  = newSchema("language", validateLanguage, repairLanguageHeader)
	textSchema      = newSchema("translate_text", validateText, repairTextHeader)
	linesSchema     = newSchema("translate_lines", validateLines, repairLinesHeader)
)

// GenerateSchema reflects T into a closed JSON Schema map: every object disallows unknown
// properties and lists all of its properties as required.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	m, err := schemaToMap(reflector.Reflect(v))
	if err != nil {
		panic(err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	closeObjects(m)
	return m
}

// SchemaJSON is GenerateSchema rendered as compact JSON.
func SchemaJSON[T any]() string {
	b, err := json.Marshal(GenerateSchema[T]())
	if err != nil {
		panic(err)
	}
	return string(b)
}

func schemaToMap(s *jsonschema.Schema) (map[string]any, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

func closeObjects(s map[string]any) {
	if t, ok := s[typeKey].(string); ok && t == "object" {
		s[additionalPropertiesKey] = false
		if props, ok := s[propertiesKey].(map[string]any); ok && len(props) > 0 {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			sort.Strings(required)
			s[requiredKey] = required
		}
	}
	if props, ok := s[propertiesKey].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				closeObjects(pm)
			}
		}
	}
	if items, ok := s[itemsKey].(map[string]any); ok {
		closeObjects(items)
	}
}
