package document

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema constrains structured JSON input: the root must be an
// object, and every show_on field anywhere in the tree must be a string,
// a list of strings, or null.
const documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"allOf": [
		{"type": "object"},
		{"$ref": "#/definitions/node"}
	],
	"definitions": {
		"node": {
			"anyOf": [
				{"type": ["string", "number", "boolean", "null"]},
				{"type": "array", "items": {"$ref": "#/definitions/node"}},
				{
					"type": "object",
					"properties": {
						"show_on": {"$ref": "#/definitions/tags"}
					},
					"additionalProperties": {"$ref": "#/definitions/node"}
				}
			]
		},
		"tags": {
			"anyOf": [
				{"type": "string"},
				{"type": "array", "items": {"type": "string"}},
				{"type": "null"}
			]
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// ValidateJSONDocument checks structured JSON input against the document
// schema before it enters the pipeline.
func ValidateJSONDocument(jsonText string) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(jsonText))
	if err != nil {
		return &DataError{Message: "failed to validate JSON document", Cause: err}
	}
	if result.Valid() {
		return nil
	}
	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	return &DataError{Message: "invalid document: " + strings.Join(messages, "; ")}
}
