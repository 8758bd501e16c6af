package registry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hookline/hookline/pkg/models"
)

// metadataSchemas describes the metadata payload each node kind
// accepts. Served to editors and used to validate inbound node
// definitions before they reach the graph layer.
var metadataSchemas = map[models.NodeKind]map[string]any{
	models.NodeKindManual: {
		"type":                 "object",
		"additionalProperties": false,
	},
	models.NodeKindWebhook: {
		"type":                 "object",
		"additionalProperties": false,
	},
	models.NodeKindSchedule: {
		"type":     "object",
		"required": []any{"cron"},
		"properties": map[string]any{
			"cron": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Cron expression the trigger fires on",
			},
		},
	},
	models.NodeKindEmail: {
		"type":     "object",
		"required": []any{"to", "subject", "message"},
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"format":      "email",
				"description": "Recipient address",
			},
			"subject": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"message": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
		},
	},
	models.NodeKindTelegram: {
		"type":     "object",
		"required": []any{"chat_id", "message"},
		"properties": map[string]any{
			"chat_id": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Telegram chat identifier",
			},
			"message": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
		},
	},
}

// MetadataSchema returns the JSON Schema for a node kind's metadata.
func MetadataSchema(kind models.NodeKind) (map[string]any, bool) {
	schema, ok := metadataSchemas[kind]

	return schema, ok
}

// ValidateMetadata checks a raw metadata payload against the node
// kind's schema before the node is accepted into a workflow.
func ValidateMetadata(kind models.NodeKind, metadata map[string]any) error {
	schema, ok := metadataSchemas[kind]
	if !ok {
		return fmt.Errorf("unknown node kind %q", kind)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(metadata)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("metadata validation errors: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
