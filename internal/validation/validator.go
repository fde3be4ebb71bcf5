package validation

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Field limits for ticket input.
const (
	TitleMinLength       = 5
	TitleMaxLength       = 100
	DescriptionMinLength = 20
	DescriptionMaxLength = 2000
	CommentMaxLength     = 5000
)

// Document names a schema.
type Document string

const (
	DocumentTicketCreate Document = "ticket_create"
	DocumentTicketUpdate Document = "ticket_update"
	DocumentComment      Document = "comment"
)

// Validator holds the compiled JSON schemas.
type Validator struct {
	schemas map[Document]*gojsonschema.Schema
}

// New compiles every schema.
func New() (*Validator, error) {
	sources := map[Document]map[string]any{
		DocumentTicketCreate: ticketCreateSchema(),
		DocumentTicketUpdate: ticketUpdateSchema(),
		DocumentComment:      commentSchema(),
	}
	v := &Validator{schemas: make(map[Document]*gojsonschema.Schema, len(sources))}
	for name, source := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(source))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// Validate checks doc against the named schema. Failures are returned as a
// VALIDATION_FAILED DomainError with one detail entry per offending field.
func (v *Validator) Validate(name Document, doc any) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", name, err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	details := make(map[string]any)
	fields := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		field := e.Field()
		if e.Type() == "required" {
			if property, ok := e.Details()["property"].(string); ok {
				field = property
			}
		}
		if _, seen := details[field]; seen {
			continue
		}
		details[field] = e.Description()
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return apperrors.NewValidationError(fmt.Sprintf("invalid %s: %v", name, fields), details)
}

func ticketCreateSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"title", "description", "priority", "department"},
		"properties": map[string]any{
			"title": map[string]any{
				"type":      "string",
				"minLength": TitleMinLength,
				"maxLength": TitleMaxLength,
			},
			"description": map[string]any{
				"type":      "string",
				"minLength": DescriptionMinLength,
				"maxLength": DescriptionMaxLength,
			},
			"priority":   map[string]any{"enum": enumValues(domain.TicketPriorities)},
			"department": map[string]any{"enum": enumValues(domain.Departments)},
		},
	}
}

func ticketUpdateSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status":   map[string]any{"enum": enumValues(domain.TicketStatuses)},
			"priority": map[string]any{"enum": enumValues(domain.TicketPriorities)},
			"rating": map[string]any{
				"type":    "integer",
				"minimum": domain.MinRating,
				"maximum": domain.MaxRating,
			},
			"assignedTo": map[string]any{
				"type":     "object",
				"required": []string{"id"},
				"properties": map[string]any{
					"id": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	}
}

func commentSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"content"},
		"properties": map[string]any{
			"content": map[string]any{
				"type":      "string",
				"minLength": 1,
				"maxLength": CommentMaxLength,
			},
		},
	}
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
