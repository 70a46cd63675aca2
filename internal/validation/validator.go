// Package validation validates raw JSON params against the draft-07 subset
// of JSON Schema this core declares via protocol.InputSchema (spec.md §4.9).
package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/richard-senior/mcp/pkg/protocol"
)

// Severity of a validation finding.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Finding is one schema violation.
type Finding struct {
	Path     string   `json:"path"`
	Message  string   `json:"message"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
}

// Mode controls what happens when Findings are produced.
type Mode int

const (
	// Strict: any error-severity finding prevents dispatch.
	Strict Mode = iota
	// Lenient: findings are returned for logging but dispatch proceeds.
	Lenient
)

// Validator owns the method->schema registry used to validate request
// params, and is also used directly (without a method lookup) to validate
// tool call arguments against a tool's declared InputSchema.
type Validator struct {
	mode Mode

	mu      sync.RWMutex
	schemas map[string]protocol.InputSchema
}

// New builds a Validator in the given mode.
func New(mode Mode) *Validator {
	return &Validator{mode: mode, schemas: make(map[string]protocol.InputSchema)}
}

// Register associates method with schema. Re-registering a method replaces
// its schema.
func (v *Validator) Register(method string, schema protocol.InputSchema) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemas[method] = schema
}

// SchemaFor returns the schema registered for method, if any.
func (v *Validator) SchemaFor(method string) (protocol.InputSchema, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.schemas[method]
	return s, ok
}

// ValidateMethod validates raw params against method's registered schema. If
// no schema is registered for method, validation passes trivially (methods
// opt in to validation by registering a schema).
func (v *Validator) ValidateMethod(method string, raw json.RawMessage) ([]Finding, error) {
	schema, ok := v.SchemaFor(method)
	if !ok {
		return nil, nil
	}
	return v.Validate(schema, raw)
}

// Validate validates raw against schema directly, used both for per-method
// params and for tool-call arguments (spec.md §4.5's ValidatedToolWrapper).
func (v *Validator) Validate(schema protocol.InputSchema, raw json.RawMessage) ([]Finding, error) {
	var value any
	if len(raw) == 0 {
		value = map[string]any{}
	} else if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	var findings []Finding
	walkObject("", schema.Type, schema.Properties, schema.Required, schema.AdditionalProperties, value, &findings)
	sort.Slice(findings, func(i, j int) bool { return findings[i].Path < findings[j].Path })
	return findings, nil
}

// Strict reports whether the validator is configured in strict mode.
func (v *Validator) Strict() bool { return v.mode == Strict }

func walkObject(path, typ string, props map[string]protocol.SchemaProp, required []string, additional bool, value any, out *[]Finding) {
	if typ != "" && typ != "object" {
		walkScalar(path, typ, nil, value, out)
		return
	}
	obj, ok := value.(map[string]any)
	if !ok {
		*out = append(*out, Finding{Path: pathOrRoot(path), Message: "expected an object", Code: "type", Severity: SeverityError})
		return
	}
	for _, name := range required {
		if _, present := obj[name]; !present {
			*out = append(*out, Finding{
				Path:     joinPath(path, name),
				Message:  fmt.Sprintf("missing required property %q", name),
				Code:     "required",
				Severity: SeverityError,
			})
		}
	}
	for name, v := range obj {
		prop, known := props[name]
		if !known {
			if !additional {
				*out = append(*out, Finding{
					Path:     joinPath(path, name),
					Message:  fmt.Sprintf("unexpected property %q", name),
					Code:     "additionalProperties",
					Severity: SeverityError,
				})
			}
			continue
		}
		walkProp(joinPath(path, name), prop, v, out)
	}
}

func walkProp(path string, prop protocol.SchemaProp, value any, out *[]Finding) {
	switch prop.Type {
	case "object":
		walkObject(path, "object", prop.Properties, prop.Required, true, value, out)
	case "array":
		arr, ok := value.([]any)
		if !ok {
			*out = append(*out, Finding{Path: path, Message: "expected an array", Code: "type", Severity: SeverityError})
			return
		}
		if prop.Items != nil {
			for i, item := range arr {
				walkProp(fmt.Sprintf("%s[%d]", path, i), *prop.Items, item, out)
			}
		}
	default:
		walkScalar(path, prop.Type, prop.Enum, value, out)
	}
}

func walkScalar(path, typ string, enum []string, value any, out *[]Finding) {
	if typ != "" && !scalarMatches(typ, value) {
		*out = append(*out, Finding{
			Path:     pathOrRoot(path),
			Message:  fmt.Sprintf("expected type %q", typ),
			Code:     "type",
			Severity: SeverityError,
		})
		return
	}
	if len(enum) > 0 {
		s, ok := value.(string)
		if !ok || !contains(enum, s) {
			*out = append(*out, Finding{
				Path:     pathOrRoot(path),
				Message:  fmt.Sprintf("value must be one of %v", enum),
				Code:     "enum",
				Severity: SeverityError,
			})
		}
	}
}

func scalarMatches(typ string, value any) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "number", "integer":
		_, ok := value.(float64)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "null":
		return value == nil
	default:
		return true
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func pathOrRoot(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
