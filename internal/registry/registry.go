// Package registry holds the static parameter specifications for every
// supported risk-prediction model. The registry is assembled once at process
// start, validated, and read-only afterwards; every other component treats
// it as the single source of truth for parameter names, types, and domains.
package registry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ParamType is the semantic type of a clinical parameter.
type ParamType string

const (
	TypeNumeric ParamType = "numeric"
	TypeEnum    ParamType = "enum"
	TypeBoolean ParamType = "boolean"
)

// ParameterSpec describes one input of a prediction model.
type ParameterSpec struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Required bool      `json:"required"`

	// Numeric domain, inclusive. Ignored for non-numeric types.
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`

	// Enum domain. Ignored for non-enum types.
	Values []string `json:"values,omitempty"`
}

// ModelSpec describes one prediction model: its identity, inputs, and the
// scoring service that evaluates it.
type ModelSpec struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Target      string          `json:"target"`
	DefaultURL  string          `json:"default_url"`
	Parameters  []ParameterSpec `json:"parameters"`
}

// RequiredParams returns the names of required parameters in declaration order.
func (m ModelSpec) RequiredParams() []string {
	var out []string
	for _, p := range m.Parameters {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Param looks up a parameter spec by name.
func (m ModelSpec) Param(name string) (ParameterSpec, bool) {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// CheckValue reports whether v is inside the parameter's declared domain.
// v must already be coerced to the parameter's Go representation: float64
// for numeric, string for enum, bool for boolean.
func (p ParameterSpec) CheckValue(v any) error {
	switch p.Type {
	case TypeNumeric:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("parameter %s: expected numeric value, got %T", p.Name, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("parameter %s: value is not a finite number", p.Name)
		}
		if f < p.Min || f > p.Max {
			return fmt.Errorf("parameter %s: %s outside valid range [%s, %s]",
				p.Name, trimFloat(f), trimFloat(p.Min), trimFloat(p.Max))
		}
	case TypeEnum:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("parameter %s: expected enum value, got %T", p.Name, v)
		}
		for _, allowed := range p.Values {
			if strings.EqualFold(s, allowed) {
				return nil
			}
		}
		return fmt.Errorf("parameter %s: %q is not one of %v", p.Name, s, p.Values)
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("parameter %s: expected boolean value, got %T", p.Name, v)
		}
	default:
		return fmt.Errorf("parameter %s: unknown type %q", p.Name, p.Type)
	}
	return nil
}

// Coerce converts a loosely-typed value (as decoded from JSON or returned by
// an extraction backend) into the parameter's Go representation, then checks
// it against the declared domain. Strings are parsed for numeric and boolean
// parameters; enum values are normalized to the declared casing.
func (p ParameterSpec) Coerce(raw any) (any, error) {
	switch p.Type {
	case TypeNumeric:
		var f float64
		switch t := raw.(type) {
		case float64:
			f = t
		case int:
			f = float64(t)
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: cannot parse %q as number", p.Name, t)
			}
			f = parsed
		default:
			return nil, fmt.Errorf("parameter %s: cannot coerce %T to number", p.Name, raw)
		}
		if err := p.CheckValue(f); err != nil {
			return nil, err
		}
		return f, nil
	case TypeEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %s: cannot coerce %T to enum", p.Name, raw)
		}
		for _, allowed := range p.Values {
			if strings.EqualFold(strings.TrimSpace(s), allowed) {
				return allowed, nil
			}
		}
		return nil, fmt.Errorf("parameter %s: %q is not one of %v", p.Name, s, p.Values)
	case TypeBoolean:
		switch t := raw.(type) {
		case bool:
			return t, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "y", "1":
				return true, nil
			case "false", "no", "n", "0":
				return false, nil
			}
			return nil, fmt.Errorf("parameter %s: cannot parse %q as boolean", p.Name, t)
		case float64:
			if t == 0 || t == 1 {
				return t == 1, nil
			}
			return nil, fmt.Errorf("parameter %s: cannot coerce %v to boolean", p.Name, t)
		default:
			return nil, fmt.Errorf("parameter %s: cannot coerce %T to boolean", p.Name, raw)
		}
	}
	return nil, fmt.Errorf("parameter %s: unknown type %q", p.Name, p.Type)
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Registry is the read-only set of all ModelSpecs.
type Registry struct {
	models map[string]ModelSpec
	order  []string
}

// New builds a registry from the given specs and validates it. A malformed
// spec is a startup error; the caller is expected to refuse to run.
func New(specs []ModelSpec) (*Registry, error) {
	r := &Registry{models: make(map[string]ModelSpec, len(specs))}
	for _, m := range specs {
		if err := validateSpec(m); err != nil {
			return nil, fmt.Errorf("model %q: %w", m.ID, err)
		}
		if _, dup := r.models[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		r.models[m.ID] = m
		r.order = append(r.order, m.ID)
	}
	return r, nil
}

func validateSpec(m ModelSpec) error {
	if m.ID == "" {
		return fmt.Errorf("model id is required")
	}
	if m.Description == "" {
		return fmt.Errorf("description is required")
	}
	if m.Target == "" {
		return fmt.Errorf("invocation target is required")
	}
	seen := map[string]bool{}
	for _, p := range m.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		switch p.Type {
		case TypeNumeric:
			if p.Min >= p.Max {
				return fmt.Errorf("parameter %q: min must be below max", p.Name)
			}
		case TypeEnum:
			if len(p.Values) == 0 {
				return fmt.Errorf("parameter %q: enum requires at least one value", p.Name)
			}
		case TypeBoolean:
		default:
			return fmt.Errorf("parameter %q: unknown type %q", p.Name, p.Type)
		}
	}
	return nil
}

// Get returns the spec for the given model id.
func (r *Registry) Get(id string) (ModelSpec, bool) {
	m, ok := r.models[id]
	return m, ok
}

// All returns every spec in registration order.
func (r *Registry) All() []ModelSpec {
	out := make([]ModelSpec, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id])
	}
	return out
}

// ParameterNames returns the union of parameter names across all models,
// sorted, for prompting the extraction backend.
func (r *Registry) ParameterNames() []string {
	set := map[string]bool{}
	for _, m := range r.models {
		for _, p := range m.Parameters {
			set[p.Name] = true
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ParamAcrossModels finds the spec for a parameter name in any model. When a
// name is shared between models (age, sex) the first declaration wins; the
// default specs keep shared parameters identical across models.
func (r *Registry) ParamAcrossModels(name string) (ParameterSpec, bool) {
	for _, id := range r.order {
		if p, ok := r.models[id].Param(name); ok {
			return p, true
		}
	}
	return ParameterSpec{}, false
}
