package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinassess/clinassess/internal/platform/llm"
	"github.com/clinassess/clinassess/internal/registry"
)

// Extractor turns free-form patient text into a ParameterBag.
type Extractor interface {
	Extract(ctx context.Context, req Request) (ParameterBag, error)
}

// LLMExtractor asks the completion backend to locate every registry
// parameter in the narrative. Each returned value is coerced to its declared
// type and checked against its domain; values that fail are discarded and
// logged, equivalent to "not present". The extractor never invents defaults.
type LLMExtractor struct {
	client llm.Client
	reg    *registry.Registry
	log    zerolog.Logger
}

func NewLLMExtractor(client llm.Client, reg *registry.Registry, log zerolog.Logger) *LLMExtractor {
	return &LLMExtractor{client: client, reg: reg, log: log}
}

const extractorSystemPrompt = `You are a clinical intake assistant. You read a patient narrative and ` +
	`return ONLY a JSON object of the form {"parameters": {...}, "context_summary": "..."}. ` +
	`Include a parameter only when the narrative states or clearly implies its value; never guess. ` +
	`context_summary is 2-3 plain sentences describing the case. No markdown, no extra keys.`

type extractionPayload struct {
	Parameters     map[string]any `json:"parameters"`
	ContextSummary string         `json:"context_summary"`
}

func (e *LLMExtractor) Extract(ctx context.Context, req Request) (ParameterBag, error) {
	prompt := e.buildPrompt(req)

	completion, err := e.client.Complete(ctx, extractorSystemPrompt, prompt)
	if err != nil {
		return ParameterBag{}, fmt.Errorf("%w: %v", ErrExtractionBackend, err)
	}

	var payload extractionPayload
	if err := llm.DecodeJSON(completion, &payload); err != nil {
		return ParameterBag{}, fmt.Errorf("%w: %v", ErrExtractionUnparseable, err)
	}

	bag := ParameterBag{
		Values:         map[string]ParamValue{},
		ContextSummary: strings.TrimSpace(payload.ContextSummary),
	}

	for name, raw := range payload.Parameters {
		spec, ok := e.reg.ParamAcrossModels(name)
		if !ok {
			e.log.Debug().Str("parameter", name).Msg("extractor returned unknown parameter, discarding")
			continue
		}
		v, err := spec.Coerce(raw)
		if err != nil {
			e.log.Debug().Str("parameter", name).Err(err).Msg("extracted value failed validation, discarding")
			continue
		}
		bag.Values[name] = ParamValue{Value: v, Provenance: ProvenanceExtracted}
	}

	mergeConfirmed(&bag, req, e.reg, e.log)
	return bag, nil
}

// mergeConfirmed overlays caller-verified values. Confirmed values go through
// the same coercion and domain checks; an invalid confirmed value is
// discarded like any other, it does not poison the bag.
func mergeConfirmed(bag *ParameterBag, req Request, reg *registry.Registry, log zerolog.Logger) {
	for name, raw := range req.ConfirmedParameters {
		spec, ok := reg.ParamAcrossModels(name)
		if !ok {
			log.Debug().Str("parameter", name).Msg("confirmed parameter unknown, discarding")
			continue
		}
		v, err := spec.Coerce(raw)
		if err != nil {
			log.Debug().Str("parameter", name).Err(err).Msg("confirmed value failed validation, discarding")
			continue
		}
		bag.Values[name] = ParamValue{Value: v, Provenance: ProvenanceConfirmed}
	}
}

func (e *LLMExtractor) buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Parameters to look for:\n")
	for _, name := range e.reg.ParameterNames() {
		spec, _ := e.reg.ParamAcrossModels(name)
		switch spec.Type {
		case registry.TypeNumeric:
			fmt.Fprintf(&b, "- %s: number between %g and %g\n", name, spec.Min, spec.Max)
		case registry.TypeEnum:
			fmt.Fprintf(&b, "- %s: one of %s\n", name, strings.Join(spec.Values, ", "))
		case registry.TypeBoolean:
			fmt.Fprintf(&b, "- %s: true or false\n", name)
		}
	}
	fmt.Fprintf(&b, "\nRequested assessment: %s\n", req.Query)
	fmt.Fprintf(&b, "\nPatient narrative:\n%s\n", req.PatientText)
	if req.AdditionalNotes != "" {
		fmt.Fprintf(&b, "\nAdditional notes:\n%s\n", req.AdditionalNotes)
	}
	return b.String()
}
