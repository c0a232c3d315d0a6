package assessment

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provenance records where a parameter value came from.
type Provenance string

const (
	ProvenanceExtracted Provenance = "extracted"
	ProvenanceConfirmed Provenance = "confirmed"
)

// Request is one inbound assessment request. It is immutable once bound;
// corrected values arrive as ConfirmedParameters on a fresh request, never
// as a patch of a previous one.
type Request struct {
	PatientText     string `json:"patient_text"`
	Query           string `json:"query"`
	AdditionalNotes string `json:"additional_notes,omitempty"`

	// ConfirmedParameters carries caller-verified values, typically re-sent
	// after a need_more_data response. They are validated against the
	// registry exactly like extracted values.
	ConfirmedParameters map[string]any `json:"confirmed_parameters,omitempty"`
}

// Validate rejects a request before the workflow starts.
func (r Request) Validate() error {
	if strings.TrimSpace(r.PatientText) == "" {
		return fmt.Errorf("patient_text is required")
	}
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query is required")
	}
	return nil
}

// ParamValue is one extracted or confirmed parameter value, already coerced
// to its registry type.
type ParamValue struct {
	Value      any        `json:"value"`
	Provenance Provenance `json:"provenance"`
}

// ParameterBag is the structured output of the intake stage. Treated as
// immutable once produced for an execution.
type ParameterBag struct {
	Values         map[string]ParamValue `json:"values"`
	ContextSummary string                `json:"context_summary"`
}

// Has reports whether a parameter is present in the bag.
func (b ParameterBag) Has(name string) bool {
	_, ok := b.Values[name]
	return ok
}

// Flat returns the plain name→value view used to build service payloads,
// restricted to the given parameter names.
func (b ParameterBag) Flat(names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		if pv, ok := b.Values[name]; ok {
			out[name] = pv.Value
		}
	}
	return out
}

// ModelReadiness is the completeness evaluation for one model.
type ModelReadiness struct {
	ModelID  string   `json:"model_id"`
	Runnable bool     `json:"runnable"`
	Missing  []string `json:"missing"`
}

// RoutingDecision selects the models to invoke. Invariant: every id in
// Selected is runnable; when Selected is empty and a relevant model was
// blocked only by missing data, Missing names that model's gaps.
type RoutingDecision struct {
	Selected       []string `json:"selected"`
	Missing        []string `json:"missing"`
	MissingModelID string   `json:"missing_model_id,omitempty"`
	Explanation    string   `json:"explanation"`
}

// Error tags on a PredictionRecord. Empty means the record is populated.
const (
	ErrTagUnreachable = "backend_unreachable"
	ErrTagUnparseable = "unparseable_response"
)

// PredictionRecord is the normalized result of one model invocation. Either
// label/probability are populated or ErrorTag is set; never a silent empty
// success.
type PredictionRecord struct {
	ModelID     string          `json:"model_id"`
	Label       *string         `json:"label"`
	Probability *float64        `json:"probability"`
	Explanation *string         `json:"explanation"`
	Raw         json.RawMessage `json:"raw,omitempty"`
	ErrorTag    string          `json:"error,omitempty"`
}

// Succeeded reports whether the record carries a usable prediction.
func (p PredictionRecord) Succeeded() bool {
	return p.ErrorTag == ""
}

// Status is the terminal outcome of one workflow execution.
type Status string

const (
	StatusComplete     Status = "complete"
	StatusNeedMoreData Status = "need_more_data"
	StatusError        Status = "error"
)

// Result is the externally visible artifact of one execution. Created once,
// never mutated after being returned.
type Result struct {
	ID                 uuid.UUID          `json:"id"`
	Status             Status             `json:"status"`
	MissingParameters  []string           `json:"missing_parameters"`
	Predictions        []PredictionRecord `json:"predictions"`
	Report             *string            `json:"report"`
	FollowUpQuestions  []string           `json:"follow_up_questions"`
	RoutingExplanation string             `json:"routing_explanation"`
	RoutingSummary     string             `json:"routing_summary"`
	Message            string             `json:"message,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}
