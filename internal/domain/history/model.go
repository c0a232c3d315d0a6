package history

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AssessmentRecord is one persisted assessment execution: the request that
// started it and the terminal result it produced. Records are append-only;
// a corrected request produces a new record, never an update.
type AssessmentRecord struct {
	ID                 uuid.UUID       `json:"id"`
	Query              string          `json:"query"`
	PatientText        string          `json:"patient_text"`
	Status             string          `json:"status"`
	MissingParameters  []string        `json:"missing_parameters"`
	Predictions        json.RawMessage `json:"predictions"`
	Report             *string         `json:"report"`
	FollowUpQuestions  []string        `json:"follow_up_questions"`
	RoutingExplanation string          `json:"routing_explanation"`
	RoutingSummary     string          `json:"routing_summary"`
	Message            string          `json:"message,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}
