package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinassess/clinassess/internal/domain/assessment"
)

// Service persists and serves assessment history. Its Record method
// implements the recorder hook of the assessment workflow; persistence
// failures are logged and swallowed so a broken database never breaks
// a response that was already computed.
type Service struct {
	records Repository
	log     zerolog.Logger
}

func NewService(records Repository, log zerolog.Logger) *Service {
	return &Service{records: records, log: log}
}

// Record stores one terminal assessment result.
func (s *Service) Record(ctx context.Context, req assessment.Request, res assessment.Result) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	predictions, err := json.Marshal(res.Predictions)
	if err != nil {
		s.log.Warn().Err(err).Stringer("assessment_id", res.ID).Msg("could not encode predictions for history")
		predictions = []byte("[]")
	}

	rec := &AssessmentRecord{
		ID:                 res.ID,
		Query:              req.Query,
		PatientText:        req.PatientText,
		Status:             string(res.Status),
		MissingParameters:  res.MissingParameters,
		Predictions:        predictions,
		Report:             res.Report,
		FollowUpQuestions:  res.FollowUpQuestions,
		RoutingExplanation: res.RoutingExplanation,
		RoutingSummary:     res.RoutingSummary,
		Message:            res.Message,
		CreatedAt:          res.CreatedAt,
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		s.log.Warn().Err(err).Stringer("assessment_id", res.ID).Msg("could not persist assessment record")
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AssessmentRecord, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*AssessmentRecord, int, error) {
	return s.records.List(ctx, limit, offset)
}
