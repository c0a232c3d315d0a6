package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinassess/clinassess/internal/domain/assessment"
)

// =========== Mock Repository ===========

type mockRepo struct {
	store     map[uuid.UUID]*AssessmentRecord
	order     []uuid.UUID
	insertErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*AssessmentRecord)}
}

func (m *mockRepo) Insert(_ context.Context, r *AssessmentRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.store[r.ID] = r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*AssessmentRecord, error) {
	r, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*AssessmentRecord, int, error) {
	var result []*AssessmentRecord
	for i := len(m.order) - 1; i >= 0; i-- {
		result = append(result, m.store[m.order[i]])
	}
	total := len(result)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return result[offset:end], total, nil
}

// =========== Tests ===========

func completeResult() assessment.Result {
	label := "high_risk"
	prob := 0.82
	report := "Cardiovascular risk is high."
	return assessment.Result{
		ID:     uuid.New(),
		Status: assessment.StatusComplete,
		Predictions: []assessment.PredictionRecord{
			{ModelID: "cardiovascular", Label: &label, Probability: &prob},
		},
		Report:            &report,
		MissingParameters: []string{},
		FollowUpQuestions: []string{"Family history?"},
		RoutingSummary:    "1 of 3 models selected: cardiovascular",
		CreatedAt:         time.Now().UTC(),
	}
}

func TestRecord_StoresTerminalResult(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	req := assessment.Request{PatientText: "45-year-old male smoker", Query: "cardiovascular risk"}
	res := completeResult()
	svc.Record(context.Background(), req, res)

	rec, err := svc.Get(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != string(assessment.StatusComplete) {
		t.Errorf("status = %s", rec.Status)
	}
	if rec.Query != req.Query || rec.PatientText != req.PatientText {
		t.Error("request fields not persisted")
	}
	if rec.Report == nil || *rec.Report != *res.Report {
		t.Error("report not persisted")
	}
	if len(rec.Predictions) == 0 {
		t.Error("predictions not persisted")
	}
}

func TestRecord_PersistenceFailureIsSwallowed(t *testing.T) {
	repo := newMockRepo()
	repo.insertErr = fmt.Errorf("connection reset")
	svc := NewService(repo, zerolog.Nop())

	// Must not panic or propagate; the response was already computed.
	svc.Record(context.Background(), assessment.Request{Query: "q", PatientText: "n"}, completeResult())

	if len(repo.store) != 0 {
		t.Error("nothing should be stored on failure")
	}
}

func TestList_NewestFirstWithPaging(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	var last uuid.UUID
	for i := 0; i < 5; i++ {
		res := completeResult()
		last = res.ID
		svc.Record(context.Background(), assessment.Request{Query: "q", PatientText: "n"}, res)
	}

	items, total, err := svc.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("total = %d", total)
	}
	if len(items) != 2 {
		t.Fatalf("page size = %d", len(items))
	}
	if items[0].ID != last {
		t.Error("newest record should come first")
	}
}

func TestGet_UnknownID(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	if _, err := svc.Get(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected an error for an unknown id")
	}
}
