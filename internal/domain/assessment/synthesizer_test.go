package assessment

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSynthesize_PromptCoversEveryRecord(t *testing.T) {
	client := &mockLLM{completion: `{"report": "Both models were evaluated.", "follow_up_questions": []}`}
	s := NewLLMSynthesizer(client)

	prob := 0.82
	label := "high_risk"
	records := []PredictionRecord{
		{ModelID: "cardiovascular", Label: &label, Probability: &prob},
		{ModelID: "diabetes", ErrorTag: ErrTagUnreachable},
	}

	if _, err := s.Synthesize(context.Background(), "overall risk", "male smoker, 45", records); err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	for _, want := range []string{"cardiovascular", "high_risk", "0.820", "diabetes", "could not be evaluated", ErrTagUnreachable} {
		if !strings.Contains(client.lastUser, want) {
			t.Errorf("prompt does not mention %q", want)
		}
	}
}

func TestSynthesize_ParsesReport(t *testing.T) {
	client := &mockLLM{completion: "```json\n" +
		`{"report": "Cardiovascular risk is high (82%).", "follow_up_questions": ["When was the last lipid panel?"]}` +
		"\n```"}
	s := NewLLMSynthesizer(client)

	report, err := s.Synthesize(context.Background(), "q", "ctx", nil)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !strings.Contains(report.Text, "82%") {
		t.Errorf("unexpected report text %q", report.Text)
	}
	if len(report.FollowUpQuestions) != 1 {
		t.Errorf("expected one follow-up question, got %v", report.FollowUpQuestions)
	}
}

func TestSynthesize_NilQuestionsBecomeEmpty(t *testing.T) {
	client := &mockLLM{completion: `{"report": "ok"}`}
	s := NewLLMSynthesizer(client)

	report, err := s.Synthesize(context.Background(), "q", "ctx", nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.FollowUpQuestions == nil {
		t.Error("follow-up questions must be an empty list, not null")
	}
}

func TestSynthesize_BackendFailure(t *testing.T) {
	client := &mockLLM{err: errors.New("timeout")}
	s := NewLLMSynthesizer(client)

	if _, err := s.Synthesize(context.Background(), "q", "ctx", nil); !errors.Is(err, ErrSynthesisBackend) {
		t.Fatalf("expected ErrSynthesisBackend, got %v", err)
	}
}

func TestSynthesize_EmptyReportIsFailure(t *testing.T) {
	client := &mockLLM{completion: `{"report": "  ", "follow_up_questions": []}`}
	s := NewLLMSynthesizer(client)

	if _, err := s.Synthesize(context.Background(), "q", "ctx", nil); !errors.Is(err, ErrSynthesisBackend) {
		t.Fatalf("a blank report is not a usable synthesis, got %v", err)
	}
}
