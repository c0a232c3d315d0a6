package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinassess/clinassess/internal/platform/llm"
)

// Report is the synthesized narrative plus clinician follow-up questions.
type Report struct {
	Text              string   `json:"report"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// Synthesizer turns prediction records into a clinician-facing report. Every
// record with a score must appear in the narrative; records with only an
// error tag must be acknowledged, not dropped.
type Synthesizer interface {
	Synthesize(ctx context.Context, query, contextSummary string, records []PredictionRecord) (Report, error)
}

// LLMSynthesizer generates the narrative through the completion backend.
type LLMSynthesizer struct {
	client llm.Client
}

func NewLLMSynthesizer(client llm.Client) *LLMSynthesizer {
	return &LLMSynthesizer{client: client}
}

const synthesizerSystemPrompt = `You write concise clinical risk summaries for clinicians. Return ONLY a ` +
	`JSON object {"report": "...", "follow_up_questions": ["...", ...]}. The report is markdown prose ` +
	`that covers every model result listed, including a sentence acknowledging any model that could ` +
	`not be evaluated. State probabilities as percentages. Do not give treatment advice. ` +
	`follow_up_questions are 0-5 short questions a clinician should ask next.`

func (s *LLMSynthesizer) Synthesize(ctx context.Context, query, contextSummary string, records []PredictionRecord) (Report, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Assessment request: %s\n\nCase summary: %s\n\nModel results:\n", query, contextSummary)
	for _, r := range records {
		if r.Succeeded() {
			fmt.Fprintf(&b, "- %s: label=%s", r.ModelID, deref(r.Label))
			if r.Probability != nil {
				fmt.Fprintf(&b, " probability=%.3f", *r.Probability)
			}
			if r.Explanation != nil {
				fmt.Fprintf(&b, " (%s)", *r.Explanation)
			}
			b.WriteString("\n")
		} else {
			fmt.Fprintf(&b, "- %s: could not be evaluated (%s)\n", r.ModelID, r.ErrorTag)
		}
	}

	completion, err := s.client.Complete(ctx, synthesizerSystemPrompt, b.String())
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrSynthesisBackend, err)
	}

	var report Report
	if err := llm.DecodeJSON(completion, &report); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrSynthesisBackend, err)
	}
	if strings.TrimSpace(report.Text) == "" {
		return Report{}, fmt.Errorf("%w: empty report", ErrSynthesisBackend)
	}
	if report.FollowUpQuestions == nil {
		report.FollowUpQuestions = []string{}
	}
	return report, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
