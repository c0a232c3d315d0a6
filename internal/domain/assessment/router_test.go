package assessment

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptedJudge returns a fixed judgment.
type scriptedJudge struct {
	judgment Judgment
	err      error
}

func (s scriptedJudge) Judge(context.Context, string, string, []Candidate) (Judgment, error) {
	return s.judgment, s.err
}

func TestRouter_NeverSelectsNonRunnable(t *testing.T) {
	// The judge claims everything is relevant, including models that are
	// not runnable and one that does not exist.
	judge := scriptedJudge{judgment: Judgment{
		Relevant:    []string{"diabetes", "cardiovascular", "ghost_model", "diabetes"},
		Explanation: "all of them",
	}}
	readiness := []ModelReadiness{
		{ModelID: "cardiovascular", Runnable: true, Missing: []string{}},
		{ModelID: "diabetes", Runnable: false, Missing: []string{"bmi", "HbA1c_level"}},
		{ModelID: "general_wellness", Runnable: true, Missing: []string{}},
	}

	r := NewRouter(judge)
	d, err := r.Decide(context.Background(), "everything", "", readiness, testRegistry(t))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}

	if len(d.Selected) != 1 || d.Selected[0] != "cardiovascular" {
		t.Fatalf("expected only runnable cardiovascular, got %v", d.Selected)
	}
}

func TestRouter_MissingFromMostRelevantBlockedModel(t *testing.T) {
	judge := scriptedJudge{judgment: Judgment{
		Relevant: []string{"diabetes", "cardiovascular"},
	}}
	readiness := []ModelReadiness{
		{ModelID: "cardiovascular", Runnable: false, Missing: []string{"systolic_bp", "smoker"}},
		{ModelID: "diabetes", Runnable: false, Missing: []string{"bmi", "HbA1c_level", "blood_glucose_level"}},
	}

	r := NewRouter(judge)
	d, err := r.Decide(context.Background(), "diabetes risk", "", readiness, testRegistry(t))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}

	if len(d.Selected) != 0 {
		t.Fatalf("nothing should be selected, got %v", d.Selected)
	}
	if d.MissingModelID != "diabetes" {
		t.Errorf("missing params must come from the most relevant model, got %q", d.MissingModelID)
	}
	want := []string{"bmi", "HbA1c_level", "blood_glucose_level"}
	if len(d.Missing) != len(want) {
		t.Fatalf("missing = %v, want %v (never the union across models)", d.Missing, want)
	}
	for i := range want {
		if d.Missing[i] != want[i] {
			t.Errorf("missing[%d] = %q, want %q", i, d.Missing[i], want[i])
		}
	}
}

func TestRouter_NoRelevantModel(t *testing.T) {
	judge := scriptedJudge{judgment: Judgment{Relevant: []string{}}}
	readiness := []ModelReadiness{
		{ModelID: "cardiovascular", Runnable: true, Missing: []string{}},
	}

	r := NewRouter(judge)
	d, err := r.Decide(context.Background(), "skin rash advice", "", readiness, testRegistry(t))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}

	if len(d.Selected) != 0 {
		t.Errorf("no model should be selected, got %v", d.Selected)
	}
	if len(d.Missing) != 0 {
		t.Errorf("no-relevant-model must not report missing params, got %v", d.Missing)
	}
	if !strings.Contains(d.Explanation, "no applicable model") {
		t.Errorf("explanation should state no applicable model, got %q", d.Explanation)
	}
}

func TestRouter_JudgeFailureIsNotNoMatch(t *testing.T) {
	judge := scriptedJudge{err: errors.New("upstream 500")}
	r := NewRouter(judge)

	_, err := r.Decide(context.Background(), "q", "", []ModelReadiness{}, testRegistry(t))
	if !errors.Is(err, ErrRoutingBackend) {
		t.Fatalf("a failed judge must surface ErrRoutingBackend, got %v", err)
	}
}

func TestKeywordJudge_RanksByOverlap(t *testing.T) {
	reg := testRegistry(t)
	var candidates []Candidate
	for _, m := range reg.All() {
		candidates = append(candidates, Candidate{ID: m.ID, Description: m.Description})
	}

	j, err := KeywordJudge{}.Judge(context.Background(), "diabetes risk screening", "", candidates)
	if err != nil {
		t.Fatal(err)
	}
	if len(j.Relevant) == 0 || j.Relevant[0] != "diabetes" {
		t.Fatalf("diabetes should rank first for a diabetes query, got %v", j.Relevant)
	}
}

func TestKeywordJudge_NoMatch(t *testing.T) {
	reg := testRegistry(t)
	var candidates []Candidate
	for _, m := range reg.All() {
		candidates = append(candidates, Candidate{ID: m.ID, Description: m.Description})
	}

	j, err := KeywordJudge{}.Judge(context.Background(), "skin rash advice", "", candidates)
	if err != nil {
		t.Fatal(err)
	}
	if len(j.Relevant) != 0 {
		t.Fatalf("unrelated query must match nothing, got %v", j.Relevant)
	}
}

func TestKeywordJudge_Deterministic(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Description: "cardiovascular heart risk"},
		{ID: "b", Description: "cardiovascular vascular risk"},
	}
	first, _ := KeywordJudge{}.Judge(context.Background(), "cardiovascular risk", "", candidates)
	for i := 0; i < 10; i++ {
		again, _ := KeywordJudge{}.Judge(context.Background(), "cardiovascular risk", "", candidates)
		if len(again.Relevant) != len(first.Relevant) {
			t.Fatal("judgment length changed between runs")
		}
		for k := range first.Relevant {
			if again.Relevant[k] != first.Relevant[k] {
				t.Fatalf("judgment order changed between runs: %v vs %v", first.Relevant, again.Relevant)
			}
		}
	}
}

func TestLLMJudge_ValidatedDownstream(t *testing.T) {
	client := &mockLLM{completion: `{"relevant_models": ["cardiovascular"], "explanation": "query names the heart"}`}
	j := NewLLMJudge(client)

	out, err := j.Judge(context.Background(), "heart attack risk", "", []Candidate{
		{ID: "cardiovascular", Description: "heart"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Relevant) != 1 || out.Relevant[0] != "cardiovascular" {
		t.Fatalf("unexpected judgment %v", out)
	}
}

func TestLLMJudge_GarbageCompletion(t *testing.T) {
	client := &mockLLM{completion: "sure! the best model is cardiovascular"}
	j := NewLLMJudge(client)

	if _, err := j.Judge(context.Background(), "q", "", nil); err == nil {
		t.Fatal("non-JSON judgment must fail, not silently select nothing")
	}
}
