package assessment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/clinassess/clinassess/internal/platform/llm"
	"github.com/clinassess/clinassess/internal/registry"
)

// Candidate is one model as presented to the relevance judge.
type Candidate struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Runnable    bool     `json:"runnable"`
	Missing     []string `json:"missing,omitempty"`
}

// Judgment is the judge's raw opinion: model ids ordered most-relevant
// first, regardless of runnability. The Router validates it before anything
// is trusted.
type Judgment struct {
	Relevant    []string `json:"relevant_models"`
	Explanation string   `json:"explanation"`
}

// RelevanceJudge decides which candidate models speak to the query.
type RelevanceJudge interface {
	Judge(ctx context.Context, query, contextSummary string, candidates []Candidate) (Judgment, error)
}

// Router produces the RoutingDecision. Whatever the judge returns, a model
// enters the selected set only if the completeness evaluation flagged it
// runnable; judge output naming unknown models is dropped.
type Router struct {
	judge RelevanceJudge
}

func NewRouter(judge RelevanceJudge) *Router {
	return &Router{judge: judge}
}

func (r *Router) Decide(ctx context.Context, query, contextSummary string, readiness []ModelReadiness, reg *registry.Registry) (RoutingDecision, error) {
	byID := make(map[string]ModelReadiness, len(readiness))
	candidates := make([]Candidate, 0, len(readiness))
	for _, rd := range readiness {
		byID[rd.ModelID] = rd
		spec, ok := reg.Get(rd.ModelID)
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:          rd.ModelID,
			Description: spec.Description,
			Runnable:    rd.Runnable,
			Missing:     rd.Missing,
		})
	}

	judgment, err := r.judge.Judge(ctx, query, contextSummary, candidates)
	if err != nil {
		// A failed judge is a failed routing step, never an implicit
		// "nothing matched" decision.
		return RoutingDecision{}, fmt.Errorf("%w: %v", ErrRoutingBackend, err)
	}

	decision := RoutingDecision{Selected: []string{}, Missing: []string{}}

	var relevantBlocked []ModelReadiness
	seen := map[string]bool{}
	for _, id := range judgment.Relevant {
		rd, known := byID[id]
		if !known || seen[id] {
			continue
		}
		seen[id] = true
		if rd.Runnable {
			decision.Selected = append(decision.Selected, id)
		} else {
			relevantBlocked = append(relevantBlocked, rd)
		}
	}

	switch {
	case len(decision.Selected) > 0:
		decision.Explanation = judgment.Explanation
		if decision.Explanation == "" {
			decision.Explanation = fmt.Sprintf("selected %s for %q", strings.Join(decision.Selected, ", "), query)
		}
	case len(relevantBlocked) > 0:
		// Report gaps from the single most relevant blocked model, not the
		// union across all models.
		top := relevantBlocked[0]
		decision.Missing = append(decision.Missing, top.Missing...)
		decision.MissingModelID = top.ModelID
		decision.Explanation = fmt.Sprintf(
			"%s is applicable to %q but cannot run without: %s",
			top.ModelID, query, strings.Join(top.Missing, ", "))
	default:
		decision.Explanation = fmt.Sprintf("no applicable model found for %q", query)
	}

	return decision, nil
}

// ---------------------------------------------------------------------------
// Keyword judge
// ---------------------------------------------------------------------------

// KeywordJudge is the deterministic relevance judge: token overlap between
// the query (plus context summary) and each model description. It backs
// ROUTER_MODE=keyword and the tests.
type KeywordJudge struct{}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "from": true, "his": true,
	"her": true, "in": true, "is": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "with": true, "please": true, "patient": true,
	"assessment": true, "assess": true, "check": true, "evaluate": true,
}

func (KeywordJudge) Judge(_ context.Context, query, contextSummary string, candidates []Candidate) (Judgment, error) {
	queryTokens := tokenize(query)
	contextTokens := tokenize(contextSummary)

	type scored struct {
		id    string
		score int
	}
	var ranked []scored
	for _, c := range candidates {
		descTokens := tokenize(c.Description)
		score := overlap(queryTokens, descTokens)*2 + overlap(contextTokens, descTokens)
		if score > 0 {
			ranked = append(ranked, scored{id: c.ID, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	j := Judgment{}
	for _, s := range ranked {
		j.Relevant = append(j.Relevant, s.id)
	}
	if len(j.Relevant) > 0 {
		j.Explanation = fmt.Sprintf("query terms matched: %s", strings.Join(j.Relevant, ", "))
	}
	return j, nil
}

func tokenize(s string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		tok = strings.TrimSuffix(tok, "s")
		if len(tok) < 3 || stopwords[tok] {
			continue
		}
		out[tok] = true
	}
	return out
}

func overlap(a, b map[string]bool) int {
	n := 0
	for tok := range a {
		if b[tok] {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// LLM judge
// ---------------------------------------------------------------------------

// LLMJudge asks the completion backend to rank candidates. Its output is
// only a suggestion; the Router enforces runnability afterwards.
type LLMJudge struct {
	client llm.Client
}

func NewLLMJudge(client llm.Client) *LLMJudge {
	return &LLMJudge{client: client}
}

const judgeSystemPrompt = `You route clinical assessment requests to risk models. Given a query, a case ` +
	`summary, and candidate models, return ONLY a JSON object ` +
	`{"relevant_models": ["id", ...], "explanation": "..."}. List every model whose purpose matches ` +
	`the query, most relevant first, whether or not it is marked runnable. If none match, return an ` +
	`empty list. Never invent model ids.`

func (j *LLMJudge) Judge(ctx context.Context, query, contextSummary string, candidates []Candidate) (Judgment, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCase summary: %s\n\nCandidate models:\n", query, contextSummary)
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%s runnable=%v: %s\n", c.ID, c.Runnable, c.Description)
	}

	completion, err := j.client.Complete(ctx, judgeSystemPrompt, b.String())
	if err != nil {
		return Judgment{}, err
	}

	var out Judgment
	if err := llm.DecodeJSON(completion, &out); err != nil {
		return Judgment{}, fmt.Errorf("judge response: %w", err)
	}
	return out, nil
}
