package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinassess/clinassess/internal/registry"
)

// State is a workflow state. One Run walks the machine from StateReceived to
// a terminal state; the machine is stateless between requests.
type State string

const (
	StateReceived     State = "RECEIVED"
	StateExtracting   State = "EXTRACTING"
	StateEvaluating   State = "EVALUATING"
	StateRouting      State = "ROUTING"
	StateNeedMoreData State = "NEED_MORE_DATA"
	StateInvoking     State = "INVOKING"
	StateSynthesizing State = "SYNTHESIZING"
	StateComplete     State = "COMPLETE"
	StateError        State = "ERROR"
)

// Transitions is the full transition table. Any edge not listed here is
// illegal; tests walk the table to keep the machine honest.
var Transitions = map[State][]State{
	StateReceived:     {StateExtracting},
	StateExtracting:   {StateEvaluating, StateError},
	StateEvaluating:   {StateRouting},
	StateRouting:      {StateNeedMoreData, StateInvoking, StateError},
	StateInvoking:     {StateSynthesizing, StateError},
	StateSynthesizing: {StateComplete},
	StateNeedMoreData: {},
	StateComplete:     {},
	StateError:        {},
}

// Terminal reports whether s ends a workflow.
func Terminal(s State) bool {
	return len(Transitions[s]) == 0
}

// Orchestrator sequences one assessment: extract, evaluate, route, invoke,
// synthesize. All per-request data lives on the stack of Run; the only
// shared structure is the read-only registry.
type Orchestrator struct {
	reg         *registry.Registry
	extractor   Extractor
	router      *Router
	invoker     *Invoker
	synthesizer Synthesizer
	budget      time.Duration
	log         zerolog.Logger
}

func NewOrchestrator(
	reg *registry.Registry,
	extractor Extractor,
	router *Router,
	invoker *Invoker,
	synthesizer Synthesizer,
	budget time.Duration,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		reg:         reg,
		extractor:   extractor,
		router:      router,
		invoker:     invoker,
		synthesizer: synthesizer,
		budget:      budget,
		log:         log,
	}
}

// Run executes one assessment request to a terminal state. The request must
// already be validated. Run always returns a Result; stage-fatal failures
// come back as Status error with a safe message, never as a Go error the
// transport layer could leak.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, o.budget)
	defer cancel()

	result := Result{
		ID:                uuid.New(),
		MissingParameters: []string{},
		Predictions:       []PredictionRecord{},
		FollowUpQuestions: []string{},
		CreatedAt:         time.Now().UTC(),
	}
	log := o.log.With().Stringer("assessment_id", result.ID).Logger()

	state := StateReceived

	// RECEIVED -> EXTRACTING
	state = o.step(state, StateExtracting)
	bag, err := o.extractor.Extract(ctx, req)
	if err != nil {
		return o.fail(ctx, &result, state, err, log)
	}
	log.Info().Int("parameters", len(bag.Values)).Msg("extraction complete")

	// EXTRACTING -> EVALUATING
	state = o.step(state, StateEvaluating)
	readiness := Evaluate(o.reg, bag)

	// EVALUATING -> ROUTING
	state = o.step(state, StateRouting)
	decision, err := o.router.Decide(ctx, req.Query, bag.ContextSummary, readiness, o.reg)
	if err != nil {
		return o.fail(ctx, &result, state, err, log)
	}
	result.RoutingExplanation = decision.Explanation
	result.RoutingSummary = routingSummary(decision, len(readiness))

	if len(decision.Selected) == 0 {
		// ROUTING -> NEED_MORE_DATA
		o.step(state, StateNeedMoreData)
		result.Status = StatusNeedMoreData
		result.MissingParameters = decision.Missing
		log.Info().Strs("missing", decision.Missing).Msg("assessment needs more data")
		return result
	}

	// ROUTING -> INVOKING
	state = o.step(state, StateInvoking)
	specs := make([]registry.ModelSpec, 0, len(decision.Selected))
	for _, id := range decision.Selected {
		if spec, ok := o.reg.Get(id); ok {
			specs = append(specs, spec)
		}
	}
	records := o.invoker.Invoke(ctx, specs, bag)
	result.Predictions = records
	if AllUnreachable(records) {
		return o.fail(ctx, &result, state, ErrAllModelsFailed, log)
	}

	// INVOKING -> SYNTHESIZING
	state = o.step(state, StateSynthesizing)
	report, err := o.synthesizer.Synthesize(ctx, req.Query, bag.ContextSummary, records)
	if err != nil {
		// Degrade: keep the predictions, drop the narrative.
		log.Warn().Err(err).Msg("synthesis failed, returning predictions without a report")
	} else {
		result.Report = &report.Text
		result.FollowUpQuestions = report.FollowUpQuestions
	}

	// SYNTHESIZING -> COMPLETE
	o.step(state, StateComplete)
	result.Status = StatusComplete
	log.Info().Int("predictions", len(records)).Bool("report", result.Report != nil).Msg("assessment complete")
	return result
}

// step validates a transition against the table. An illegal edge is a
// programming error; it is logged loudly and the target state is used so
// the request still terminates.
func (o *Orchestrator) step(from, to State) State {
	for _, allowed := range Transitions[from] {
		if allowed == to {
			return to
		}
	}
	o.log.Error().Str("from", string(from)).Str("to", string(to)).Msg("illegal state transition")
	return to
}

func (o *Orchestrator) fail(ctx context.Context, result *Result, from State, err error, log zerolog.Logger) Result {
	o.step(from, StateError)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrBudgetExceeded, err)
	}
	result.Status = StatusError
	result.Message = classify(err)
	log.Error().Err(err).Str("classification", result.Message).Msg("assessment failed")
	return *result
}

// classify maps a stage failure onto a safe, coarse description. Backend
// error text never reaches the client.
func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrBudgetExceeded):
		return "the assessment exceeded its time budget"
	case errors.Is(err, ErrExtractionBackend):
		return "the parameter extraction service is temporarily unavailable"
	case errors.Is(err, ErrExtractionUnparseable):
		return "the parameter extraction service returned an unusable response"
	case errors.Is(err, ErrRoutingBackend):
		return "the model routing service is temporarily unavailable"
	case errors.Is(err, ErrAllModelsFailed):
		return "no prediction service could be reached"
	default:
		return "an internal error interrupted the assessment"
	}
}

func routingSummary(d RoutingDecision, candidates int) string {
	if len(d.Selected) == 0 {
		if d.MissingModelID != "" {
			return fmt.Sprintf("0 of %d models selected; %s blocked by missing data", candidates, d.MissingModelID)
		}
		return fmt.Sprintf("0 of %d models selected", candidates)
	}
	return fmt.Sprintf("%d of %d models selected: %s", len(d.Selected), candidates, strings.Join(d.Selected, ", "))
}
