package assessment

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinassess/clinassess/internal/platform/predict"
	"github.com/clinassess/clinassess/internal/registry"
)

// Invoker fans out to the scoring services for the selected models. Calls
// run concurrently; each one is isolated, so a timeout on one model never
// blocks or fails its siblings. The result list always has one record per
// selected model, in selection order.
type Invoker struct {
	caller    predict.Caller
	endpoints map[string]string
	log       zerolog.Logger
}

// NewInvoker builds an Invoker. endpoints overrides the registry default URL
// per invocation target.
func NewInvoker(caller predict.Caller, endpoints map[string]string, log zerolog.Logger) *Invoker {
	return &Invoker{caller: caller, endpoints: endpoints, log: log}
}

// EndpointFor resolves the scoring service URL for a model.
func (inv *Invoker) EndpointFor(spec registry.ModelSpec) string {
	if url, ok := inv.endpoints[spec.Target]; ok {
		return url
	}
	return spec.DefaultURL
}

// Invoke calls every selected model and returns their records in order. The
// payload for each model is built strictly from that model's declared
// parameter names; nothing else in the bag leaks into the request.
func (inv *Invoker) Invoke(ctx context.Context, selected []registry.ModelSpec, bag ParameterBag) []PredictionRecord {
	records := make([]PredictionRecord, len(selected))

	var wg sync.WaitGroup
	for i, spec := range selected {
		wg.Add(1)
		go func(i int, spec registry.ModelSpec) {
			defer wg.Done()
			records[i] = inv.invokeOne(ctx, spec, bag)
		}(i, spec)
	}
	wg.Wait()

	return records
}

func (inv *Invoker) invokeOne(ctx context.Context, spec registry.ModelSpec, bag ParameterBag) PredictionRecord {
	record := PredictionRecord{ModelID: spec.ID}

	var names []string
	for _, p := range spec.Parameters {
		names = append(names, p.Name)
	}
	params := bag.Flat(names)

	outcome, err := inv.caller.Predict(ctx, inv.EndpointFor(spec), params)
	switch {
	case errors.Is(err, predict.ErrUnparseable):
		inv.log.Warn().Str("model", spec.ID).Msg("prediction response unparseable")
		record.ErrorTag = ErrTagUnparseable
		record.Raw = outcome.Raw
	case err != nil:
		inv.log.Warn().Str("model", spec.ID).Err(err).Msg("prediction call failed")
		record.ErrorTag = ErrTagUnreachable
	default:
		label := outcome.Label
		record.Label = &label
		record.Probability = outcome.Probability
		if outcome.Explanation != "" {
			expl := outcome.Explanation
			record.Explanation = &expl
		}
		record.Raw = outcome.Raw
	}
	return record
}

// AllUnreachable reports whether every record failed at the transport level.
// Unparseable responses do not count: the service answered, and the record
// carries a partial result worth returning.
func AllUnreachable(records []PredictionRecord) bool {
	if len(records) == 0 {
		return false
	}
	for _, r := range records {
		if r.ErrorTag != ErrTagUnreachable {
			return false
		}
	}
	return true
}
