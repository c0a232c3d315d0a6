package assessment

import (
	"github.com/clinassess/clinassess/internal/registry"
)

// Evaluate computes, for every registered model, whether the bag satisfies
// its required parameters. Pure: no I/O, same inputs always yield the same
// output. A present value that fails its domain check counts as missing;
// extraction should have discarded it, but the evaluator does not assume
// that.
func Evaluate(reg *registry.Registry, bag ParameterBag) []ModelReadiness {
	models := reg.All()
	out := make([]ModelReadiness, 0, len(models))
	for _, m := range models {
		readiness := ModelReadiness{ModelID: m.ID, Runnable: true, Missing: []string{}}
		for _, p := range m.Parameters {
			if !p.Required {
				continue
			}
			pv, ok := bag.Values[p.Name]
			if !ok || p.CheckValue(pv.Value) != nil {
				readiness.Missing = append(readiness.Missing, p.Name)
				readiness.Runnable = false
			}
		}
		out = append(out, readiness)
	}
	return out
}
