package assessment

import "errors"

// Stage-fatal failure classes. Handlers map these to coarse client-facing
// messages; the wrapped cause stays in the logs only.
var (
	// ErrExtractionBackend: the extraction backend timed out or transport-failed.
	ErrExtractionBackend = errors.New("extraction backend unavailable")

	// ErrExtractionUnparseable: the extraction backend answered, but not with
	// interpretable JSON. No partial result is possible at this stage.
	ErrExtractionUnparseable = errors.New("extraction response unparseable")

	// ErrRoutingBackend: the relevance judge failed. Never silently treated
	// as a deliberate no-match decision.
	ErrRoutingBackend = errors.New("routing backend unavailable")

	// ErrSynthesisBackend: the synthesis backend failed. Recoverable: the
	// orchestrator degrades to predictions without a narrative.
	ErrSynthesisBackend = errors.New("synthesis backend unavailable")

	// ErrAllModelsFailed: every selected model failed at the transport level.
	ErrAllModelsFailed = errors.New("all model invocations failed")

	// ErrBudgetExceeded: the whole request exceeded its wall-clock budget.
	ErrBudgetExceeded = errors.New("request budget exceeded")

	// ErrNotConfigured: a required backend was never initialized (no API key).
	ErrNotConfigured = errors.New("backend not configured")
)
