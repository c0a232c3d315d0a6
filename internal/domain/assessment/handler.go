package assessment

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinassess/clinassess/internal/platform/llm"
	"github.com/clinassess/clinassess/internal/platform/predict"
	"github.com/clinassess/clinassess/internal/registry"
)

// Recorder persists terminal results. Implemented by the history service;
// nil when the deployment runs without a database.
type Recorder interface {
	Record(ctx context.Context, req Request, res Result)
}

type Handler struct {
	orch     *Orchestrator
	reg      *registry.Registry
	llm      llm.Client // nil when no API key is configured
	caller   predict.Caller
	invoker  *Invoker
	recorder Recorder
	log      zerolog.Logger
}

func NewHandler(
	orch *Orchestrator,
	reg *registry.Registry,
	llmClient llm.Client,
	caller predict.Caller,
	invoker *Invoker,
	recorder Recorder,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		orch:     orch,
		reg:      reg,
		llm:      llmClient,
		caller:   caller,
		invoker:  invoker,
		recorder: recorder,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, api *echo.Group) {
	api.POST("/assessments", h.Assess)
	api.GET("/models", h.ListModels)

	// Bare aliases for callers that predate the /api/v1 prefix.
	e.POST("/assess", h.Assess)
	e.GET("/models", h.ListModels)

	e.GET("/health", h.Health)
}

// Assess runs one assessment workflow. 200 covers both business outcomes
// (complete and need_more_data); 500 means an unrecovered backend failure,
// 503 means the extraction backend was never configured.
func (h *Handler) Assess(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if h.orch == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "assessment backend is not configured")
	}

	result := h.orch.Run(c.Request().Context(), req)

	if h.recorder != nil {
		// Persistence is best effort and must not delay or fail the response.
		h.recorder.Record(context.WithoutCancel(c.Request().Context()), req, result)
	}

	code := http.StatusOK
	if result.Status == StatusError {
		code = http.StatusInternalServerError
	}
	return c.JSON(code, result)
}

type modelInfo struct {
	ID          string                   `json:"id"`
	Description string                   `json:"description"`
	Required    []string                 `json:"required_parameters"`
	Parameters  []registry.ParameterSpec `json:"parameters"`
}

func (h *Handler) ListModels(c echo.Context) error {
	models := h.reg.All()
	out := make([]modelInfo, 0, len(models))
	for _, m := range models {
		required := m.RequiredParams()
		if required == nil {
			required = []string{}
		}
		out = append(out, modelInfo{
			ID:          m.ID,
			Description: m.Description,
			Required:    required,
			Parameters:  m.Parameters,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"models": out})
}

// Health reports reachability of the completion backend and every scoring
// service. An unconfigured completion backend is 503: the service cannot do
// its job at all without it.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	deps := map[string]string{}
	healthy := true

	if h.llm == nil {
		deps["completion_backend"] = "not configured"
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":       "unavailable",
			"dependencies": deps,
		})
	}
	if err := h.llm.Ping(ctx); err != nil {
		deps["completion_backend"] = "unreachable"
		healthy = false
	} else {
		deps["completion_backend"] = "ok"
	}

	for _, m := range h.reg.All() {
		key := "model:" + m.ID
		if err := h.caller.Probe(ctx, h.invoker.EndpointFor(m)); err != nil {
			deps[key] = "unreachable"
			healthy = false
		} else {
			deps[key] = "ok"
		}
	}

	status := "ok"
	if !healthy {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":       status,
		"dependencies": deps,
	})
}
