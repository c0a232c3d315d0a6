package history

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinassess/clinassess/pkg/pagination"
)

// Handler serves the assessment history endpoints. svc is nil when the
// deployment runs without a database; the routes then answer 503 instead
// of disappearing.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/assessments", h.ListAssessments)
	api.GET("/assessments/:id", h.GetAssessment)
}

func (h *Handler) ListAssessments(c echo.Context) error {
	if h.svc == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "assessment history is not configured")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list assessments")
	}
	if items == nil {
		items = []*AssessmentRecord{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAssessment(c echo.Context) error {
	if h.svc == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "assessment history is not configured")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	}
	return c.JSON(http.StatusOK, rec)
}
