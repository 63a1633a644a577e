package analytics

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler exposes the analytics HTTP surface: a public ingest endpoint and
// an admin-only summary endpoint.
type Handler struct {
	store *Store
}

// NewHandler creates a Handler backed by the given store.
func NewHandler(s *Store) *Handler {
	return &Handler{store: s}
}

// RegisterRoutes mounts the analytics routes. adminMW guards the summary
// endpoint.
func (h *Handler) RegisterRoutes(e *echo.Echo, adminMW echo.MiddlewareFunc) {
	e.POST("/api/analytics/visit", h.handleVisit)
	e.GET("/api/analytics/summary", h.handleSummary, adminMW)
}

type visitPayload struct {
	Path     string `json:"path"`
	Referrer string `json:"referrer"`
}

func (h *Handler) handleVisit(c echo.Context) error {
	var p visitPayload
	if err := c.Bind(&p); err != nil || p.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}
	v := Visit{
		Path:      p.Path,
		Referrer:  p.Referrer,
		IPHash:    HashIP(c.RealIP()),
		UserAgent: c.Request().UserAgent(),
	}
	if err := h.store.RecordVisit(v); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) handleSummary(c echo.Context) error {
	days, err := strconv.Atoi(c.QueryParam("days"))
	if err != nil || days <= 0 {
		days = 30
	}
	sum, err := h.store.Summarize(days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}
