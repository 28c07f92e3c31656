package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/newsroom-rundown/internal/middleware"
	"github.com/iliyamo/newsroom-rundown/internal/service"
)

// ShowHandler serves shows and their scheduled airings.  Shows belong to
// the caller's station.
type ShowHandler struct {
	svc *service.ShowSchedulingService
}

func NewShowHandler(svc *service.ShowSchedulingService) *ShowHandler {
	return &ShowHandler{svc: svc}
}

type createShowReq struct {
	Name            string `json:"name" validate:"required,max=255"`
	DefaultDuration int    `json:"default_duration" validate:"gte=0"`
}

type createInstanceReq struct {
	AirDate  string     `json:"air_date"`
	StartsAt time.Time  `json:"starts_at" validate:"required"`
	EndsAt   *time.Time `json:"ends_at"`
}

// Create handles POST /v1/shows.
func (h *ShowHandler) Create(c echo.Context) error {
	var req createShowReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	show, err := h.svc.CreateShow(c.Request().Context(), middleware.StationID(c), req.Name, req.DefaultDuration)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, show)
}

// List handles GET /v1/shows.
func (h *ShowHandler) List(c echo.Context) error {
	shows, err := h.svc.ListShows(c.Request().Context(), middleware.StationID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": shows})
}

// Get handles GET /v1/shows/:id.
func (h *ShowHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	show, err := h.svc.GetShow(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if err := sameStation(c, show.StationID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, show)
}

// CreateInstance handles POST /v1/shows/:id/instances.  The response
// carries the new, empty rundown.
func (h *ShowHandler) CreateInstance(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req createInstanceReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	show, err := h.svc.GetShow(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := sameStation(c, show.StationID); err != nil {
		return writeError(c, err)
	}
	si, err := h.svc.CreateShowInstance(ctx, id, req.AirDate, req.StartsAt, req.EndsAt)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, si)
}

// ListInstances handles GET /v1/shows/:id/instances.
func (h *ShowHandler) ListInstances(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	show, err := h.svc.GetShow(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := sameStation(c, show.StationID); err != nil {
		return writeError(c, err)
	}
	list, err := h.svc.ListShowInstances(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"instances": list})
}

// GetInstance handles GET /v1/show-instances/:id.
func (h *ShowHandler) GetInstance(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	si, err := h.svc.GetShowInstance(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	show, err := h.svc.GetShow(ctx, si.ShowID)
	if err != nil {
		return writeError(c, err)
	}
	if err := sameStation(c, show.StationID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, si)
}
