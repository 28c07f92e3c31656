package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/newsroom-rundown/internal/middleware"
	"github.com/iliyamo/newsroom-rundown/internal/service"
)

// StoryHandler serves the station's stories.
type StoryHandler struct {
	svc *service.StoryService
}

func NewStoryHandler(svc *service.StoryService) *StoryHandler {
	return &StoryHandler{svc: svc}
}

type createStoryReq struct {
	Title string `json:"title" validate:"required,max=512"`
	Body  string `json:"body"`
}

// Create handles POST /v1/stories.
func (h *StoryHandler) Create(c echo.Context) error {
	var req createStoryReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	st, err := h.svc.CreateStory(c.Request().Context(), middleware.StationID(c), req.Title, req.Body)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

// List handles GET /v1/stories?status=&limit=.
func (h *StoryHandler) List(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return writeError(c, &service.ValidationError{Field: "limit", Message: "must be an integer"})
		}
		limit = n
	}
	stories, err := h.svc.ListStories(c.Request().Context(), middleware.StationID(c), c.QueryParam("status"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"stories": stories})
}

// Get handles GET /v1/stories/:id.
func (h *StoryHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	st, err := h.svc.GetStory(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if err := sameStation(c, st.StationID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
