package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/service"
)

// RundownHandler serves rundowns and their segments.
type RundownHandler struct {
	svc *service.RundownService
}

func NewRundownHandler(svc *service.RundownService) *RundownHandler {
	return &RundownHandler{svc: svc}
}

type addItemReq struct {
	Type            string  `json:"type" validate:"required"`
	Title           string  `json:"title" validate:"required,max=512"`
	PlannedDuration *int    `json:"planned_duration" validate:"required"`
	StoryID         *uint64 `json:"story_id"`
	Script          *string `json:"script"`
	Notes           *string `json:"notes"`
}

type updateItemReq struct {
	Title           *string `json:"title"`
	PlannedDuration *int    `json:"planned_duration"`
	Script          *string `json:"script"`
	Notes           *string `json:"notes"`
	Status          *string `json:"status" validate:"omitempty,oneof=PENDING READY"`
}

type reorderReq struct {
	ItemIDs []uint64 `json:"item_ids" validate:"required"`
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

// Get handles GET /v1/rundowns/:id.
func (h *RundownHandler) Get(c echo.Context) error {
	id, err := h.rundownParam(c)
	if err != nil {
		return writeError(c, err)
	}
	rd, err := h.svc.GetRundown(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rd)
}

// AddItem handles POST /v1/rundowns/:id/items.  The segment is always
// appended.
func (h *RundownHandler) AddItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req addItemReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	typ, ok := model.ParseSegmentType(req.Type)
	if !ok {
		return writeError(c, &service.ValidationError{Field: "type", Message: "must be one of " + model.SegmentTypeList()})
	}
	if err := h.owned(c, id, h.svc.RundownStation); err != nil {
		return writeError(c, err)
	}
	item, err := h.svc.AddItem(c.Request().Context(), id, model.ItemDraft{
		Type:            typ,
		Title:           req.Title,
		PlannedDuration: *req.PlannedDuration,
		StoryID:         req.StoryID,
		Script:          req.Script,
		Notes:           req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// UpdateItem handles PATCH /v1/rundown-items/:id.
func (h *RundownHandler) UpdateItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req updateItemReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.owned(c, id, h.svc.ItemStation); err != nil {
		return writeError(c, err)
	}
	patch := model.ItemPatch{
		Title:           req.Title,
		PlannedDuration: req.PlannedDuration,
		Script:          req.Script,
		Notes:           req.Notes,
	}
	if req.Status != nil {
		st := model.ItemStatus(*req.Status)
		patch.Status = &st
	}
	item, err := h.svc.UpdateItem(c.Request().Context(), id, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /v1/rundown-items/:id.
func (h *RundownHandler) DeleteItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.owned(c, id, h.svc.ItemStation); err != nil {
		return writeError(c, err)
	}
	if err := h.svc.DeleteItem(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reorder handles PUT /v1/rundowns/:id/order.  item_ids must list every
// segment of the rundown exactly once.
func (h *RundownHandler) Reorder(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req reorderReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.owned(c, id, h.svc.RundownStation); err != nil {
		return writeError(c, err)
	}
	rd, err := h.svc.ReorderItems(c.Request().Context(), id, req.ItemIDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rd)
}

// SetStatus handles PUT /v1/rundowns/:id/status.
func (h *RundownHandler) SetStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.owned(c, id, h.svc.RundownStation); err != nil {
		return writeError(c, err)
	}
	rd, err := h.svc.SetStatus(c.Request().Context(), id, model.RundownStatus(req.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rd)
}

func (h *RundownHandler) rundownParam(c echo.Context) (uint64, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return 0, err
	}
	return id, h.owned(c, id, h.svc.RundownStation)
}

// owned resolves id's station with lookup and rejects other stations.
func (h *RundownHandler) owned(c echo.Context, id uint64, lookup func(context.Context, uint64) (uint64, error)) error {
	station, err := lookup(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return sameStation(c, station)
}
