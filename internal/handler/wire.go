package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/newsroom-rundown/internal/middleware"
	"github.com/iliyamo/newsroom-rundown/internal/wire"
)

// maxFeedBytes caps an uploaded feed document.
const maxFeedBytes = 4 << 20

// WireHandler triggers wire feed imports.
type WireHandler struct {
	importer *wire.Importer
}

func NewWireHandler(importer *wire.Importer) *WireHandler {
	return &WireHandler{importer: importer}
}

type importReq struct {
	URL string `json:"url" validate:"required,url"`
}

// Import handles POST /v1/wire/import.  A JSON body {"url": ...} makes
// the server fetch the feed; an XML body is imported as is under the
// ?source= name.
func (h *WireHandler) Import(c echo.Context) error {
	ctx := c.Request().Context()
	station := middleware.StationID(c)

	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.Contains(ct, "xml") {
		body := http.MaxBytesReader(c.Response(), c.Request().Body, maxFeedBytes)
		res, err := h.importer.ImportReader(ctx, station, c.QueryParam("source"), body)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}

	var req importReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	res, err := h.importer.Import(ctx, station, req.URL)
	if errors.Is(err, wire.ErrFetch) {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
