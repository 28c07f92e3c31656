package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/newsroom-rundown/internal/logging"
	"github.com/iliyamo/newsroom-rundown/internal/middleware"
	"github.com/iliyamo/newsroom-rundown/internal/repository/memstore"
	"github.com/iliyamo/newsroom-rundown/internal/service"
	"github.com/iliyamo/newsroom-rundown/internal/testsupport"
)

func TestAddItemRejectsUnknownTypeBeforeStore(t *testing.T) {
	store := memstore.New()
	rd := testsupport.SeedRundown(t, store)
	var calls atomic.Int32
	store.SetHook(func(string) { calls.Add(1) })
	h := NewRundownHandler(service.NewRundownService(store, nil, logging.Discard(), 0))

	e := echo.New()
	e.Validator = NewRequestValidator()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"type":"weather","title":"Forecast","planned_duration":30}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(rd.ID))
	c.Set(middleware.CtxStationID, uint64(1))

	require.NoError(t, h.AddItem(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "type", body["field"])
	assert.Contains(t, body["error"], "STORY")
	assert.Zero(t, calls.Load())

	got, err := store.ListItems(req.Context(), rd.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}
