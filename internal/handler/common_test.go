package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/newsroom-rundown/internal/repository"
	"github.com/iliyamo/newsroom-rundown/internal/service"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&service.ValidationError{Field: "title", Message: "must not be empty"}, http.StatusBadRequest},
		{fmt.Errorf("get: %w", repository.ErrRundownNotFound), http.StatusNotFound},
		{repository.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("insert: %w", repository.ErrConflict), http.StatusConflict},
		{repository.ErrUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, writeError(c, tc.err))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, &service.ValidationError{Field: "item_ids", Message: "bad"}))
	assert.JSONEq(t, `{"error":"item_ids: bad","field":"item_ids"}`, rec.Body.String())
}

func TestRequestValidator(t *testing.T) {
	v := NewRequestValidator()
	d := 5
	assert.NoError(t, v.Validate(&addItemReq{Type: "STORY", Title: "x", PlannedDuration: &d}))

	err := v.Validate(&addItemReq{Type: "STORY", Title: "x"})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "planned_duration", verr.Field)
	assert.Equal(t, "is required", verr.Message)

	err = v.Validate(&registerReq{Email: "not-an-email", Password: "longenough", StationID: 1})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	err = v.Validate(&reorderReq{})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "item_ids", verr.Field)
}

func TestParamID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("0")
	_, err := paramID(c, "id")
	assert.ErrorIs(t, err, service.ErrValidation)

	c.SetParamValues("42")
	id, err := paramID(c, "id")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}
