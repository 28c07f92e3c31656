// Package handler exposes the newsroom services over HTTP.  Handlers
// bind and validate the request, call one service method and translate
// its error with writeError.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/newsroom-rundown/internal/middleware"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
	"github.com/iliyamo/newsroom-rundown/internal/service"
)

// RequestValidator plugs go-playground/validator into echo's c.Validate.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator reports fields by their JSON names.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

// Validate reports the first failing field as a *service.ValidationError.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		return &service.ValidationError{Field: f.Field(), Message: describe(f)}
	}
	return &service.ValidationError{Message: err.Error()}
}

func describe(f validator.FieldError) string {
	switch f.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be an email address"
	case "min", "gte":
		return "must be at least " + f.Param()
	case "max", "lte":
		return "must be at most " + f.Param()
	case "oneof":
		return "must be one of " + f.Param()
	case "url":
		return "must be a URL"
	}
	return "is invalid (" + f.Tag() + ")"
}

// bind decodes the body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return &service.ValidationError{Field: "body", Message: "invalid JSON body"}
	}
	return c.Validate(req)
}

// paramID parses a positive integer path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}

// getUserID returns the authenticated user or an error when JWTAuth did
// not run.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errors.New("invalid user_id in context")
	}
	return id, nil
}

// sameStation rejects access to another station's resources.
func sameStation(c echo.Context, stationID uint64) error {
	if stationID != middleware.StationID(c) {
		return fmt.Errorf("station %d: %w", stationID, repository.ErrForbidden)
	}
	return nil
}

// writeError maps service and repository errors to HTTP responses.
func writeError(c echo.Context, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		body := echo.Map{"error": verr.Error()}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting change, reload and retry"})
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable, outcome unknown"})
	}
	c.Set(middleware.CtxError, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
