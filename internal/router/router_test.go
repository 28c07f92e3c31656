package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/newsroom-rundown/internal/config"
	"github.com/iliyamo/newsroom-rundown/internal/handler"
	"github.com/iliyamo/newsroom-rundown/internal/logging"
	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
	"github.com/iliyamo/newsroom-rundown/internal/router"
	"github.com/iliyamo/newsroom-rundown/internal/service"
	"github.com/iliyamo/newsroom-rundown/internal/testsupport"
	"github.com/iliyamo/newsroom-rundown/internal/wire"
)

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := testsupport.MustOpenSQLiteStore(t)
	log := logging.Discard()
	cfg := config.Config{
		JWTSecret:      "router-test",
		AccessTTLMin:   5,
		RefreshTTLDays: 1,
		BcryptCost:     bcrypt.MinCost,
	}

	rundowns := service.NewRundownService(store, nil, log, service.DefaultAddItemRetries)
	shows := service.NewShowSchedulingService(store, rundowns, log)
	stories := service.NewStoryService(store, log)
	return router.New(router.Deps{
		Cfg:      cfg,
		Log:      log,
		Ping:     store.DB().PingContext,
		Auth:     handler.NewAuthHandler(cfg, repository.NewUserRepo(store.DB(), store.Dialect()), repository.NewTokenRepo(store.DB()), log),
		Rundowns: handler.NewRundownHandler(rundowns),
		Shows:    handler.NewShowHandler(shows),
		Stories:  handler.NewStoryHandler(stories),
		Wire:     handler.NewWireHandler(wire.NewImporter(stories, log)),
	})
}

func call(t *testing.T, e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type session struct {
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func register(t *testing.T, e *echo.Echo, email, role string, station uint64) session {
	t.Helper()
	rec := call(t, e, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email": email, "password": "correct horse", "role": role, "station_id": station,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[session](t, rec)
}

func TestRundownWorkflowOverHTTP(t *testing.T) {
	e := newServer(t)
	producer := register(t, e, "producer@example.com", model.RoleProducer, 1).Access.Token
	editor := register(t, e, "editor@example.com", "", 1).Access.Token

	rec := call(t, e, http.MethodPost, "/v1/shows", editor, map[string]any{"name": "Six O'Clock"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = call(t, e, http.MethodPost, "/v1/shows", producer, map[string]any{"name": "Six O'Clock", "default_duration": 1800})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	show := decode[model.Show](t, rec)

	rec = call(t, e, http.MethodPost, fmt.Sprintf("/v1/shows/%d/instances", show.ID), producer,
		map[string]any{"starts_at": "2031-09-01T18:00:00Z"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	si := decode[model.ShowInstance](t, rec)
	require.NotNil(t, si.Rundown)
	assert.Equal(t, model.RundownDraft, si.Rundown.Status)
	rundownPath := fmt.Sprintf("/v1/rundowns/%d", si.Rundown.ID)

	rec = call(t, e, http.MethodPost, fmt.Sprintf("/v1/shows/%d/instances", show.ID), producer,
		map[string]any{"starts_at": "2031-09-01T18:10:00Z"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, e, http.MethodPost, rundownPath+"/items", editor,
		map[string]any{"type": "story", "title": "Opening", "planned_duration": 120})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	opening := decode[model.RundownItem](t, rec)
	assert.Equal(t, 0, opening.Position)

	rec = call(t, e, http.MethodPost, rundownPath+"/items", editor,
		map[string]any{"type": "LIVE", "title": "Weather", "planned_duration": 60})
	require.Equal(t, http.StatusCreated, rec.Code)
	weather := decode[model.RundownItem](t, rec)
	assert.Equal(t, 1, weather.Position)

	rec = call(t, e, http.MethodPost, rundownPath+"/items", editor,
		map[string]any{"type": "WEATHER", "title": "Bad", "planned_duration": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "type", decode[map[string]any](t, rec)["field"])
	rec = call(t, e, http.MethodPost, rundownPath+"/items", editor, map[string]any{"type": "STORY", "title": "No duration"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, e, http.MethodPut, rundownPath+"/order", editor, map[string]any{"item_ids": []uint64{weather.ID}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "item_ids", decode[map[string]any](t, rec)["field"])

	rec = call(t, e, http.MethodPut, rundownPath+"/order", editor, map[string]any{"item_ids": []uint64{weather.ID, opening.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rd := decode[model.Rundown](t, rec)
	require.Len(t, rd.Items, 2)
	assert.Equal(t, weather.ID, rd.Items[0].ID)
	assert.Equal(t, 180, rd.TotalDuration)

	rec = call(t, e, http.MethodPatch, fmt.Sprintf("/v1/rundown-items/%d", opening.ID), editor,
		map[string]any{"planned_duration": 200, "status": "READY"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ItemReady, decode[model.RundownItem](t, rec).Status)

	rec = call(t, e, http.MethodDelete, fmt.Sprintf("/v1/rundown-items/%d", weather.ID), editor, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, e, http.MethodDelete, fmt.Sprintf("/v1/rundown-items/%d", weather.ID), editor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, e, http.MethodGet, rundownPath, editor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rd = decode[model.Rundown](t, rec)
	require.Len(t, rd.Items, 1)
	assert.Equal(t, 0, rd.Items[0].Position)
	assert.Equal(t, 200, rd.TotalDuration)

	rec = call(t, e, http.MethodPut, rundownPath+"/status", editor, map[string]any{"status": "LIVE"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = call(t, e, http.MethodPut, rundownPath+"/status", producer, map[string]any{"status": "LIVE"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RundownLive, decode[model.Rundown](t, rec).Status)

	rec = call(t, e, http.MethodGet, fmt.Sprintf("/v1/show-instances/%d", si.ID), editor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, si.Rundown.ID, decode[model.ShowInstance](t, rec).Rundown.ID)

	rec = call(t, e, http.MethodGet, "/v1/rundowns/999999", editor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = call(t, e, http.MethodGet, "/v1/rundowns/abc", editor, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, e, http.MethodGet, rundownPath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShowsAreScopedToStation(t *testing.T) {
	e := newServer(t)
	mine := register(t, e, "p1@example.com", model.RoleProducer, 1).Access.Token
	theirs := register(t, e, "p2@example.com", model.RoleProducer, 2).Access.Token

	rec := call(t, e, http.MethodPost, "/v1/shows", mine, map[string]any{"name": "Late News"})
	require.Equal(t, http.StatusCreated, rec.Code)
	show := decode[model.Show](t, rec)

	rec = call(t, e, http.MethodGet, fmt.Sprintf("/v1/shows/%d", show.ID), theirs, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = call(t, e, http.MethodGet, "/v1/shows", theirs, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"shows":[]}`, rec.Body.String())

	rec = call(t, e, http.MethodGet, "/v1/shows", mine, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Show](t, rec)["shows"], 1)
}

func TestRundownsAreScopedToStation(t *testing.T) {
	e := newServer(t)
	mine := register(t, e, "owner@example.com", model.RoleProducer, 1).Access.Token
	theirs := register(t, e, "rival@example.com", model.RoleProducer, 2).Access.Token

	rec := call(t, e, http.MethodPost, "/v1/shows", mine, map[string]any{"name": "Breakfast", "default_duration": 3600})
	require.Equal(t, http.StatusCreated, rec.Code)
	show := decode[model.Show](t, rec)
	rec = call(t, e, http.MethodPost, fmt.Sprintf("/v1/shows/%d/instances", show.ID), mine,
		map[string]any{"starts_at": "2031-09-02T06:00:00Z"})
	require.Equal(t, http.StatusCreated, rec.Code)
	si := decode[model.ShowInstance](t, rec)
	rundownPath := fmt.Sprintf("/v1/rundowns/%d", si.Rundown.ID)

	rec = call(t, e, http.MethodPost, rundownPath+"/items", mine,
		map[string]any{"type": "STORY", "title": "Headlines", "planned_duration": 90})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decode[model.RundownItem](t, rec)
	itemPath := fmt.Sprintf("/v1/rundown-items/%d", item.ID)

	forbidden := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, fmt.Sprintf("/v1/show-instances/%d", si.ID), nil},
		{http.MethodGet, rundownPath, nil},
		{http.MethodPost, rundownPath + "/items", map[string]any{"type": "AD", "title": "Spot", "planned_duration": 30}},
		{http.MethodPut, rundownPath + "/order", map[string]any{"item_ids": []uint64{item.ID}}},
		{http.MethodPut, rundownPath + "/status", map[string]any{"status": "LIVE"}},
		{http.MethodPatch, itemPath, map[string]any{"planned_duration": 1}},
		{http.MethodDelete, itemPath, nil},
	}
	for _, tc := range forbidden {
		rec := call(t, e, tc.method, tc.path, theirs, tc.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}

	rec = call(t, e, http.MethodGet, rundownPath, mine, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rd := decode[model.Rundown](t, rec)
	assert.Equal(t, model.RundownDraft, rd.Status)
	require.Len(t, rd.Items, 1)
	assert.Equal(t, 90, rd.Items[0].PlannedDuration)
	assert.Equal(t, 90, rd.TotalDuration)
}

func TestAuthSessionLifecycle(t *testing.T) {
	e := newServer(t)
	s := register(t, e, "Anchor@Example.com", "", 4)

	rec := call(t, e, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email": "anchor@example.com", "password": "another pass", "station_id": 4,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, e, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "anchor@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = call(t, e, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "ANCHOR@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, e, http.MethodGet, "/v1/me", s.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, model.RoleEditor, me["role"])
	assert.EqualValues(t, 4, me["station_id"])

	rec = call(t, e, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": s.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[session](t, rec)
	assert.NotEqual(t, s.Refresh.Token, rotated.Refresh.Token)

	// The old refresh token was revoked by the rotation.
	rec = call(t, e, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": s.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, e, http.MethodPost, "/v1/auth/logout", rotated.Access.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, e, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": rotated.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStoriesAndWireImport(t *testing.T) {
	e := newServer(t)
	producer := register(t, e, "desk@example.com", model.RoleProducer, 3).Access.Token
	editor := register(t, e, "writer@example.com", model.RoleEditor, 3).Access.Token

	rec := call(t, e, http.MethodPost, "/v1/stories", editor, map[string]any{"title": "Harbour fire", "body": "<p>Crews on scene</p>"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st := decode[model.Story](t, rec)
	assert.Equal(t, 3, st.WordCount)

	feed := `<?xml version="1.0"?><rss version="2.0"><channel><title>Wire</title>
<item><title>Markets open higher</title><guid>m-1</guid><description>Stocks rose.</description></item>
</channel></rss>`
	post := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/wire/import?source=agency", strings.NewReader(feed))
		req.Header.Set(echo.HeaderContentType, "application/rss+xml")
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusForbidden, post(editor).Code)
	rec = post(producer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[wire.Result](t, rec).Created)

	rec = call(t, e, http.MethodGet, "/v1/stories?status=draft&limit=10", editor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Story](t, rec)["stories"], 2)

	rec = call(t, e, http.MethodGet, "/v1/stories?limit=lots", editor, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, e, http.MethodPost, "/v1/wire/import", producer, map[string]any{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	e := newServer(t)

	rec := call(t, e, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = call(t, e, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "newsroom_http_requests_total")
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", handler.Health(func(context.Context) error { return repository.ErrUnavailable }))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
