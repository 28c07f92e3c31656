package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/newsroom-rundown/internal/logging"
	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
	"github.com/iliyamo/newsroom-rundown/internal/repository/memstore"
	"github.com/iliyamo/newsroom-rundown/internal/service"
)

func newShowService(store repository.Store) (*service.ShowSchedulingService, *service.RundownService) {
	rundowns := newRundownService(store, nil)
	return service.NewShowSchedulingService(store, rundowns, logging.Discard()), rundowns
}

func TestCreateShowInstanceCreatesEmptyRundown(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		shows, rundowns := newShowService(store)

		show, err := shows.CreateShow(ctx, 3, "  Morning Edition ", 0)
		require.NoError(t, err)
		assert.Equal(t, "Morning Edition", show.Name)
		assert.Equal(t, service.DefaultShowDuration, show.DefaultDuration)

		start := time.Date(2031, 5, 4, 6, 0, 0, 0, time.UTC)
		si, err := shows.CreateShowInstance(ctx, show.ID, "", start, nil)
		require.NoError(t, err)
		assert.Equal(t, "2031-05-04", si.AirDate)
		assert.True(t, si.EndsAt.Equal(start.Add(time.Hour)))
		require.NotNil(t, si.Rundown)
		assert.Equal(t, model.RundownDraft, si.Rundown.Status)
		assert.Zero(t, si.Rundown.TotalDuration)
		assert.Empty(t, si.Rundown.Items)

		rd, err := rundowns.GetRundown(ctx, si.Rundown.ID)
		require.NoError(t, err)
		assert.Equal(t, si.ID, rd.ShowInstanceID)

		got, err := shows.GetShowInstance(ctx, si.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Rundown)
		assert.Equal(t, si.Rundown.ID, got.Rundown.ID)

		list, err := shows.ListShowInstances(ctx, show.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestCreateShowInstanceRejectsOverlap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		shows, _ := newShowService(store)

		news, err := shows.CreateShow(ctx, 5, "News", 1800)
		require.NoError(t, err)
		sport, err := shows.CreateShow(ctx, 5, "Sport", 1800)
		require.NoError(t, err)
		elsewhere, err := shows.CreateShow(ctx, 6, "News", 1800)
		require.NoError(t, err)

		start := time.Date(2031, 5, 4, 18, 0, 0, 0, time.UTC)
		_, err = shows.CreateShowInstance(ctx, news.ID, "", start, nil)
		require.NoError(t, err)

		_, err = shows.CreateShowInstance(ctx, sport.ID, "", start.Add(15*time.Minute), nil)
		assert.ErrorIs(t, err, repository.ErrConflict)

		// Back to back is fine, and other stations are independent.
		_, err = shows.CreateShowInstance(ctx, sport.ID, "", start.Add(30*time.Minute), nil)
		assert.NoError(t, err)
		_, err = shows.CreateShowInstance(ctx, elsewhere.ID, "", start, nil)
		assert.NoError(t, err)
	})
}

func TestCreateShowInstanceValidation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		shows, _ := newShowService(store)
		show, err := shows.CreateShow(ctx, 9, "Late", 600)
		require.NoError(t, err)

		start := time.Date(2031, 1, 1, 23, 0, 0, 0, time.UTC)
		before := start.Add(-time.Minute)

		_, err = shows.CreateShowInstance(ctx, show.ID, "", time.Time{}, nil)
		assert.ErrorIs(t, err, service.ErrValidation)
		_, err = shows.CreateShowInstance(ctx, show.ID, "01/01/2031", start, nil)
		assert.ErrorIs(t, err, service.ErrValidation)
		_, err = shows.CreateShowInstance(ctx, show.ID, "", start, &before)
		assert.ErrorIs(t, err, service.ErrValidation)
		_, err = shows.CreateShowInstance(ctx, 4242, "", start, nil)
		assert.ErrorIs(t, err, repository.ErrShowNotFound)

		_, err = shows.CreateShow(ctx, 0, "x", 0)
		assert.ErrorIs(t, err, service.ErrValidation)
		_, err = shows.CreateShow(ctx, 9, " ", 0)
		assert.ErrorIs(t, err, service.ErrValidation)
		_, err = shows.CreateShow(ctx, 9, "Late", 0)
		assert.ErrorIs(t, err, repository.ErrConflict)

		_, err = shows.ListShowInstances(ctx, 4242)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestListShowsIsPerStation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		shows, _ := newShowService(store)
		for _, name := range []string{"Weekend", "Breakfast"} {
			_, err := shows.CreateShow(ctx, 11, name, 0)
			require.NoError(t, err)
		}
		_, err := shows.CreateShow(ctx, 12, "Other", 0)
		require.NoError(t, err)

		list, err := shows.ListShows(ctx, 11)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Breakfast", list[0].Name)
		assert.Equal(t, "Weekend", list[1].Name)
	})
}

func TestCreateShowInstanceRollsBackWhenRundownFails(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	shows, _ := newShowService(store)

	show, err := shows.CreateShow(ctx, 1, "Drive Time", 1800)
	require.NoError(t, err)

	start := time.Date(2031, 7, 1, 17, 0, 0, 0, time.UTC)
	store.FailOn("CreateRundown", repository.ErrUnavailable)
	_, err = shows.CreateShowInstance(ctx, show.ID, "", start, nil)
	require.ErrorIs(t, err, repository.ErrUnavailable)

	list, err := shows.ListShowInstances(ctx, show.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// The slot is free again: the failed airing left nothing behind.
	si, err := shows.CreateShowInstance(ctx, show.ID, "", start, nil)
	require.NoError(t, err)
	require.NotNil(t, si.Rundown)
}

func TestStationLookups(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		shows, rundowns := newShowService(store)

		show, err := shows.CreateShow(ctx, 7, "Late Bulletin", 600)
		require.NoError(t, err)
		si, err := shows.CreateShowInstance(ctx, show.ID, "", time.Date(2031, 8, 1, 23, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
		item, err := rundowns.AddItem(ctx, si.Rundown.ID, draft("Headlines", model.SegmentStory, 60))
		require.NoError(t, err)

		station, err := rundowns.RundownStation(ctx, si.Rundown.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), station)

		station, err = rundowns.ItemStation(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), station)

		_, err = rundowns.ItemStation(ctx, item.ID+1000)
		assert.ErrorIs(t, err, repository.ErrItemNotFound)
	})
}
