package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/newsroom-rundown/internal/logging"
	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
	"github.com/iliyamo/newsroom-rundown/internal/service"
	"github.com/iliyamo/newsroom-rundown/internal/testsupport"
)

func TestCreateAndListStories(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		stories := service.NewStoryService(store, logging.Discard())

		st, err := stories.CreateStory(ctx, 2, "<b>Flood</b> warning", `<p onclick="x()">River is rising fast</p>`)
		require.NoError(t, err)
		assert.Equal(t, "Flood warning", st.Title)
		assert.Equal(t, "<p>River is rising fast</p>", st.Body)
		assert.Equal(t, 4, st.WordCount)
		assert.Equal(t, model.StoryDraft, st.Status)
		assert.Equal(t, service.SourceManual, st.Source)

		got, err := stories.GetStory(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, st.Title, got.Title)

		list, err := stories.ListStories(ctx, 2, "draft", 0)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		list, err = stories.ListStories(ctx, 3, "", 0)
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = stories.ListStories(ctx, 2, "PUBLISHED", 0)
		assert.ErrorIs(t, err, service.ErrValidation)
		_, err = stories.CreateStory(ctx, 2, "<i></i>", "body")
		assert.ErrorIs(t, err, service.ErrValidation)
		_, err = stories.GetStory(ctx, 999)
		assert.ErrorIs(t, err, repository.ErrStoryNotFound)
	})
}

func TestImportStoryIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		stories := service.NewStoryService(store, logging.Discard())

		first, created, err := stories.ImportStory(ctx, 1, "apwire", "guid-42", "Quake", "<p>Strong quake</p>")
		require.NoError(t, err)
		assert.True(t, created)
		require.NotNil(t, first.SourceRef)
		assert.Equal(t, "guid-42", *first.SourceRef)

		again, created, err := stories.ImportStory(ctx, 1, "apwire", "guid-42", "Quake (updated)", "")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, "Quake", again.Title)

		_, _, err = stories.ImportStory(ctx, 1, "apwire", "", "No id", "")
		assert.ErrorIs(t, err, service.ErrValidation)
	})
}

func TestStoryLinkedItem(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		stories := service.NewStoryService(store, logging.Discard())
		rundowns := newRundownService(store, nil)
		rd := testsupport.SeedRundown(t, store)

		st, err := stories.CreateStory(ctx, 1, "Budget", "<p>Numbers</p>")
		require.NoError(t, err)
		it, err := rundowns.AddItem(ctx, rd.ID, model.ItemDraft{
			Type: model.SegmentStory, Title: "Budget", PlannedDuration: 90, StoryID: &st.ID,
		})
		require.NoError(t, err)
		require.NotNil(t, it.StoryID)
		assert.Equal(t, st.ID, *it.StoryID)
	})
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":          nil,
		"validation":  &service.ValidationError{Field: "title", Message: "must not be empty"},
		"not_found":   repository.ErrItemNotFound,
		"conflict":    repository.ErrConflict,
		"unavailable": repository.ErrUnavailable,
		"cancelled":   context.Canceled,
		"error":       errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, service.Outcome(err))
	}
}
