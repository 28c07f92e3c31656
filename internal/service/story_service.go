package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
	"github.com/iliyamo/newsroom-rundown/internal/utils"
)

// SourceManual marks stories written in the newsroom.
const SourceManual = "manual"

// StoryService manages the stories STORY segments can reference.
type StoryService struct {
	store repository.Store
	log   logrus.FieldLogger
}

func NewStoryService(store repository.Store, log logrus.FieldLogger) *StoryService {
	return &StoryService{store: store, log: log}
}

// CreateStory stores a DRAFT story written by an editor.  The body is
// sanitised before it is stored.
func (s *StoryService) CreateStory(ctx context.Context, stationID uint64, title, body string) (st *model.Story, err error) {
	defer observe("CreateStory", time.Now(), &err)

	if stationID == 0 {
		return nil, invalid("station_id", "is required")
	}
	title, err = normalizeTitle(utils.StripHTML(title))
	if err != nil {
		return nil, err
	}
	body = utils.SanitizeHTML(body)
	st = &model.Story{
		StationID: stationID,
		Title:     title,
		Body:      body,
		Status:    model.StoryDraft,
		Source:    SourceManual,
		WordCount: utils.WordCount(body),
	}
	if err := s.store.CreateStory(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// GetStory returns a story by ID.
func (s *StoryService) GetStory(ctx context.Context, storyID uint64) (*model.Story, error) {
	return s.store.GetStory(ctx, storyID)
}

// ListStories returns the newest stories of a station.  status may be
// empty to list all.
func (s *StoryService) ListStories(ctx context.Context, stationID uint64, status string, limit int) ([]model.Story, error) {
	st := model.StoryStatus(strings.ToUpper(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return nil, invalid("status", "must be DRAFT, SUBMITTED or APPROVED")
	}
	if limit < 0 || limit > 200 {
		return nil, invalid("limit", "must be between 0 and 200")
	}
	return s.store.ListStories(ctx, stationID, st, limit)
}

// ImportStory stores an entry from a wire feed unless (source, ref) was
// imported before.  created reports whether a new story was written.
func (s *StoryService) ImportStory(ctx context.Context, stationID uint64, source, ref, title, body string) (st *model.Story, created bool, err error) {
	source, ref = strings.TrimSpace(source), strings.TrimSpace(ref)
	if source == "" || ref == "" {
		return nil, false, invalid("source_ref", "wire entries need a source and an id")
	}
	title, err = normalizeTitle(utils.StripHTML(title))
	if err != nil {
		return nil, false, err
	}
	body = utils.SanitizeHTML(body)

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		existing, err := tx.FindStoryBySourceRef(ctx, source, ref)
		if err == nil {
			st = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		st = &model.Story{
			StationID: stationID,
			Title:     title,
			Body:      body,
			Status:    model.StoryDraft,
			Source:    source,
			SourceRef: &ref,
			WordCount: utils.WordCount(body),
		}
		created = true
		return tx.CreateStory(ctx, st)
	})
	if errors.Is(err, repository.ErrConflict) {
		// Imported concurrently by someone else.
		st, err = s.store.FindStoryBySourceRef(ctx, source, ref)
		created = false
	}
	if err != nil {
		return nil, false, err
	}
	if created {
		s.log.WithFields(logrus.Fields{"story_id": st.ID, "source": source}).Debug("wire story imported")
	}
	return st, created, nil
}
