package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
)

// DefaultShowDuration is used when a show is created without one.
const DefaultShowDuration = 3600

// ShowSchedulingService manages shows and their airings.  Creating an
// airing also creates its empty rundown in the same transaction.
type ShowSchedulingService struct {
	store    repository.Store
	rundowns *RundownService
	log      logrus.FieldLogger
}

func NewShowSchedulingService(store repository.Store, rundowns *RundownService, log logrus.FieldLogger) *ShowSchedulingService {
	return &ShowSchedulingService{store: store, rundowns: rundowns, log: log}
}

// CreateShow registers a show on a station.  A zero default duration
// means one hour.
func (s *ShowSchedulingService) CreateShow(ctx context.Context, stationID uint64, name string, defaultDuration int) (show *model.Show, err error) {
	defer observe("CreateShow", time.Now(), &err)

	name = strings.TrimSpace(name)
	switch {
	case stationID == 0:
		return nil, invalid("station_id", "is required")
	case name == "":
		return nil, invalid("name", "must not be empty")
	case len(name) > 255:
		return nil, invalid("name", "must be at most 255 characters")
	case defaultDuration < 0:
		return nil, invalid("default_duration", "must not be negative")
	case defaultDuration == 0:
		defaultDuration = DefaultShowDuration
	}

	show = &model.Show{StationID: stationID, Name: name, DefaultDuration: defaultDuration}
	if err := s.store.CreateShow(ctx, show); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"show_id": show.ID, "station_id": stationID}).Info("show created")
	return show, nil
}

// GetShow returns a show by ID.
func (s *ShowSchedulingService) GetShow(ctx context.Context, showID uint64) (*model.Show, error) {
	return s.store.GetShow(ctx, showID)
}

// ListShows returns the shows of a station ordered by name.
func (s *ShowSchedulingService) ListShows(ctx context.Context, stationID uint64) ([]model.Show, error) {
	return s.store.ListShowsByStation(ctx, stationID)
}

// CreateShowInstance schedules an airing of showID and creates its empty
// rundown.  airDate defaults to the UTC date of startsAt and endsAt to
// startsAt plus the show's default duration.  An airing overlapping
// another one on the same station is a Conflict.  Either both the airing
// and its rundown are stored or neither is.
func (s *ShowSchedulingService) CreateShowInstance(ctx context.Context, showID uint64, airDate string, startsAt time.Time, endsAt *time.Time) (si *model.ShowInstance, err error) {
	defer observe("CreateShowInstance", time.Now(), &err)

	if startsAt.IsZero() {
		return nil, invalid("starts_at", "is required")
	}
	startsAt = startsAt.UTC().Truncate(time.Second)
	airDate = strings.TrimSpace(airDate)
	if airDate == "" {
		airDate = startsAt.Format(model.AirDateLayout)
	} else if _, perr := time.Parse(model.AirDateLayout, airDate); perr != nil {
		return nil, invalid("air_date", "must be YYYY-MM-DD")
	}
	if endsAt != nil && !endsAt.After(startsAt) {
		return nil, invalid("ends_at", "must be after starts_at")
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		show, err := tx.LockShow(ctx, showID)
		if err != nil {
			return err
		}
		end := startsAt.Add(time.Duration(show.DefaultDuration) * time.Second)
		if endsAt != nil {
			end = endsAt.UTC().Truncate(time.Second)
		}
		if !end.After(startsAt) {
			return invalid("ends_at", "must be after starts_at")
		}

		overlaps, err := tx.FindOverlappingInstances(ctx, show.StationID,
			startsAt.Format(repository.TimeLayout), end.Format(repository.TimeLayout))
		if err != nil {
			return err
		}
		if len(overlaps) > 0 {
			return fmt.Errorf("airing overlaps show instance %d: %w", overlaps[0].ID, repository.ErrConflict)
		}

		inst := &model.ShowInstance{ShowID: showID, AirDate: airDate, StartsAt: startsAt, EndsAt: end}
		if err := tx.CreateShowInstance(ctx, inst); err != nil {
			return err
		}
		rd, err := s.rundowns.CreateEmptyRundownTx(ctx, tx, inst.ID)
		if err != nil {
			return err
		}
		inst.Rundown = rd
		si = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"show_id": showID, "show_instance_id": si.ID, "rundown_id": si.Rundown.ID}).Info("show instance scheduled")
	return si, nil
}

// GetShowInstance returns an airing with its rundown.
func (s *ShowSchedulingService) GetShowInstance(ctx context.Context, instanceID uint64) (si *model.ShowInstance, err error) {
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		inst, err := tx.GetShowInstance(ctx, instanceID)
		if err != nil {
			return err
		}
		if inst.Rundown, err = s.rundowns.GetRundownForInstanceTx(ctx, tx, instanceID); err != nil {
			return err
		}
		si = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return si, nil
}

// ListShowInstances returns the airings of a show ordered by start.
func (s *ShowSchedulingService) ListShowInstances(ctx context.Context, showID uint64) (list []model.ShowInstance, err error) {
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetShow(ctx, showID); err != nil {
			return err
		}
		list, err = tx.ListShowInstances(ctx, showID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
