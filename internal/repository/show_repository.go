package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/newsroom-rundown/internal/model"
)

const showColumns = `id, station_id, name, default_duration, created_at, updated_at`

const instanceColumns = `si.id, si.show_id, si.air_date, si.starts_at, si.ends_at, si.created_at`

func scanShow(row rowScanner) (*model.Show, error) {
	var (
		s                model.Show
		created, updated dbTime
	)
	if err := row.Scan(&s.ID, &s.StationID, &s.Name, &s.DefaultDuration, &created, &updated); err != nil {
		return nil, err
	}
	s.CreatedAt, s.UpdatedAt = created.t, updated.t
	return &s, nil
}

func scanInstance(row rowScanner) (*model.ShowInstance, error) {
	var (
		si                    model.ShowInstance
		starts, ends, created dbTime
	)
	if err := row.Scan(&si.ID, &si.ShowID, &si.AirDate, &starts, &ends, &created); err != nil {
		return nil, err
	}
	si.StartsAt, si.EndsAt, si.CreatedAt = starts.t, ends.t, created.t
	return &si, nil
}

// CreateShow inserts a new show and populates its ID and timestamps.
// A duplicate name on the same station yields ErrConflict.
func (s *SQLStore) CreateShow(ctx context.Context, sh *model.Show) error {
	const q = `INSERT INTO shows (station_id, name, default_duration) VALUES (?, ?, ?)`
	res, err := s.q.ExecContext(ctx, q, sh.StationID, sh.Name, sh.DefaultDuration)
	if err != nil {
		return s.wrap("insert show", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return s.wrap("show id", err)
	}
	fresh, err := s.GetShow(ctx, uint64(id))
	if err != nil {
		return err
	}
	*sh = *fresh
	return nil
}

// GetShow retrieves a show by its ID.  It returns ErrShowNotFound if
// there is no matching row.
func (s *SQLStore) GetShow(ctx context.Context, showID uint64) (*model.Show, error) {
	return s.getShow(ctx, `SELECT `+showColumns+` FROM shows WHERE id = ?`, showID)
}

// LockShow is GetShow with a row lock inside a transaction.
func (s *SQLStore) LockShow(ctx context.Context, showID uint64) (*model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows WHERE id = ?`
	if s.tx != nil {
		q += s.dialect.lockSuffix()
	}
	return s.getShow(ctx, q, showID)
}

func (s *SQLStore) getShow(ctx context.Context, q string, showID uint64) (*model.Show, error) {
	sh, err := scanShow(s.q.QueryRowContext(ctx, q, showID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, s.wrap("select show", err)
	}
	return sh, nil
}

// ListShowsByStation returns the station's shows ordered by name.  When
// none exist it returns an empty slice and nil error.
func (s *SQLStore) ListShowsByStation(ctx context.Context, stationID uint64) ([]model.Show, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+showColumns+` FROM shows WHERE station_id = ? ORDER BY name ASC`, stationID)
	if err != nil {
		return nil, s.wrap("list shows", err)
	}
	defer rows.Close()
	result := make([]model.Show, 0)
	for rows.Next() {
		sh, err := scanShow(rows)
		if err != nil {
			return nil, s.wrap("scan show", err)
		}
		result = append(result, *sh)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list shows", err)
	}
	return result, nil
}

// CreateShowInstance inserts an airing.  The caller is expected to have
// checked for overlaps and to create the rundown in the same transaction.
func (s *SQLStore) CreateShowInstance(ctx context.Context, si *model.ShowInstance) error {
	const q = `INSERT INTO show_instances (show_id, air_date, starts_at, ends_at) VALUES (?, ?, ?, ?)`
	res, err := s.q.ExecContext(ctx, q, si.ShowID, si.AirDate, formatTime(si.StartsAt), formatTime(si.EndsAt))
	if err != nil {
		return s.wrap("insert show instance", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return s.wrap("show instance id", err)
	}
	fresh, err := s.GetShowInstance(ctx, uint64(id))
	if err != nil {
		return err
	}
	*si = *fresh
	return nil
}

// GetShowInstance retrieves an airing without its rundown.
func (s *SQLStore) GetShowInstance(ctx context.Context, instanceID uint64) (*model.ShowInstance, error) {
	si, err := scanInstance(s.q.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM show_instances si WHERE si.id = ?`, instanceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowInstanceNotFound
		}
		return nil, s.wrap("select show instance", err)
	}
	return si, nil
}

// ListShowInstances returns the airings of a show ordered by start time.
func (s *SQLStore) ListShowInstances(ctx context.Context, showID uint64) ([]model.ShowInstance, error) {
	const q = `SELECT ` + instanceColumns + ` FROM show_instances si WHERE si.show_id = ? ORDER BY si.starts_at ASC`
	return s.listInstances(ctx, "list show instances", q, showID)
}

// FindOverlappingInstances finds all airings on the station whose
// scheduled time overlaps [start, end).  An airing overlaps when it
// starts before the proposed end and ends after the proposed start.
// Time strings use TimeLayout.
func (s *SQLStore) FindOverlappingInstances(ctx context.Context, stationID uint64, start, end string) ([]model.ShowInstance, error) {
	const q = `SELECT ` + instanceColumns + `
               FROM show_instances si
               JOIN shows sh ON sh.id = si.show_id
               WHERE sh.station_id = ? AND NOT (si.ends_at <= ? OR si.starts_at >= ?)`
	return s.listInstances(ctx, "find overlapping instances", q, stationID, start, end)
}

func (s *SQLStore) listInstances(ctx context.Context, op, q string, args ...any) ([]model.ShowInstance, error) {
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.wrap(op, err)
	}
	defer rows.Close()
	result := make([]model.ShowInstance, 0)
	for rows.Next() {
		si, err := scanInstance(rows)
		if err != nil {
			return nil, s.wrap(op, err)
		}
		result = append(result, *si)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(op, err)
	}
	return result, nil
}
