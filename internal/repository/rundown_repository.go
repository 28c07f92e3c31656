package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/newsroom-rundown/internal/model"
)

const rundownColumns = `id, show_instance_id, status, total_duration, created_at, updated_at`

const itemColumns = `id, rundown_id, type, title, planned_duration, position, status, script, notes, story_id, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRundown(row rowScanner) (*model.Rundown, error) {
	var (
		r                model.Rundown
		status           string
		created, updated dbTime
	)
	if err := row.Scan(&r.ID, &r.ShowInstanceID, &status, &r.TotalDuration, &created, &updated); err != nil {
		return nil, err
	}
	r.Status = model.RundownStatus(status)
	r.CreatedAt, r.UpdatedAt = created.t, updated.t
	return &r, nil
}

func scanItem(row rowScanner) (*model.RundownItem, error) {
	var (
		it               model.RundownItem
		typ, status      string
		script, notes    sql.NullString
		storyID          sql.NullInt64
		created, updated dbTime
	)
	if err := row.Scan(&it.ID, &it.RundownID, &typ, &it.Title, &it.PlannedDuration, &it.Position,
		&status, &script, &notes, &storyID, &created, &updated); err != nil {
		return nil, err
	}
	it.Type = model.SegmentType(typ)
	it.Status = model.ItemStatus(status)
	it.Script, it.Notes = stringPtr(script), stringPtr(notes)
	it.StoryID = uintPtr(storyID)
	it.CreatedAt, it.UpdatedAt = created.t, updated.t
	return &it, nil
}

// CreateRundown inserts a rundown row.  Status defaults to DRAFT when
// empty.  A second rundown for the same show instance is a conflict.
func (s *SQLStore) CreateRundown(ctx context.Context, r *model.Rundown) error {
	if r.Status == "" {
		r.Status = model.RundownDraft
	}
	const q = `INSERT INTO rundowns (show_instance_id, status, total_duration) VALUES (?, ?, ?)`
	res, err := s.q.ExecContext(ctx, q, r.ShowInstanceID, string(r.Status), r.TotalDuration)
	if err != nil {
		return s.wrap("insert rundown", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return s.wrap("rundown id", err)
	}
	fresh, err := s.GetRundown(ctx, uint64(id))
	if err != nil {
		return err
	}
	*r = *fresh
	return nil
}

// GetRundown retrieves a rundown by its ID.  It returns
// ErrRundownNotFound if there is no matching row.
func (s *SQLStore) GetRundown(ctx context.Context, rundownID uint64) (*model.Rundown, error) {
	return s.getRundown(ctx, `SELECT `+rundownColumns+` FROM rundowns WHERE id = ?`, rundownID)
}

// RundownStation resolves rundown -> show instance -> show.
func (s *SQLStore) RundownStation(ctx context.Context, rundownID uint64) (uint64, error) {
	const q = `SELECT sh.station_id FROM rundowns r
JOIN show_instances si ON si.id = r.show_instance_id
JOIN shows sh ON sh.id = si.show_id
WHERE r.id = ?`
	var station uint64
	if err := s.q.QueryRowContext(ctx, q, rundownID).Scan(&station); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrRundownNotFound
		}
		return 0, s.wrap("rundown station", err)
	}
	return station, nil
}

// GetRundownByInstance retrieves the rundown owned by a show instance.
func (s *SQLStore) GetRundownByInstance(ctx context.Context, showInstanceID uint64) (*model.Rundown, error) {
	return s.getRundown(ctx, `SELECT `+rundownColumns+` FROM rundowns WHERE show_instance_id = ?`, showInstanceID)
}

// LockRundown is GetRundown taking a row lock when bound to a
// transaction, so concurrent writers of one rundown queue up behind it.
func (s *SQLStore) LockRundown(ctx context.Context, rundownID uint64) (*model.Rundown, error) {
	q := `SELECT ` + rundownColumns + ` FROM rundowns WHERE id = ?`
	if s.tx != nil {
		q += s.dialect.lockSuffix()
	}
	return s.getRundown(ctx, q, rundownID)
}

func (s *SQLStore) getRundown(ctx context.Context, q string, arg uint64) (*model.Rundown, error) {
	r, err := scanRundown(s.q.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRundownNotFound
		}
		return nil, s.wrap("select rundown", err)
	}
	return r, nil
}

// UpdateRundownStatus sets the workflow status of a rundown.
func (s *SQLStore) UpdateRundownStatus(ctx context.Context, rundownID uint64, status model.RundownStatus) error {
	return s.updateRundown(ctx, `UPDATE rundowns SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, string(status), rundownID)
}

// UpdateRundownTotalDuration persists the aggregated duration.
func (s *SQLStore) UpdateRundownTotalDuration(ctx context.Context, rundownID uint64, total int) error {
	return s.updateRundown(ctx, `UPDATE rundowns SET total_duration = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, total, rundownID)
}

func (s *SQLStore) updateRundown(ctx context.Context, q string, value any, rundownID uint64) error {
	// MySQL reports zero affected rows when nothing changed, so existence
	// is checked separately.
	if _, err := s.GetRundown(ctx, rundownID); err != nil {
		return err
	}
	if _, err := s.q.ExecContext(ctx, q, value, rundownID); err != nil {
		return s.wrap("update rundown", err)
	}
	return nil
}

// GetItem retrieves a rundown item by its ID.  It returns
// ErrItemNotFound when no row is found.
func (s *SQLStore) GetItem(ctx context.Context, itemID uint64) (*model.RundownItem, error) {
	it, err := scanItem(s.q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM rundown_items WHERE id = ?`, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, s.wrap("select rundown item", err)
	}
	return it, nil
}

// FindMaxPosition returns the highest position used in the rundown.
func (s *SQLStore) FindMaxPosition(ctx context.Context, rundownID uint64) (int, bool, error) {
	var max sql.NullInt64
	if err := s.q.QueryRowContext(ctx, `SELECT MAX(position) FROM rundown_items WHERE rundown_id = ?`, rundownID).Scan(&max); err != nil {
		return 0, false, s.wrap("select max position", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

// InsertItem inserts a segment at item.Position.  The unique key on
// (rundown_id, position) turns a lost race into ErrConflict.
func (s *SQLStore) InsertItem(ctx context.Context, item *model.RundownItem) error {
	if item.Status == "" {
		item.Status = model.ItemPending
	}
	const q = `INSERT INTO rundown_items (rundown_id, type, title, planned_duration, position, status, script, notes, story_id)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.q.ExecContext(ctx, q,
		item.RundownID, string(item.Type), item.Title, item.PlannedDuration, item.Position,
		string(item.Status), nullString(item.Script), nullString(item.Notes), nullUint(item.StoryID),
	)
	if err != nil {
		return s.wrap("insert rundown item", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return s.wrap("rundown item id", err)
	}
	fresh, err := s.GetItem(ctx, uint64(id))
	if err != nil {
		return err
	}
	*item = *fresh
	return nil
}

// UpdateItemFields writes the set fields of patch.  Position and type
// are never touched here.
func (s *SQLStore) UpdateItemFields(ctx context.Context, itemID uint64, patch model.ItemPatch) (*model.RundownItem, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *patch.Title)
	}
	if patch.PlannedDuration != nil {
		sets, args = append(sets, "planned_duration = ?"), append(args, *patch.PlannedDuration)
	}
	if patch.Script != nil {
		sets, args = append(sets, "script = ?"), append(args, *patch.Script)
	}
	if patch.Notes != nil {
		sets, args = append(sets, "notes = ?"), append(args, *patch.Notes)
	}
	if patch.Status != nil {
		sets, args = append(sets, "status = ?"), append(args, string(*patch.Status))
	}
	if len(sets) > 0 {
		q := `UPDATE rundown_items SET ` + strings.Join(sets, ", ") + `, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
		if _, err := s.q.ExecContext(ctx, q, append(args, itemID)...); err != nil {
			return nil, s.wrap("update rundown item", err)
		}
	}
	return s.GetItem(ctx, itemID)
}

// DeleteItem removes a segment and returns the row as it was.  Sibling
// positions are left alone; renumbering is the caller's batch.
func (s *SQLStore) DeleteItem(ctx context.Context, itemID uint64) (*model.RundownItem, error) {
	it, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM rundown_items WHERE id = ?`, itemID); err != nil {
		return nil, s.wrap("delete rundown item", err)
	}
	return it, nil
}

// ListItems returns all segments of a rundown ordered by ID.  Callers
// that need playback order sort by Position themselves.
func (s *SQLStore) ListItems(ctx context.Context, rundownID uint64) ([]model.RundownItem, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+itemColumns+` FROM rundown_items WHERE rundown_id = ? ORDER BY id`, rundownID)
	if err != nil {
		return nil, s.wrap("list rundown items", err)
	}
	defer rows.Close()
	items := make([]model.RundownItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, s.wrap("scan rundown item", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list rundown items", err)
	}
	return items, nil
}

// BatchUpdatePositions applies all position updates inside one
// transaction.  Rows are first parked at -(position+1) and then flipped
// back, so the unique key on (rundown_id, position) never sees two rows
// sharing a slot halfway through the batch.
func (s *SQLStore) BatchUpdatePositions(ctx context.Context, rundownID uint64, updates []model.PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	if err := checkBatch(updates); err != nil {
		return err
	}
	if s.tx == nil {
		return s.InTx(ctx, func(tx Store) error {
			return tx.BatchUpdatePositions(ctx, rundownID, updates)
		})
	}
	const park = `UPDATE rundown_items SET position = ? WHERE id = ? AND rundown_id = ?`
	for _, u := range updates {
		res, err := s.q.ExecContext(ctx, park, -(u.Position + 1), u.ItemID, rundownID)
		if err != nil {
			return s.wrap("park item position", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("item %d in rundown %d: %w", u.ItemID, rundownID, ErrItemNotFound)
		}
	}
	const flip = `UPDATE rundown_items SET position = -position - 1, updated_at = CURRENT_TIMESTAMP
                  WHERE rundown_id = ? AND position < 0`
	if _, err := s.q.ExecContext(ctx, flip, rundownID); err != nil {
		return s.wrap("apply item positions", err)
	}
	return nil
}

// checkBatch rejects batches that could never leave a valid ordering.
func checkBatch(updates []model.PositionUpdate) error {
	seenItem := make(map[uint64]struct{}, len(updates))
	seenPos := make(map[int]struct{}, len(updates))
	for _, u := range updates {
		if u.Position < 0 {
			return fmt.Errorf("negative position %d for item %d", u.Position, u.ItemID)
		}
		if _, dup := seenItem[u.ItemID]; dup {
			return fmt.Errorf("item %d appears twice in batch", u.ItemID)
		}
		if _, dup := seenPos[u.Position]; dup {
			return fmt.Errorf("position %d assigned twice in batch: %w", u.Position, ErrConflict)
		}
		seenItem[u.ItemID] = struct{}{}
		seenPos[u.Position] = struct{}{}
	}
	return nil
}
