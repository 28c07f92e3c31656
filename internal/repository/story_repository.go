package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/newsroom-rundown/internal/model"
)

const storyColumns = `id, station_id, title, body, status, source, source_ref, word_count, created_at, updated_at`

// DefaultStoryLimit caps ListStories when the caller passes no limit.
const DefaultStoryLimit = 50

func scanStory(row rowScanner) (*model.Story, error) {
	var (
		st               model.Story
		status           string
		ref              sql.NullString
		created, updated dbTime
	)
	if err := row.Scan(&st.ID, &st.StationID, &st.Title, &st.Body, &status, &st.Source, &ref,
		&st.WordCount, &created, &updated); err != nil {
		return nil, err
	}
	st.Status = model.StoryStatus(status)
	st.SourceRef = stringPtr(ref)
	st.CreatedAt, st.UpdatedAt = created.t, updated.t
	return &st, nil
}

// CreateStory inserts a story.  Importing the same (source, source_ref)
// twice yields ErrConflict.
func (s *SQLStore) CreateStory(ctx context.Context, st *model.Story) error {
	if st.Status == "" {
		st.Status = model.StoryDraft
	}
	const q = `INSERT INTO stories (station_id, title, body, status, source, source_ref, word_count)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := s.q.ExecContext(ctx, q, st.StationID, st.Title, st.Body, string(st.Status), st.Source,
		nullString(st.SourceRef), st.WordCount)
	if err != nil {
		return s.wrap("insert story", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return s.wrap("story id", err)
	}
	fresh, err := s.GetStory(ctx, uint64(id))
	if err != nil {
		return err
	}
	*st = *fresh
	return nil
}

// GetStory retrieves a story by ID.
func (s *SQLStore) GetStory(ctx context.Context, storyID uint64) (*model.Story, error) {
	return s.getStory(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = ?`, storyID)
}

// FindStoryBySourceRef looks up an imported story by its feed identity.
func (s *SQLStore) FindStoryBySourceRef(ctx context.Context, source, ref string) (*model.Story, error) {
	return s.getStory(ctx, `SELECT `+storyColumns+` FROM stories WHERE source = ? AND source_ref = ?`, source, ref)
}

func (s *SQLStore) getStory(ctx context.Context, q string, args ...any) (*model.Story, error) {
	st, err := scanStory(s.q.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStoryNotFound
		}
		return nil, s.wrap("select story", err)
	}
	return st, nil
}

// ListStories returns the newest stories of a station, optionally
// filtered by status.
func (s *SQLStore) ListStories(ctx context.Context, stationID uint64, status model.StoryStatus, limit int) ([]model.Story, error) {
	if limit <= 0 {
		limit = DefaultStoryLimit
	}
	q := `SELECT ` + storyColumns + ` FROM stories WHERE station_id = ?`
	args := []any{stationID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.wrap("list stories", err)
	}
	defer rows.Close()
	result := make([]model.Story, 0)
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, s.wrap("scan story", err)
		}
		result = append(result, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list stories", err)
	}
	return result, nil
}
