// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/newsroom-rundown/internal/database"
	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
)

var seq atomic.Uint64

// MustOpenSQLiteStore opens a migrated SQLite store in a temp dir and
// registers cleanup.
func MustOpenSQLiteStore(t testing.TB) *repository.SQLStore {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "newsroom.db"))
	if err != nil {
		t.Fatalf("database.OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := database.Migrate(context.Background(), db, repository.DialectSQLite); err != nil {
		t.Fatalf("database.Migrate: %v", err)
	}
	return repository.NewSQLStore(db, repository.DialectSQLite)
}

// SeedRundown creates a show, one airing and its empty rundown directly
// through the store.
func SeedRundown(t testing.TB, store repository.Store) *model.Rundown {
	t.Helper()

	ctx := context.Background()
	n := seq.Add(1)
	var rd *model.Rundown
	err := store.InTx(ctx, func(tx repository.Store) error {
		show := &model.Show{StationID: 1, Name: fmt.Sprintf("Show %d", n), DefaultDuration: 1800}
		if err := tx.CreateShow(ctx, show); err != nil {
			return err
		}
		start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Hour)
		si := &model.ShowInstance{
			ShowID:   show.ID,
			AirDate:  start.Format(model.AirDateLayout),
			StartsAt: start,
			EndsAt:   start.Add(30 * time.Minute),
		}
		if err := tx.CreateShowInstance(ctx, si); err != nil {
			return err
		}
		rd = &model.Rundown{ShowInstanceID: si.ID, Status: model.RundownDraft}
		return tx.CreateRundown(ctx, rd)
	})
	if err != nil {
		t.Fatalf("seed rundown: %v", err)
	}
	return rd
}

// AddItemAt inserts an item directly at pos, bypassing the service.
func AddItemAt(t testing.TB, store repository.Store, rundownID uint64, title string, pos, duration int) *model.RundownItem {
	t.Helper()

	it := &model.RundownItem{
		RundownID:       rundownID,
		Type:            model.SegmentStory,
		Title:           title,
		PlannedDuration: duration,
		Position:        pos,
	}
	if err := store.InsertItem(context.Background(), it); err != nil {
		t.Fatalf("insert item %q: %v", title, err)
	}
	return it
}
