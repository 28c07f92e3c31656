package memstore

import (
	"context"

	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Outside InTx every method is its own transaction.

func (m *Store) CreateRundown(ctx context.Context, r *model.Rundown) error {
	return m.InTx(ctx, func(tx repository.Store) error { return tx.CreateRundown(ctx, r) })
}

func (m *Store) GetRundown(ctx context.Context, rundownID uint64) (*model.Rundown, error) {
	return view(ctx, m, func(tx repository.Store) (*model.Rundown, error) { return tx.GetRundown(ctx, rundownID) })
}

func (m *Store) RundownStation(ctx context.Context, rundownID uint64) (uint64, error) {
	return view(ctx, m, func(tx repository.Store) (uint64, error) { return tx.RundownStation(ctx, rundownID) })
}

func (m *Store) GetRundownByInstance(ctx context.Context, showInstanceID uint64) (*model.Rundown, error) {
	return view(ctx, m, func(tx repository.Store) (*model.Rundown, error) {
		return tx.GetRundownByInstance(ctx, showInstanceID)
	})
}

func (m *Store) LockRundown(ctx context.Context, rundownID uint64) (*model.Rundown, error) {
	return view(ctx, m, func(tx repository.Store) (*model.Rundown, error) { return tx.LockRundown(ctx, rundownID) })
}

func (m *Store) UpdateRundownStatus(ctx context.Context, rundownID uint64, status model.RundownStatus) error {
	return m.InTx(ctx, func(tx repository.Store) error { return tx.UpdateRundownStatus(ctx, rundownID, status) })
}

func (m *Store) UpdateRundownTotalDuration(ctx context.Context, rundownID uint64, total int) error {
	return m.InTx(ctx, func(tx repository.Store) error { return tx.UpdateRundownTotalDuration(ctx, rundownID, total) })
}

func (m *Store) GetItem(ctx context.Context, itemID uint64) (*model.RundownItem, error) {
	return view(ctx, m, func(tx repository.Store) (*model.RundownItem, error) { return tx.GetItem(ctx, itemID) })
}

func (m *Store) FindMaxPosition(ctx context.Context, rundownID uint64) (int, bool, error) {
	var (
		pos int
		ok  bool
	)
	err := m.InTx(ctx, func(tx repository.Store) error {
		var err error
		pos, ok, err = tx.FindMaxPosition(ctx, rundownID)
		return err
	})
	return pos, ok, err
}

func (m *Store) InsertItem(ctx context.Context, item *model.RundownItem) error {
	return m.InTx(ctx, func(tx repository.Store) error { return tx.InsertItem(ctx, item) })
}

func (m *Store) UpdateItemFields(ctx context.Context, itemID uint64, patch model.ItemPatch) (*model.RundownItem, error) {
	return view(ctx, m, func(tx repository.Store) (*model.RundownItem, error) {
		return tx.UpdateItemFields(ctx, itemID, patch)
	})
}

func (m *Store) DeleteItem(ctx context.Context, itemID uint64) (*model.RundownItem, error) {
	return view(ctx, m, func(tx repository.Store) (*model.RundownItem, error) { return tx.DeleteItem(ctx, itemID) })
}

func (m *Store) ListItems(ctx context.Context, rundownID uint64) ([]model.RundownItem, error) {
	return view(ctx, m, func(tx repository.Store) ([]model.RundownItem, error) { return tx.ListItems(ctx, rundownID) })
}

func (m *Store) BatchUpdatePositions(ctx context.Context, rundownID uint64, updates []model.PositionUpdate) error {
	return m.InTx(ctx, func(tx repository.Store) error { return tx.BatchUpdatePositions(ctx, rundownID, updates) })
}

func (m *Store) CreateShow(ctx context.Context, s *model.Show) error {
	return m.InTx(ctx, func(tx repository.Store) error { return tx.CreateShow(ctx, s) })
}

func (m *Store) GetShow(ctx context.Context, showID uint64) (*model.Show, error) {
	return view(ctx, m, func(tx repository.Store) (*model.Show, error) { return tx.GetShow(ctx, showID) })
}

func (m *Store) LockShow(ctx context.Context, showID uint64) (*model.Show, error) {
	return view(ctx, m, func(tx repository.Store) (*model.Show, error) { return tx.LockShow(ctx, showID) })
}

func (m *Store) ListShowsByStation(ctx context.Context, stationID uint64) ([]model.Show, error) {
	return view(ctx, m, func(tx repository.Store) ([]model.Show, error) { return tx.ListShowsByStation(ctx, stationID) })
}

func (m *Store) CreateShowInstance(ctx context.Context, si *model.ShowInstance) error {
	return m.InTx(ctx, func(tx repository.Store) error { return tx.CreateShowInstance(ctx, si) })
}

func (m *Store) GetShowInstance(ctx context.Context, instanceID uint64) (*model.ShowInstance, error) {
	return view(ctx, m, func(tx repository.Store) (*model.ShowInstance, error) {
		return tx.GetShowInstance(ctx, instanceID)
	})
}

func (m *Store) ListShowInstances(ctx context.Context, showID uint64) ([]model.ShowInstance, error) {
	return view(ctx, m, func(tx repository.Store) ([]model.ShowInstance, error) {
		return tx.ListShowInstances(ctx, showID)
	})
}

func (m *Store) FindOverlappingInstances(ctx context.Context, stationID uint64, start, end string) ([]model.ShowInstance, error) {
	return view(ctx, m, func(tx repository.Store) ([]model.ShowInstance, error) {
		return tx.FindOverlappingInstances(ctx, stationID, start, end)
	})
}

func (m *Store) CreateStory(ctx context.Context, s *model.Story) error {
	return m.InTx(ctx, func(tx repository.Store) error { return tx.CreateStory(ctx, s) })
}

func (m *Store) GetStory(ctx context.Context, storyID uint64) (*model.Story, error) {
	return view(ctx, m, func(tx repository.Store) (*model.Story, error) { return tx.GetStory(ctx, storyID) })
}

func (m *Store) FindStoryBySourceRef(ctx context.Context, source, ref string) (*model.Story, error) {
	return view(ctx, m, func(tx repository.Store) (*model.Story, error) {
		return tx.FindStoryBySourceRef(ctx, source, ref)
	})
}

func (m *Store) ListStories(ctx context.Context, stationID uint64, status model.StoryStatus, limit int) ([]model.Story, error) {
	return view(ctx, m, func(tx repository.Store) ([]model.Story, error) {
		return tx.ListStories(ctx, stationID, status, limit)
	})
}
