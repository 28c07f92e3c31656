package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
)

// tx is a repository.Store bound to one snapshot.
type tx struct {
	m     *Store
	st    *state
	seen  map[key]struct{}
	dirty map[key]struct{}
}

var _ repository.Store = (*tx)(nil)

func (t *tx) InTx(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(t)
}

func (t *tx) enter(ctx context.Context, op string) error {
	if t.m.hook != nil {
		t.m.hook(op)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.m.takeFault(op)
}

func (t *tx) touch(k key) { t.seen[k] = struct{}{} }

func (t *tx) write(k key) {
	t.seen[k] = struct{}{}
	t.dirty[k] = struct{}{}
}

func rundownKey(id uint64) key { return key{kind: "rundown", id: id} }

// ---- rundowns ----

func (t *tx) CreateRundown(ctx context.Context, r *model.Rundown) error {
	if err := t.enter(ctx, "CreateRundown"); err != nil {
		return err
	}
	t.touch(key{kind: "instance", id: r.ShowInstanceID})
	if _, ok := t.st.instances[r.ShowInstanceID]; !ok {
		return repository.ErrShowInstanceNotFound
	}
	for _, existing := range t.st.rundowns {
		if existing.ShowInstanceID == r.ShowInstanceID {
			return fmt.Errorf("show instance %d already has rundown %d: %w", r.ShowInstanceID, existing.ID, repository.ErrConflict)
		}
	}
	if r.Status == "" {
		r.Status = model.RundownDraft
	}
	ts := now()
	r.ID = t.m.nextID.Add(1)
	r.CreatedAt, r.UpdatedAt = ts, ts
	row := *r
	row.Items = nil
	t.st.rundowns[r.ID] = row
	t.write(rundownKey(r.ID))
	t.write(key{kind: "instance", id: r.ShowInstanceID})
	return nil
}

func (t *tx) GetRundown(ctx context.Context, rundownID uint64) (*model.Rundown, error) {
	if err := t.enter(ctx, "GetRundown"); err != nil {
		return nil, err
	}
	return t.rundown(rundownID)
}

func (t *tx) rundown(rundownID uint64) (*model.Rundown, error) {
	t.touch(rundownKey(rundownID))
	r, ok := t.st.rundowns[rundownID]
	if !ok {
		return nil, repository.ErrRundownNotFound
	}
	return &r, nil
}

func (t *tx) RundownStation(ctx context.Context, rundownID uint64) (uint64, error) {
	if err := t.enter(ctx, "RundownStation"); err != nil {
		return 0, err
	}
	r, err := t.rundown(rundownID)
	if err != nil {
		return 0, err
	}
	si, ok := t.st.instances[r.ShowInstanceID]
	if !ok {
		return 0, repository.ErrShowInstanceNotFound
	}
	sh, err := t.show(si.ShowID)
	if err != nil {
		return 0, err
	}
	return sh.StationID, nil
}

func (t *tx) GetRundownByInstance(ctx context.Context, showInstanceID uint64) (*model.Rundown, error) {
	if err := t.enter(ctx, "GetRundownByInstance"); err != nil {
		return nil, err
	}
	t.touch(key{kind: "instance", id: showInstanceID})
	for id, r := range t.st.rundowns {
		if r.ShowInstanceID == showInstanceID {
			t.touch(rundownKey(id))
			return &r, nil
		}
	}
	return nil, repository.ErrRundownNotFound
}

// LockRundown only records the read; conflicting writers are caught at
// commit.
func (t *tx) LockRundown(ctx context.Context, rundownID uint64) (*model.Rundown, error) {
	if err := t.enter(ctx, "LockRundown"); err != nil {
		return nil, err
	}
	return t.rundown(rundownID)
}

func (t *tx) UpdateRundownStatus(ctx context.Context, rundownID uint64, status model.RundownStatus) error {
	if err := t.enter(ctx, "UpdateRundownStatus"); err != nil {
		return err
	}
	return t.updateRundown(rundownID, func(r *model.Rundown) { r.Status = status })
}

func (t *tx) UpdateRundownTotalDuration(ctx context.Context, rundownID uint64, total int) error {
	if err := t.enter(ctx, "UpdateRundownTotalDuration"); err != nil {
		return err
	}
	return t.updateRundown(rundownID, func(r *model.Rundown) { r.TotalDuration = total })
}

func (t *tx) updateRundown(rundownID uint64, fn func(r *model.Rundown)) error {
	r, err := t.rundown(rundownID)
	if err != nil {
		return err
	}
	fn(r)
	r.UpdatedAt = now()
	t.st.rundowns[rundownID] = *r
	t.write(rundownKey(rundownID))
	return nil
}

// ---- items ----

func (t *tx) GetItem(ctx context.Context, itemID uint64) (*model.RundownItem, error) {
	if err := t.enter(ctx, "GetItem"); err != nil {
		return nil, err
	}
	return t.item(itemID)
}

func (t *tx) item(itemID uint64) (*model.RundownItem, error) {
	it, ok := t.st.items[itemID]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	t.touch(rundownKey(it.RundownID))
	c := cloneItem(it)
	return &c, nil
}

func (t *tx) FindMaxPosition(ctx context.Context, rundownID uint64) (int, bool, error) {
	if err := t.enter(ctx, "FindMaxPosition"); err != nil {
		return 0, false, err
	}
	t.touch(rundownKey(rundownID))
	max, found := 0, false
	for _, it := range t.st.items {
		if it.RundownID == rundownID && (!found || it.Position > max) {
			max, found = it.Position, true
		}
	}
	return max, found, nil
}

func (t *tx) InsertItem(ctx context.Context, item *model.RundownItem) error {
	if err := t.enter(ctx, "InsertItem"); err != nil {
		return err
	}
	if _, err := t.rundown(item.RundownID); err != nil {
		return err
	}
	if item.Position < 0 {
		return fmt.Errorf("negative position %d", item.Position)
	}
	for _, it := range t.st.items {
		if it.RundownID == item.RundownID && it.Position == item.Position {
			return fmt.Errorf("position %d of rundown %d is taken: %w", item.Position, item.RundownID, repository.ErrConflict)
		}
	}
	if item.Status == "" {
		item.Status = model.ItemPending
	}
	ts := now()
	item.ID = t.m.nextID.Add(1)
	item.CreatedAt, item.UpdatedAt = ts, ts
	t.st.items[item.ID] = cloneItem(*item)
	t.write(rundownKey(item.RundownID))
	return nil
}

func (t *tx) UpdateItemFields(ctx context.Context, itemID uint64, patch model.ItemPatch) (*model.RundownItem, error) {
	if err := t.enter(ctx, "UpdateItemFields"); err != nil {
		return nil, err
	}
	it, err := t.item(itemID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return it, nil
	}
	patch.Apply(it)
	it.UpdatedAt = now()
	t.st.items[itemID] = cloneItem(*it)
	t.write(rundownKey(it.RundownID))
	return it, nil
}

func (t *tx) DeleteItem(ctx context.Context, itemID uint64) (*model.RundownItem, error) {
	if err := t.enter(ctx, "DeleteItem"); err != nil {
		return nil, err
	}
	it, err := t.item(itemID)
	if err != nil {
		return nil, err
	}
	delete(t.st.items, itemID)
	t.write(rundownKey(it.RundownID))
	return it, nil
}

// ListItems returns items in map order, which Go randomises.
func (t *tx) ListItems(ctx context.Context, rundownID uint64) ([]model.RundownItem, error) {
	if err := t.enter(ctx, "ListItems"); err != nil {
		return nil, err
	}
	if _, err := t.rundown(rundownID); err != nil {
		return nil, err
	}
	items := make([]model.RundownItem, 0)
	for _, it := range t.st.items {
		if it.RundownID == rundownID {
			items = append(items, cloneItem(it))
		}
	}
	return items, nil
}

func (t *tx) BatchUpdatePositions(ctx context.Context, rundownID uint64, updates []model.PositionUpdate) error {
	fault := t.enter(ctx, "BatchUpdatePositions")
	if fault == nil && len(updates) == 0 {
		return nil
	}
	seenItem := map[uint64]struct{}{}
	seenPos := map[int]struct{}{}
	for _, u := range updates {
		if u.Position < 0 {
			return fmt.Errorf("negative position %d for item %d", u.Position, u.ItemID)
		}
		if _, dup := seenItem[u.ItemID]; dup {
			return fmt.Errorf("item %d appears twice in batch", u.ItemID)
		}
		if _, dup := seenPos[u.Position]; dup {
			return fmt.Errorf("position %d assigned twice in batch: %w", u.Position, repository.ErrConflict)
		}
		seenItem[u.ItemID], seenPos[u.Position] = struct{}{}, struct{}{}
		if it, ok := t.st.items[u.ItemID]; !ok || it.RundownID != rundownID {
			return fmt.Errorf("item %d in rundown %d: %w", u.ItemID, rundownID, repository.ErrItemNotFound)
		}
	}
	t.write(rundownKey(rundownID))

	apply := updates
	if fault != nil {
		apply = updates[:len(updates)/2]
	}
	ts := now()
	for _, u := range apply {
		it := t.st.items[u.ItemID]
		it.Position = u.Position
		it.UpdatedAt = ts
		t.st.items[u.ItemID] = it
	}
	if fault != nil {
		return fault
	}
	return checkPositions(t.st, rundownID)
}

// ---- shows ----

func (t *tx) CreateShow(ctx context.Context, s *model.Show) error {
	if err := t.enter(ctx, "CreateShow"); err != nil {
		return err
	}
	nameKey := key{kind: "showname", id: s.StationID, name: s.Name}
	t.touch(nameKey)
	for _, existing := range t.st.shows {
		if existing.StationID == s.StationID && existing.Name == s.Name {
			return fmt.Errorf("show %q on station %d: %w", s.Name, s.StationID, repository.ErrConflict)
		}
	}
	ts := now()
	s.ID = t.m.nextID.Add(1)
	s.CreatedAt, s.UpdatedAt = ts, ts
	t.st.shows[s.ID] = *s
	t.write(key{kind: "show", id: s.ID})
	t.write(nameKey)
	t.write(key{kind: "shows", id: s.StationID})
	return nil
}

func (t *tx) GetShow(ctx context.Context, showID uint64) (*model.Show, error) {
	if err := t.enter(ctx, "GetShow"); err != nil {
		return nil, err
	}
	return t.show(showID)
}

func (t *tx) LockShow(ctx context.Context, showID uint64) (*model.Show, error) {
	if err := t.enter(ctx, "LockShow"); err != nil {
		return nil, err
	}
	return t.show(showID)
}

func (t *tx) show(showID uint64) (*model.Show, error) {
	t.touch(key{kind: "show", id: showID})
	s, ok := t.st.shows[showID]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	return &s, nil
}

func (t *tx) ListShowsByStation(ctx context.Context, stationID uint64) ([]model.Show, error) {
	if err := t.enter(ctx, "ListShowsByStation"); err != nil {
		return nil, err
	}
	t.touch(key{kind: "shows", id: stationID})
	list := make([]model.Show, 0)
	for _, s := range t.st.shows {
		if s.StationID == stationID {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (t *tx) CreateShowInstance(ctx context.Context, si *model.ShowInstance) error {
	if err := t.enter(ctx, "CreateShowInstance"); err != nil {
		return err
	}
	show, err := t.show(si.ShowID)
	if err != nil {
		return err
	}
	si.ID = t.m.nextID.Add(1)
	si.StartsAt, si.EndsAt = si.StartsAt.UTC().Truncate(time.Second), si.EndsAt.UTC().Truncate(time.Second)
	si.CreatedAt = now()
	row := *si
	row.Rundown = nil
	t.st.instances[si.ID] = row
	t.write(key{kind: "instance", id: si.ID})
	t.write(key{kind: "instances", id: si.ShowID})
	t.write(key{kind: "schedule", id: show.StationID})
	return nil
}

func (t *tx) GetShowInstance(ctx context.Context, instanceID uint64) (*model.ShowInstance, error) {
	if err := t.enter(ctx, "GetShowInstance"); err != nil {
		return nil, err
	}
	t.touch(key{kind: "instance", id: instanceID})
	si, ok := t.st.instances[instanceID]
	if !ok {
		return nil, repository.ErrShowInstanceNotFound
	}
	return &si, nil
}

func (t *tx) ListShowInstances(ctx context.Context, showID uint64) ([]model.ShowInstance, error) {
	if err := t.enter(ctx, "ListShowInstances"); err != nil {
		return nil, err
	}
	t.touch(key{kind: "instances", id: showID})
	list := make([]model.ShowInstance, 0)
	for _, si := range t.st.instances {
		if si.ShowID == showID {
			list = append(list, si)
		}
	}
	sortInstances(list)
	return list, nil
}

func (t *tx) FindOverlappingInstances(ctx context.Context, stationID uint64, start, end string) ([]model.ShowInstance, error) {
	if err := t.enter(ctx, "FindOverlappingInstances"); err != nil {
		return nil, err
	}
	from, err := time.Parse(repository.TimeLayout, start)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	to, err := time.Parse(repository.TimeLayout, end)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}
	t.touch(key{kind: "schedule", id: stationID})
	list := make([]model.ShowInstance, 0)
	for _, si := range t.st.instances {
		show, ok := t.st.shows[si.ShowID]
		if !ok || show.StationID != stationID {
			continue
		}
		if si.StartsAt.Before(to) && si.EndsAt.After(from) {
			list = append(list, si)
		}
	}
	sortInstances(list)
	return list, nil
}

// ---- stories ----

func (t *tx) CreateStory(ctx context.Context, s *model.Story) error {
	if err := t.enter(ctx, "CreateStory"); err != nil {
		return err
	}
	if s.SourceRef != nil {
		refKey := key{kind: "storyref", name: s.Source + "\x00" + *s.SourceRef}
		t.touch(refKey)
		for _, existing := range t.st.stories {
			if existing.Source == s.Source && existing.SourceRef != nil && *existing.SourceRef == *s.SourceRef {
				return fmt.Errorf("story %s/%s: %w", s.Source, *s.SourceRef, repository.ErrConflict)
			}
		}
		t.write(refKey)
	}
	if s.Status == "" {
		s.Status = model.StoryDraft
	}
	ts := now()
	s.ID = t.m.nextID.Add(1)
	s.CreatedAt, s.UpdatedAt = ts, ts
	t.st.stories[s.ID] = cloneStory(*s)
	t.write(key{kind: "story", id: s.ID})
	t.write(key{kind: "stories", id: s.StationID})
	return nil
}

func (t *tx) GetStory(ctx context.Context, storyID uint64) (*model.Story, error) {
	if err := t.enter(ctx, "GetStory"); err != nil {
		return nil, err
	}
	t.touch(key{kind: "story", id: storyID})
	s, ok := t.st.stories[storyID]
	if !ok {
		return nil, repository.ErrStoryNotFound
	}
	c := cloneStory(s)
	return &c, nil
}

func (t *tx) FindStoryBySourceRef(ctx context.Context, source, ref string) (*model.Story, error) {
	if err := t.enter(ctx, "FindStoryBySourceRef"); err != nil {
		return nil, err
	}
	t.touch(key{kind: "storyref", name: source + "\x00" + ref})
	for _, s := range t.st.stories {
		if s.Source == source && s.SourceRef != nil && *s.SourceRef == ref {
			c := cloneStory(s)
			return &c, nil
		}
	}
	return nil, repository.ErrStoryNotFound
}

func (t *tx) ListStories(ctx context.Context, stationID uint64, status model.StoryStatus, limit int) ([]model.Story, error) {
	if err := t.enter(ctx, "ListStories"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = repository.DefaultStoryLimit
	}
	t.touch(key{kind: "stories", id: stationID})
	list := make([]model.Story, 0)
	for _, s := range t.st.stories {
		if s.StationID == stationID && (status == "" || s.Status == status) {
			list = append(list, cloneStory(s))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
