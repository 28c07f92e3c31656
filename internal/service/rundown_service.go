package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/newsroom-rundown/internal/metrics"
	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/queue"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
	"github.com/iliyamo/newsroom-rundown/internal/utils"
)

// DefaultAddItemRetries bounds how often AddItem re-reads the max
// position after losing a race.
const DefaultAddItemRetries = 3

// MaxTitleLength matches the width of the title columns.
const MaxTitleLength = 512

const publishTimeout = 3 * time.Second

// EventPublisher receives change events after a mutation commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.RundownEvent) error
}

// RundownService keeps every rundown's positions contiguous (0..N-1)
// and its TotalDuration equal to the sum of its items' planned
// durations.  Each method is a single transaction on the store.
type RundownService struct {
	store         repository.Store
	events        EventPublisher
	log           logrus.FieldLogger
	maxAddRetries int
}

// NewRundownService wires a RundownService.  A nil publisher disables
// change events; maxAddRetries below zero falls back to the default.
func NewRundownService(store repository.Store, events EventPublisher, log logrus.FieldLogger, maxAddRetries int) *RundownService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if maxAddRetries < 0 {
		maxAddRetries = DefaultAddItemRetries
	}
	return &RundownService{store: store, events: events, log: log, maxAddRetries: maxAddRetries}
}

// GetRundown returns the rundown with its items sorted by position,
// whatever order the store returned them in.
func (s *RundownService) GetRundown(ctx context.Context, rundownID uint64) (rd *model.Rundown, err error) {
	defer observe("GetRundown", time.Now(), &err)

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		rd, err = loadRundown(ctx, tx, tx.GetRundown, rundownID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rd, nil
}

// AddItem appends a segment at the end of the rundown and updates the
// total duration.  A Conflict from a concurrent append is retried with
// a fresh read of the max position.
func (s *RundownService) AddItem(ctx context.Context, rundownID uint64, draft model.ItemDraft) (item *model.RundownItem, err error) {
	defer observe("AddItem", time.Now(), &err)

	draft, err = normalizeDraft(draft)
	if err != nil {
		return nil, err
	}

	var total, count int
	for attempt := 0; ; attempt++ {
		err = s.store.InTx(ctx, func(tx repository.Store) error {
			if _, err := tx.LockRundown(ctx, rundownID); err != nil {
				return err
			}
			if draft.StoryID != nil {
				if _, err := tx.GetStory(ctx, *draft.StoryID); err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						return invalid("story_id", "story does not exist")
					}
					return err
				}
			}
			top, ok, err := tx.FindMaxPosition(ctx, rundownID)
			if err != nil {
				return err
			}
			pos := 0
			if ok {
				pos = top + 1
			}
			it := &model.RundownItem{
				RundownID:       rundownID,
				Type:            draft.Type,
				Title:           draft.Title,
				PlannedDuration: draft.PlannedDuration,
				Position:        pos,
				Status:          model.ItemPending,
				Script:          draft.Script,
				Notes:           draft.Notes,
				StoryID:         draft.StoryID,
			}
			if err := tx.InsertItem(ctx, it); err != nil {
				return err
			}
			total, count, err = recomputeTotal(ctx, tx, rundownID)
			if err != nil {
				return err
			}
			item = it
			return nil
		})
		if err == nil || !errors.Is(err, repository.ErrConflict) || attempt >= s.maxAddRetries {
			break
		}
		metrics.AddItemRetries.Inc()
		s.log.WithFields(logrus.Fields{"rundown_id": rundownID, "attempt": attempt + 1}).
			WithError(err).Debug("append lost a position race; retrying")
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"rundown_id": rundownID, "item_id": item.ID, "position": item.Position}).Info("rundown item added")
	ev := queue.NewRundownEvent(queue.EventItemAdded, rundownID)
	ev.ItemID, ev.ItemCount, ev.TotalDuration = item.ID, count, total
	s.publish(ctx, ev)
	return item, nil
}

// UpdateItem applies the editable fields of patch.  Type and position
// are not editable; the total is recomputed when the duration changes.
func (s *RundownService) UpdateItem(ctx context.Context, itemID uint64, patch model.ItemPatch) (item *model.RundownItem, err error) {
	defer observe("UpdateItem", time.Now(), &err)

	patch, err = normalizePatch(patch)
	if err != nil {
		return nil, err
	}

	total, count := -1, -1
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		cur, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if _, err := tx.LockRundown(ctx, cur.RundownID); err != nil {
			return err
		}
		updated, err := tx.UpdateItemFields(ctx, itemID, patch)
		if err != nil {
			return err
		}
		if patch.PlannedDuration != nil {
			if total, count, err = recomputeTotal(ctx, tx, cur.RundownID); err != nil {
				return err
			}
		}
		item = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"rundown_id": item.RundownID, "item_id": item.ID}).Info("rundown item updated")
	ev := queue.NewRundownEvent(queue.EventItemUpdated, item.RundownID)
	ev.ItemID = item.ID
	if total >= 0 {
		ev.ItemCount, ev.TotalDuration = count, total
	}
	s.publish(ctx, ev)
	return item, nil
}

// ReorderItems sets each item's position to its index in orderedIDs.
// orderedIDs must be exactly the rundown's current item IDs; anything
// else is rejected without changing the rundown.
func (s *RundownService) ReorderItems(ctx context.Context, rundownID uint64, orderedIDs []uint64) (rd *model.Rundown, err error) {
	defer observe("ReorderItems", time.Now(), &err)

	seen := make(map[uint64]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, dup := seen[id]; dup {
			return nil, invalid("item_ids", fmt.Sprintf("item %d listed more than once", id))
		}
		seen[id] = struct{}{}
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.LockRundown(ctx, rundownID); err != nil {
			return err
		}
		items, err := tx.ListItems(ctx, rundownID)
		if err != nil {
			return err
		}
		current := make(map[uint64]int, len(items))
		for _, it := range items {
			current[it.ID] = it.Position
		}
		for _, id := range orderedIDs {
			if _, ok := current[id]; !ok {
				return invalid("item_ids", fmt.Sprintf("item %d does not belong to rundown %d", id, rundownID))
			}
		}
		if len(orderedIDs) != len(items) {
			return invalid("item_ids", fmt.Sprintf("expected all %d items of the rundown, got %d", len(items), len(orderedIDs)))
		}

		updates := make([]model.PositionUpdate, 0, len(orderedIDs))
		for idx, id := range orderedIDs {
			if current[id] != idx {
				updates = append(updates, model.PositionUpdate{ItemID: id, Position: idx})
			}
		}
		if err := tx.BatchUpdatePositions(ctx, rundownID, updates); err != nil {
			return err
		}
		rd, err = loadRundown(ctx, tx, tx.GetRundown, rundownID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"rundown_id": rundownID, "items": len(orderedIDs)}).Info("rundown reordered")
	ev := queue.NewRundownEvent(queue.EventItemsReordered, rundownID)
	ev.ItemCount, ev.TotalDuration = len(rd.Items), rd.TotalDuration
	s.publish(ctx, ev)
	return rd, nil
}

// DeleteItem removes a segment, recomputes the total and closes the gap
// by renumbering the survivors in their existing order.
func (s *RundownService) DeleteItem(ctx context.Context, itemID uint64) (err error) {
	defer observe("DeleteItem", time.Now(), &err)

	var (
		rundownID    uint64
		total, count int
	)
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		cur, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		rundownID = cur.RundownID
		if _, err := tx.LockRundown(ctx, rundownID); err != nil {
			return err
		}
		if _, err := tx.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		items, err := tx.ListItems(ctx, rundownID)
		if err != nil {
			return err
		}
		sortItems(items)
		total, count = model.SumDurations(items), len(items)
		if err := tx.UpdateRundownTotalDuration(ctx, rundownID, total); err != nil {
			return err
		}
		updates := make([]model.PositionUpdate, 0, len(items))
		for idx, it := range items {
			if it.Position != idx {
				updates = append(updates, model.PositionUpdate{ItemID: it.ID, Position: idx})
			}
		}
		return tx.BatchUpdatePositions(ctx, rundownID, updates)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"rundown_id": rundownID, "item_id": itemID}).Info("rundown item deleted")
	ev := queue.NewRundownEvent(queue.EventItemDeleted, rundownID)
	ev.ItemID, ev.ItemCount, ev.TotalDuration = itemID, count, total
	s.publish(ctx, ev)
	return nil
}

// SetStatus moves a rundown between DRAFT, LIVE and COMPLETE.  Any
// transition between the three is allowed.
func (s *RundownService) SetStatus(ctx context.Context, rundownID uint64, status model.RundownStatus) (rd *model.Rundown, err error) {
	defer observe("SetStatus", time.Now(), &err)

	status = model.RundownStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, invalid("status", "must be one of DRAFT, LIVE, COMPLETE")
	}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.LockRundown(ctx, rundownID); err != nil {
			return err
		}
		if err := tx.UpdateRundownStatus(ctx, rundownID, status); err != nil {
			return err
		}
		rd, err = loadRundown(ctx, tx, tx.GetRundown, rundownID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"rundown_id": rundownID, "status": status}).Info("rundown status changed")
	ev := queue.NewRundownEvent(queue.EventRundownStatus, rundownID)
	ev.Status, ev.ItemCount, ev.TotalDuration = string(status), len(rd.Items), rd.TotalDuration
	s.publish(ctx, ev)
	return rd, nil
}

// CreateEmptyRundownTx creates the DRAFT, zero-duration rundown of a new
// show instance inside the caller's transaction.
func (s *RundownService) CreateEmptyRundownTx(ctx context.Context, tx repository.Store, showInstanceID uint64) (*model.Rundown, error) {
	rd := &model.Rundown{ShowInstanceID: showInstanceID, Status: model.RundownDraft}
	if err := tx.CreateRundown(ctx, rd); err != nil {
		return nil, err
	}
	rd.Items = []model.RundownItem{}
	return rd, nil
}

// GetRundownForInstanceTx loads the sorted rundown of a show instance
// inside the caller's transaction.
func (s *RundownService) GetRundownForInstanceTx(ctx context.Context, tx repository.Store, showInstanceID uint64) (*model.Rundown, error) {
	return loadRundown(ctx, tx, tx.GetRundownByInstance, showInstanceID)
}

// RundownStation returns the station that owns the rundown.
func (s *RundownService) RundownStation(ctx context.Context, rundownID uint64) (uint64, error) {
	return s.store.RundownStation(ctx, rundownID)
}

// ItemStation returns the station that owns the item's rundown.
func (s *RundownService) ItemStation(ctx context.Context, itemID uint64) (station uint64, err error) {
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		it, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		station, err = tx.RundownStation(ctx, it.RundownID)
		return err
	})
	return station, err
}

func (s *RundownService) publish(ctx context.Context, ev queue.RundownEvent) {
	ev.ActorID = actorFrom(ctx)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		s.log.WithError(err).WithFields(logrus.Fields{"event_id": ev.EventID, "type": ev.Type}).Warn("change event not published")
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
}

func loadRundown(ctx context.Context, tx repository.Store,
	get func(context.Context, uint64) (*model.Rundown, error), id uint64) (*model.Rundown, error) {
	rd, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := tx.ListItems(ctx, rd.ID)
	if err != nil {
		return nil, err
	}
	sortItems(items)
	rd.Items = items
	return rd, nil
}

// recomputeTotal persists the sum of the rundown's durations and returns
// it with the item count.
func recomputeTotal(ctx context.Context, tx repository.Store, rundownID uint64) (int, int, error) {
	items, err := tx.ListItems(ctx, rundownID)
	if err != nil {
		return 0, 0, err
	}
	total := model.SumDurations(items)
	if err := tx.UpdateRundownTotalDuration(ctx, rundownID, total); err != nil {
		return 0, 0, err
	}
	return total, len(items), nil
}

func sortItems(items []model.RundownItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
}

func normalizeDraft(d model.ItemDraft) (model.ItemDraft, error) {
	if !d.Type.Valid() {
		return d, invalid("type", "must be one of "+model.SegmentTypeList())
	}
	title, err := normalizeTitle(d.Title)
	if err != nil {
		return d, err
	}
	d.Title = title
	if d.PlannedDuration < 0 {
		return d, invalid("planned_duration", "must not be negative")
	}
	if d.StoryID != nil && d.Type != model.SegmentStory {
		return d, invalid("story_id", "only STORY segments may reference a story")
	}
	d.Script = sanitized(d.Script)
	d.Notes = sanitized(d.Notes)
	return d, nil
}

func normalizePatch(p model.ItemPatch) (model.ItemPatch, error) {
	if p.Empty() {
		return p, invalid("", "nothing to update")
	}
	if p.Title != nil {
		title, err := normalizeTitle(*p.Title)
		if err != nil {
			return p, err
		}
		p.Title = &title
	}
	if p.PlannedDuration != nil && *p.PlannedDuration < 0 {
		return p, invalid("planned_duration", "must not be negative")
	}
	if p.Status != nil && !p.Status.Valid() {
		return p, invalid("status", "must be PENDING or READY")
	}
	p.Script = sanitized(p.Script)
	p.Notes = sanitized(p.Notes)
	return p, nil
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", invalid("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", invalid("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	return title, nil
}

func sanitized(p *string) *string {
	if p == nil {
		return nil
	}
	v := utils.SanitizeHTML(*p)
	return &v
}

func observe(op string, started time.Time, err *error) {
	metrics.ObserveOp(op, Outcome(*err), started)
}
