// Package memstore is an in-memory repository.Store.  Transactions run
// against a private snapshot and are validated optimistically on
// commit: if anything they read was committed by someone else in the
// meantime, the commit fails with repository.ErrConflict and nothing is
// applied.  Faults and a per-operation hook can be injected for tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
)

// key names a unit of optimistic versioning.
type key struct {
	kind string
	id   uint64
	name string
}

type state struct {
	rundowns  map[uint64]model.Rundown
	items     map[uint64]model.RundownItem
	shows     map[uint64]model.Show
	instances map[uint64]model.ShowInstance
	stories   map[uint64]model.Story
	versions  map[key]uint64
}

func newState() *state {
	return &state{
		rundowns:  map[uint64]model.Rundown{},
		items:     map[uint64]model.RundownItem{},
		shows:     map[uint64]model.Show{},
		instances: map[uint64]model.ShowInstance{},
		stories:   map[uint64]model.Story{},
		versions:  map[key]uint64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, v := range s.rundowns {
		c.rundowns[id] = v
	}
	for id, v := range s.items {
		c.items[id] = cloneItem(v)
	}
	for id, v := range s.shows {
		c.shows[id] = v
	}
	for id, v := range s.instances {
		c.instances[id] = v
	}
	for id, v := range s.stories {
		c.stories[id] = cloneStory(v)
	}
	for k, v := range s.versions {
		c.versions[k] = v
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	st     *state
	nextID atomic.Uint64
	faults map[string]error
	hook   func(op string)
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), faults: map[string]error{}}
}

// SetHook registers fn to be called with the operation name at the start
// of every storage operation.  Set it before the store is shared.
func (m *Store) SetHook(fn func(op string)) {
	m.hook = fn
}

// FailOn makes the next call of op return err.  BatchUpdatePositions
// applies half of its updates before failing.
func (m *Store) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = err
}

func (m *Store) takeFault(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err, ok := m.faults[op]
	if !ok {
		return nil
	}
	delete(m.faults, op)
	return err
}

// InTx runs fn against a snapshot and commits its writes if nothing it
// touched changed concurrently.
func (m *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	snap := m.st.clone()
	m.mu.Unlock()

	t := &tx{m: m, st: snap, seen: map[key]struct{}{}, dirty: map[key]struct{}{}}
	if err := fn(t); err != nil {
		return err
	}
	return m.commit(t)
}

func (m *Store) commit(t *tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range t.seen {
		if m.st.versions[k] != t.st.versions[k] {
			return fmt.Errorf("commit %s %d%s: %w", k.kind, k.id, k.name, repository.ErrConflict)
		}
	}
	for k := range t.dirty {
		if k.kind == "rundown" {
			if err := checkPositions(t.st, k.id); err != nil {
				return err
			}
		}
	}
	for k := range t.dirty {
		m.apply(t.st, k)
		m.st.versions[k]++
	}
	return nil
}

// apply copies the entities guarded by k from src into the committed state.
func (m *Store) apply(src *state, k key) {
	switch k.kind {
	case "rundown":
		if r, ok := src.rundowns[k.id]; ok {
			m.st.rundowns[k.id] = r
		} else {
			delete(m.st.rundowns, k.id)
		}
		for id, it := range m.st.items {
			if it.RundownID == k.id {
				delete(m.st.items, id)
			}
		}
		for id, it := range src.items {
			if it.RundownID == k.id {
				m.st.items[id] = cloneItem(it)
			}
		}
	case "show":
		m.st.shows[k.id] = src.shows[k.id]
	case "instance":
		if si, ok := src.instances[k.id]; ok {
			m.st.instances[k.id] = si
		}
	case "story":
		m.st.stories[k.id] = cloneStory(src.stories[k.id])
	}
}

func checkPositions(st *state, rundownID uint64) error {
	used := map[int]uint64{}
	for _, it := range st.items {
		if it.RundownID != rundownID {
			continue
		}
		if other, dup := used[it.Position]; dup {
			return fmt.Errorf("items %d and %d share position %d: %w", other, it.ID, it.Position, repository.ErrConflict)
		}
		used[it.Position] = it.ID
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func cloneItem(it model.RundownItem) model.RundownItem {
	if it.Script != nil {
		s := *it.Script
		it.Script = &s
	}
	if it.Notes != nil {
		n := *it.Notes
		it.Notes = &n
	}
	if it.StoryID != nil {
		id := *it.StoryID
		it.StoryID = &id
	}
	return it
}

func cloneStory(st model.Story) model.Story {
	if st.SourceRef != nil {
		ref := *st.SourceRef
		st.SourceRef = &ref
	}
	return st
}

// view runs a read-only fn in its own transaction.
func view[T any](ctx context.Context, m *Store, fn func(tx repository.Store) (T, error)) (T, error) {
	var out T
	err := m.InTx(ctx, func(tx repository.Store) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sortInstances(list []model.ShowInstance) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].StartsAt.Equal(list[j].StartsAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].StartsAt.Before(list[j].StartsAt)
	})
}
