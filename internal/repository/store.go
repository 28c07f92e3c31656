package repository

import (
	"context"

	"github.com/iliyamo/newsroom-rundown/internal/model"
)

// RundownStore is the persistence contract for rundowns and their
// segments.  Single row methods may run on their own; callers that need
// several of them to apply together use Store.InTx.
type RundownStore interface {
	// CreateRundown inserts r and fills in its ID and timestamps.
	CreateRundown(ctx context.Context, r *model.Rundown) error
	// GetRundown returns the rundown row without items.
	GetRundown(ctx context.Context, rundownID uint64) (*model.Rundown, error)
	// RundownStation returns the station of the show the rundown airs in.
	RundownStation(ctx context.Context, rundownID uint64) (uint64, error)
	// GetRundownByInstance returns the rundown owned by a show instance.
	GetRundownByInstance(ctx context.Context, showInstanceID uint64) (*model.Rundown, error)
	// LockRundown reads the rundown row and, inside a transaction,
	// serialises other writers of the same rundown until commit.
	LockRundown(ctx context.Context, rundownID uint64) (*model.Rundown, error)
	UpdateRundownStatus(ctx context.Context, rundownID uint64, status model.RundownStatus) error
	UpdateRundownTotalDuration(ctx context.Context, rundownID uint64, total int) error

	GetItem(ctx context.Context, itemID uint64) (*model.RundownItem, error)
	// FindMaxPosition returns the highest position in the rundown;
	// ok is false when the rundown has no items.
	FindMaxPosition(ctx context.Context, rundownID uint64) (pos int, ok bool, err error)
	// InsertItem persists item (RundownID and Position already set) and
	// fills in ID and timestamps.  A taken position yields ErrConflict.
	InsertItem(ctx context.Context, item *model.RundownItem) error
	UpdateItemFields(ctx context.Context, itemID uint64, patch model.ItemPatch) (*model.RundownItem, error)
	DeleteItem(ctx context.Context, itemID uint64) (*model.RundownItem, error)
	// ListItems returns the rundown's items in no guaranteed order.
	ListItems(ctx context.Context, rundownID uint64) ([]model.RundownItem, error)
	// BatchUpdatePositions applies every update or none of them.  An
	// update naming an item outside the rundown fails the whole batch.
	BatchUpdatePositions(ctx context.Context, rundownID uint64, updates []model.PositionUpdate) error
}

// ShowStore persists shows and their airings.
type ShowStore interface {
	CreateShow(ctx context.Context, s *model.Show) error
	GetShow(ctx context.Context, showID uint64) (*model.Show, error)
	// LockShow reads the show row and serialises airing creation for it.
	LockShow(ctx context.Context, showID uint64) (*model.Show, error)
	ListShowsByStation(ctx context.Context, stationID uint64) ([]model.Show, error)
	CreateShowInstance(ctx context.Context, si *model.ShowInstance) error
	GetShowInstance(ctx context.Context, instanceID uint64) (*model.ShowInstance, error)
	ListShowInstances(ctx context.Context, showID uint64) ([]model.ShowInstance, error)
	// FindOverlappingInstances returns airings on the station whose
	// [StartsAt, EndsAt) interval intersects the given one.
	FindOverlappingInstances(ctx context.Context, stationID uint64, start, end string) ([]model.ShowInstance, error)
}

// StoryStore persists stories written in the newsroom or imported from
// wire feeds.
type StoryStore interface {
	CreateStory(ctx context.Context, s *model.Story) error
	GetStory(ctx context.Context, storyID uint64) (*model.Story, error)
	// FindStoryBySourceRef returns ErrStoryNotFound when no story was
	// imported from (source, ref).
	FindStoryBySourceRef(ctx context.Context, source, ref string) (*model.Story, error)
	ListStories(ctx context.Context, stationID uint64, status model.StoryStatus, limit int) ([]model.Story, error)
}

// Store is the complete storage port consumed by the service layer.
type Store interface {
	RundownStore
	ShowStore
	StoryStore

	// InTx runs fn against a Store bound to a single transaction.  When
	// fn returns an error nothing it wrote is applied.  Calling InTx on a
	// Store that is already bound to a transaction reuses it.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// TimeLayout is the UTC layout written to DATETIME columns.
const TimeLayout = "2006-01-02 15:04:05"
