// Package queue carries rundown change events over RabbitMQ: the payload,
// a publisher used by the service layer and a consumer that keeps an
// audit trail.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Change event types.
const (
	EventItemAdded      = "item.added"
	EventItemUpdated    = "item.updated"
	EventItemsReordered = "items.reordered"
	EventItemDeleted    = "item.deleted"
	EventRundownStatus  = "rundown.status"
)

// RundownEvent is published after a rundown mutation commits.  It carries
// the new aggregate so realtime subscribers can update without a read.
type RundownEvent struct {
	EventID       string `json:"event_id"`
	Type          string `json:"type"`
	RundownID     uint64 `json:"rundown_id"`
	ItemID        uint64 `json:"item_id,omitempty"`
	ActorID       uint64 `json:"actor_id,omitempty"`
	Status        string `json:"status,omitempty"`
	ItemCount     int    `json:"item_count"`
	TotalDuration int    `json:"total_duration"`
	OccurredAt    string `json:"occurred_at"`
}

// NewRundownEvent stamps a fresh event ID and the current time.
func NewRundownEvent(typ string, rundownID uint64) RundownEvent {
	return RundownEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		RundownID:  rundownID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
