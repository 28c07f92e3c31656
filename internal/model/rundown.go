package model

import "time"

// RundownStatus is the workflow state of a rundown.  The rundown core
// stores it but does not police transitions between the values.
type RundownStatus string

const (
	RundownDraft    RundownStatus = "DRAFT"
	RundownLive     RundownStatus = "LIVE"
	RundownComplete RundownStatus = "COMPLETE"
)

// Valid reports whether s is one of the known rundown statuses.
func (s RundownStatus) Valid() bool {
	switch s {
	case RundownDraft, RundownLive, RundownComplete:
		return true
	}
	return false
}

// Rundown is the ordered list of segments for one show instance.  It
// corresponds to a row in the `rundowns` table; Items is populated by
// the service layer and is always sorted by position.
//
// Fields:
//
//	ID             – primary key identifier.
//	ShowInstanceID – owning airing (unique, one rundown per instance).
//	Status         – DRAFT, LIVE or COMPLETE.
//	TotalDuration  – sum of all item planned durations, in seconds.
//	Items          – segments ordered by Position ascending.
//	CreatedAt      – creation timestamp.
//	UpdatedAt      – last update timestamp.
type Rundown struct {
	ID             uint64        `json:"id"`               // rundowns.id
	ShowInstanceID uint64        `json:"show_instance_id"` // rundowns.show_instance_id
	Status         RundownStatus `json:"status"`           // rundowns.status
	TotalDuration  int           `json:"total_duration"`   // rundowns.total_duration
	Items          []RundownItem `json:"items"`
	CreatedAt      time.Time     `json:"created_at"` // rundowns.created_at
	UpdatedAt      time.Time     `json:"updated_at"` // rundowns.updated_at
}

// SumDurations adds up the planned durations of items.
func SumDurations(items []RundownItem) int {
	total := 0
	for _, it := range items {
		total += it.PlannedDuration
	}
	return total
}
