package model

import (
	"strings"
	"time"
)

// SegmentType is the closed set of segment kinds a rundown can hold.
type SegmentType string

const (
	SegmentStory     SegmentType = "STORY"
	SegmentBreak     SegmentType = "BREAK"
	SegmentLive      SegmentType = "LIVE"
	SegmentInterview SegmentType = "INTERVIEW"
	SegmentPromo     SegmentType = "PROMO"
	SegmentMusic     SegmentType = "MUSIC"
	SegmentAd        SegmentType = "AD"
)

// SegmentTypes lists every valid segment type in display order.
var SegmentTypes = []SegmentType{
	SegmentStory, SegmentBreak, SegmentLive, SegmentInterview,
	SegmentPromo, SegmentMusic, SegmentAd,
}

// SegmentTypeList renders SegmentTypes for error messages.
func SegmentTypeList() string {
	names := make([]string, len(SegmentTypes))
	for i, t := range SegmentTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// ParseSegmentType normalises raw (trim + upper case) and reports
// whether it names a known segment type.
func ParseSegmentType(raw string) (SegmentType, bool) {
	t := SegmentType(strings.ToUpper(strings.TrimSpace(raw)))
	return t, t.Valid()
}

// Valid reports whether t is one of the known segment types.
func (t SegmentType) Valid() bool {
	for _, known := range SegmentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ItemStatus tracks editorial readiness of a segment.
type ItemStatus string

const (
	ItemPending ItemStatus = "PENDING"
	ItemReady   ItemStatus = "READY"
)

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	return s == ItemPending || s == ItemReady
}

// RundownItem is one segment of a rundown.  Within a rundown the set of
// positions is always exactly 0..N-1; the storage layer backs this with
// a unique key on (rundown_id, position).
//
// Fields:
//
//	ID              – primary key identifier.
//	RundownID       – owning rundown.
//	Type            – segment kind (STORY, BREAK, ...).
//	Title           – slug shown on the rundown.
//	PlannedDuration – planned on-air time in seconds.
//	Position        – zero-based playback order.
//	Status          – PENDING or READY.
//	Script, Notes   – optional sanitized HTML from the editor.
//	StoryID         – optional story reference, STORY segments only.
type RundownItem struct {
	ID              uint64      `json:"id"`               // rundown_items.id
	RundownID       uint64      `json:"rundown_id"`       // rundown_items.rundown_id
	Type            SegmentType `json:"type"`             // rundown_items.type
	Title           string      `json:"title"`            // rundown_items.title
	PlannedDuration int         `json:"planned_duration"` // rundown_items.planned_duration
	Position        int         `json:"position"`         // rundown_items.position
	Status          ItemStatus  `json:"status"`           // rundown_items.status
	Script          *string     `json:"script,omitempty"` // rundown_items.script (nullable)
	Notes           *string     `json:"notes,omitempty"`  // rundown_items.notes (nullable)
	StoryID         *uint64     `json:"story_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ItemDraft is the create payload for a new segment.  Position is never
// part of it: new segments are always appended.
type ItemDraft struct {
	Type            SegmentType
	Title           string
	PlannedDuration int
	StoryID         *uint64
	Script          *string
	Notes           *string
}

// ItemPatch carries the editable fields of a segment.  Nil means
// "leave unchanged".  Type and position cannot be patched.
type ItemPatch struct {
	Title           *string
	PlannedDuration *int
	Script          *string
	Notes           *string
	Status          *ItemStatus
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Title == nil && p.PlannedDuration == nil && p.Script == nil &&
		p.Notes == nil && p.Status == nil
}

// Apply copies the set fields of p onto it.
func (p ItemPatch) Apply(it *RundownItem) {
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.PlannedDuration != nil {
		it.PlannedDuration = *p.PlannedDuration
	}
	if p.Script != nil {
		s := *p.Script
		it.Script = &s
	}
	if p.Notes != nil {
		n := *p.Notes
		it.Notes = &n
	}
	if p.Status != nil {
		it.Status = *p.Status
	}
}

// PositionUpdate assigns Position to the item with ItemID.
type PositionUpdate struct {
	ItemID   uint64
	Position int
}
