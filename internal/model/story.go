package model

import "time"

// StoryStatus is the editorial state of a story.
type StoryStatus string

const (
	StoryDraft     StoryStatus = "DRAFT"
	StorySubmitted StoryStatus = "SUBMITTED"
	StoryApproved  StoryStatus = "APPROVED"
)

// Valid reports whether s is a known story status.
func (s StoryStatus) Valid() bool {
	switch s {
	case StoryDraft, StorySubmitted, StoryApproved:
		return true
	}
	return false
}

// Story is a piece of copy that STORY segments can reference.  Stories
// are written by editors or imported from wire feeds; imported stories
// carry the feed name in Source and the entry GUID in SourceRef.
type Story struct {
	ID        uint64      `json:"id"`         // stories.id
	StationID uint64      `json:"station_id"` // stories.station_id
	Title     string      `json:"title"`      // stories.title
	Body      string      `json:"body"`       // stories.body (sanitized HTML)
	Status    StoryStatus `json:"status"`     // stories.status
	Source    string      `json:"source"`     // stories.source ("manual" or feed name)
	SourceRef *string     `json:"source_ref,omitempty"`
	WordCount int         `json:"word_count"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
