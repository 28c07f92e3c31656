package model

import "time"

// AirDateLayout is the storage and wire format of ShowInstance.AirDate.
const AirDateLayout = "2006-01-02"

// Show is a named, recurring broadcast slot on a station.  Each airing
// of it is a ShowInstance.
//
// Fields:
//
//	ID              – primary key identifier.
//	StationID       – station the show airs on.
//	Name            – display name, unique per station.
//	DefaultDuration – default airing length in seconds.
//	CreatedAt       – creation timestamp.
//	UpdatedAt       – last update timestamp.
type Show struct {
	ID              uint64    `json:"id"`               // shows.id
	StationID       uint64    `json:"station_id"`       // shows.station_id
	Name            string    `json:"name"`             // shows.name
	DefaultDuration int       `json:"default_duration"` // shows.default_duration
	CreatedAt       time.Time `json:"created_at"`       // shows.created_at
	UpdatedAt       time.Time `json:"updated_at"`       // shows.updated_at
}

// ShowInstance is one scheduled airing of a show.  It owns exactly one
// Rundown which is created in the same transaction as the instance.
//
// Fields:
//
//	ID       – primary key identifier.
//	ShowID   – show being aired.
//	AirDate  – calendar date of the airing (YYYY-MM-DD).
//	StartsAt – when the airing begins (UTC).
//	EndsAt   – when the airing ends (UTC, after StartsAt).
//	Rundown  – the owned rundown; populated on reads.
type ShowInstance struct {
	ID        uint64    `json:"id"`       // show_instances.id
	ShowID    uint64    `json:"show_id"`  // show_instances.show_id
	AirDate   string    `json:"air_date"` // show_instances.air_date
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Rundown   *Rundown  `json:"rundown,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
