// Package repository defines the storage port for rundowns, shows and
// stories together with the error values shared by every implementation.
// These sentinel values let the service and handler layers distinguish
// between failure scenarios without knowing which database is in use.
// Every store wraps its errors so that errors.Is works against both the
// entity specific value (ErrRundownNotFound) and the generic one
// (ErrNotFound).
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is the generic "referenced row does not exist" failure.
// Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict signals that a write collided with concurrent state, e.g. a
// unique key violation on (rundown_id, position), a deadlock or an
// overlapping airing.  Handlers translate it into HTTP 409; callers should
// re-read and retry.
var ErrConflict = errors.New("conflict")

// ErrUnavailable marks a transient backend failure (lost connection,
// database busy).  The outcome of the operation is unknown and callers
// must re-fetch before retrying.  Handlers translate it into HTTP 503.
var ErrUnavailable = errors.New("storage unavailable")

// ErrForbidden is returned when the caller attempts an operation on a
// resource outside their station.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// Entity specific not-found errors.  All of them match ErrNotFound.
var (
	ErrRundownNotFound      = fmt.Errorf("rundown %w", ErrNotFound)
	ErrItemNotFound         = fmt.Errorf("rundown item %w", ErrNotFound)
	ErrShowNotFound         = fmt.Errorf("show %w", ErrNotFound)
	ErrShowInstanceNotFound = fmt.Errorf("show instance %w", ErrNotFound)
	ErrStoryNotFound        = fmt.Errorf("story %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
)

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")
