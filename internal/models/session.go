package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is an analysis session. UserID is nil for anonymous sessions
// started before login, which stay accessible to anonymous callers
type Session struct {
	ID        uuid.UUID
	UserID    *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Owner reports the owning user, if any
func (s Session) Owner() (uuid.UUID, bool) {
	if s.UserID == nil {
		return uuid.Nil, false
	}
	return *s.UserID, true
}

// Recommendation carries no owner of its own: it is owned transitively
// through its parent session
type Recommendation struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Status    string
	CreatedAt time.Time
}
