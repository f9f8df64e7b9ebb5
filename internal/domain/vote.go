package domain

import "time"

// Vote records a citizen endorsing an existing complaint.
type Vote struct {
	ComplaintID string
	UserID      string
	CreatedAt   time.Time
}
