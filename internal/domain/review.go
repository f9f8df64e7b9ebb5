package domain

import "time"

const (
	MinReviewRating = 1
	MaxReviewRating = 10
)

// Review is feedback left by the reporter on a resolved complaint.
type Review struct {
	ID          string
	ComplaintID string
	UserID      string
	Rating      int
	Comment     *string
	CreatedAt   time.Time
}
