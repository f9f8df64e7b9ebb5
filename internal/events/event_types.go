package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/civicseva/civic-complaints/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated       EventType = "complaint_created"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
	EventComplaintReopened      EventType = "complaint_reopened"
	EventComplaintVoted         EventType = "complaint_voted"
	EventComplaintReviewed      EventType = "complaint_reviewed"
)

// AllEventTypes lists every event the service emits.
var AllEventTypes = []EventType{
	EventComplaintCreated,
	EventComplaintStatusChanged,
	EventComplaintReopened,
	EventComplaintVoted,
	EventComplaintReviewed,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.ActorType `json:"type"`
	ID   *string          `json:"id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, complaintID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: complaintID,
		Actor:       actor,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
	}
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	ReporterID string          `json:"reporter_id"`
	Title      string          `json:"title"`
	CategoryID *string         `json:"category_id,omitempty"`
	Severity   domain.Severity `json:"severity"`
	Geocode    string          `json:"geocode"`
	Images     int             `json:"images"`
	Forced     bool            `json:"forced"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	ReporterID string                 `json:"reporter_id"`
	OldStatus  domain.ComplaintStatus `json:"old_status"`
	NewStatus  domain.ComplaintStatus `json:"new_status"`
	Note       string                 `json:"note,omitempty"`
}

// ComplaintReopenedPayload payload.
type ComplaintReopenedPayload struct {
	ReopenCount int `json:"reopen_count"`
}

// ComplaintVotedPayload payload.
type ComplaintVotedPayload struct {
	ReporterID string `json:"reporter_id"`
	VoterID    string `json:"voter_id"`
	VoteCount  int    `json:"vote_count"`
}

// ComplaintReviewedPayload payload.
type ComplaintReviewedPayload struct {
	ReviewID string `json:"review_id"`
	Rating   int    `json:"rating"`
}
