package domain

import "time"

// ComplaintChangeType captures what changed in a history entry.
type ComplaintChangeType string

const (
	ChangeTypeCreated ComplaintChangeType = "CREATED"
	ChangeTypeStatus  ComplaintChangeType = "STATUS_CHANGE"
	ChangeTypeReopen  ComplaintChangeType = "REOPEN"
)

// ActorType indicates who made a change.
type ActorType string

const (
	ActorCitizen ActorType = "CITIZEN"
	ActorAdmin   ActorType = "ADMIN"
	ActorSystem  ActorType = "SYSTEM"
)

// ComplaintHistory is an immutable audit trail entry.
type ComplaintHistory struct {
	ID            string
	ComplaintID   string
	ChangedByType ActorType
	ChangedByID   *string
	ChangeType    ComplaintChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
