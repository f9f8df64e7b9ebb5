package dto

import (
	"time"

	"github.com/civicseva/civic-complaints/internal/domain"
)

// StatusUpdateRequest payload for moving a complaint through its lifecycle.
type StatusUpdateRequest struct {
	Status domain.ComplaintStatus `json:"status"`
	Note   string                 `json:"note"`
}

// StatsResponse holds dashboard counts.
type StatsResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Critical   int `json:"critical"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID            string                     `json:"id"`
	ChangeType    domain.ComplaintChangeType `json:"change_type"`
	ChangedByType domain.ActorType           `json:"changed_by_type"`
	ChangedByID   *string                    `json:"changed_by_id"`
	OldValue      map[string]any             `json:"old_value"`
	NewValue      map[string]any             `json:"new_value"`
	CreatedAt     time.Time                  `json:"created_at"`
}
