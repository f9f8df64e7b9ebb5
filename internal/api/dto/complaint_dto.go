package dto

import (
	"time"

	"github.com/civicseva/civic-complaints/internal/domain"
)

// CategoryResponse is the optional category reference on a complaint.
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// LocationResponse is a complaint position.
type LocationResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ComplaintResponse represents a complaint.
type ComplaintResponse struct {
	ID          string                 `json:"id"`
	ReporterID  string                 `json:"reporter_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	CategoryID  *string                `json:"category_id"`
	Category    *CategoryResponse      `json:"category"`
	Severity    domain.Severity        `json:"severity"`
	Status      domain.ComplaintStatus `json:"status"`
	Location    LocationResponse       `json:"location"`
	Geocode     string                 `json:"digipin"`
	Images      []string               `json:"images"`
	VoteCount   int                    `json:"vote_count"`
	ReopenCount int                    `json:"reopen_count"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ResolvedAt  *time.Time             `json:"resolved_at"`
}

// DuplicateResponse is the existing complaint offered instead of a new one.
type DuplicateResponse struct {
	Complaint      ComplaintResponse `json:"complaint"`
	DistanceMeters float64           `json:"distance_meters"`
}

// SubmissionResponse is returned by POST /complaints.
type SubmissionResponse struct {
	Outcome       string             `json:"outcome"`
	Complaint     *ComplaintResponse `json:"complaint,omitempty"`
	Duplicate     *DuplicateResponse `json:"duplicate,omitempty"`
	SkippedPhotos []string           `json:"skipped_photos,omitempty"`
}

// VoteResponse is returned after a vote.
type VoteResponse struct {
	Created   bool              `json:"created"`
	Complaint ComplaintResponse `json:"complaint"`
}

// ReviewRequest payload.
type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ReviewResponse represents a review.
type ReviewResponse struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaint_id"`
	UserID      string    `json:"user_id"`
	Rating      int       `json:"rating"`
	Comment     *string   `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}

// MarkerResponse is one complaint on the map.
type MarkerResponse struct {
	ComplaintID string                 `json:"complaint_id"`
	Location    LocationResponse       `json:"location"`
	Title       string                 `json:"title"`
	Status      domain.ComplaintStatus `json:"status"`
	Severity    domain.Severity        `json:"severity"`
	Category    *CategoryResponse      `json:"category"`
}

// ClusterResponse is a group of nearby markers.
type ClusterResponse struct {
	Center  LocationResponse `json:"center"`
	Count   int              `json:"count"`
	Size    string           `json:"size"`
	Markers []MarkerResponse `json:"markers"`
}

// MapResponse is returned by GET /complaints/map.
type MapResponse struct {
	Zoom     int               `json:"zoom"`
	Clusters []ClusterResponse `json:"clusters"`
}
