package handlers

import (
	"strconv"
	"strings"

	"github.com/civicseva/civic-complaints/internal/api/dto"
	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/service"
	"github.com/civicseva/civic-complaints/internal/views"
)

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// splitList accepts both repeated and comma separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func categoryResponse(category *domain.Category) *dto.CategoryResponse {
	if category == nil {
		return nil
	}
	return &dto.CategoryResponse{ID: category.ID, Name: category.Name, Icon: category.Icon}
}

func complaintResponse(complaint *domain.Complaint) dto.ComplaintResponse {
	images := complaint.Images
	if images == nil {
		images = []string{}
	}
	return dto.ComplaintResponse{
		ID:          complaint.ID,
		ReporterID:  complaint.ReporterID,
		Title:       complaint.Title,
		Description: complaint.Description,
		CategoryID:  complaint.CategoryID,
		Category:    categoryResponse(complaint.Category),
		Severity:    complaint.Severity,
		Status:      complaint.Status,
		Location:    dto.LocationResponse{Lat: complaint.Location.Lat, Lng: complaint.Location.Lng},
		Geocode:     complaint.Geocode,
		Images:      images,
		VoteCount:   complaint.VoteCount,
		ReopenCount: complaint.ReopenCount,
		CreatedAt:   complaint.CreatedAt,
		UpdatedAt:   complaint.UpdatedAt,
		ResolvedAt:  complaint.ResolvedAt,
	}
}

func complaintResponses(complaints []domain.Complaint) []dto.ComplaintResponse {
	resp := make([]dto.ComplaintResponse, 0, len(complaints))
	for i := range complaints {
		resp = append(resp, complaintResponse(&complaints[i]))
	}
	return resp
}

func submissionResponse(result *service.SubmissionResult) dto.SubmissionResponse {
	resp := dto.SubmissionResponse{Outcome: string(result.Outcome), SkippedPhotos: result.SkippedPhotos}
	if result.Complaint != nil {
		complaint := complaintResponse(result.Complaint)
		resp.Complaint = &complaint
	}
	if result.Duplicate != nil {
		resp.Duplicate = &dto.DuplicateResponse{
			Complaint:      complaintResponse(&result.Duplicate.Complaint),
			DistanceMeters: result.Duplicate.DistanceMeters,
		}
	}
	return resp
}

func reviewResponse(review *domain.Review) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:          review.ID,
		ComplaintID: review.ComplaintID,
		UserID:      review.UserID,
		Rating:      review.Rating,
		Comment:     review.Comment,
		CreatedAt:   review.CreatedAt,
	}
}

func historyResponses(entries []domain.ComplaintHistory) []dto.HistoryResponse {
	resp := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.HistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}

func clusterResponses(clusters []views.Cluster) []dto.ClusterResponse {
	resp := make([]dto.ClusterResponse, 0, len(clusters))
	for _, cluster := range clusters {
		markers := make([]dto.MarkerResponse, 0, len(cluster.Markers))
		for _, m := range cluster.Markers {
			markers = append(markers, dto.MarkerResponse{
				ComplaintID: m.ComplaintID,
				Location:    dto.LocationResponse{Lat: m.Point.Lat, Lng: m.Point.Lng},
				Title:       m.Title,
				Status:      m.Status,
				Severity:    m.Severity,
				Category:    categoryResponse(m.Category),
			})
		}
		resp = append(resp, dto.ClusterResponse{
			Center:  dto.LocationResponse{Lat: cluster.Center.Lat, Lng: cluster.Center.Lng},
			Count:   cluster.Count,
			Size:    string(cluster.Size),
			Markers: markers,
		})
	}
	return resp
}

func profileResponse(profile *domain.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:          profile.ID,
		Email:       profile.Email,
		Role:        string(profile.Role.Normalize()),
		AadharSet:   profile.AadharHash != nil,
		Blocked:     profile.Blocked,
		SpamStrikes: profile.SpamStrikes,
		HouseNo:     profile.HouseNo,
		ColonyName:  profile.ColonyName,
		Pincode:     profile.Pincode,
		MapLink:     profile.MapLink,
		CreatedAt:   profile.CreatedAt,
		UpdatedAt:   profile.UpdatedAt,
	}
}
