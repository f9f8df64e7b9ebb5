package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/events"
	"github.com/civicseva/civic-complaints/internal/repository"
	"github.com/civicseva/civic-complaints/internal/views"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

const (
	maxReviewCommentLength = 1000
	autoCloseBatchSize     = 100
)

// ComplaintService coordinates the complaint lifecycle after submission.
type ComplaintService struct {
	complaints repository.ComplaintRepository
	votes      repository.VoteRepository
	reviews    repository.ReviewRepository
	history    repository.ComplaintHistoryRepository
	events     eventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// ComplaintDependencies bundles repositories for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	VoteRepo      repository.VoteRepository
	ReviewRepo    repository.ReviewRepository
	HistoryRepo   repository.ComplaintHistoryRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Clock         func() time.Time
}

// AuthorityFilter describes the dashboard list filters.
type AuthorityFilter struct {
	Statuses   []domain.ComplaintStatus
	Severities []domain.Severity
	Search     string
	Limit      int
	Offset     int
}

// VoteResult reports the outcome of a vote.
type VoteResult struct {
	Complaint *domain.Complaint
	Created   bool
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ComplaintService{
		complaints: deps.ComplaintRepo,
		votes:      deps.VoteRepo,
		reviews:    deps.ReviewRepo,
		history:    deps.HistoryRepo,
		events:     eventPublisher{dispatcher: deps.Dispatcher, logger: logger},
		logger:     logger,
		now:        clock,
	}
}

var allowedTransitions = map[domain.ComplaintStatus][]domain.ComplaintStatus{
	domain.ComplaintStatusOpen:       {domain.ComplaintStatusInProgress, domain.ComplaintStatusResolved},
	domain.ComplaintStatusInProgress: {domain.ComplaintStatusResolved},
	domain.ComplaintStatusResolved:   {domain.ComplaintStatusClosed},
	domain.ComplaintStatusClosed:     {},
}

func isValidTransition(current, next domain.ComplaintStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Get returns a single complaint.
func (s *ComplaintService) Get(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	if !validComplaintID(complaintID) {
		return nil, apperrors.NewNotFound("complaint", nil)
	}
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, readFailure("complaint", "failed to load complaint", err)
	}
	return complaint, nil
}

// ListMine returns the caller's complaints, newest first.
func (s *ComplaintService) ListMine(ctx context.Context, session *domain.Session) ([]domain.Complaint, error) {
	complaints, err := s.complaints.ListByReporter(ctx, session.Identity.ID)
	if err != nil {
		return nil, readFailure("complaints", "failed to load your reports", err)
	}
	return complaints, nil
}

// ListForAuthority returns complaints matching the dashboard filters.
func (s *ComplaintService) ListForAuthority(ctx context.Context, filter AuthorityFilter) ([]domain.Complaint, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": status})
		}
	}
	for _, severity := range filter.Severities {
		if !severity.Valid() {
			return nil, apperrors.NewValidationError("invalid severity filter", map[string]any{"severity": severity})
		}
	}
	repoFilter := repository.ComplaintFilter{
		Statuses:   filter.Statuses,
		Severities: filter.Severities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		repoFilter.SearchTerm = &search
	}
	complaints, err := s.complaints.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, readFailure("complaints", "failed to load complaints", err)
	}
	return complaints, nil
}

// Stats returns dashboard aggregate counts.
func (s *ComplaintService) Stats(ctx context.Context) (domain.ComplaintStats, error) {
	stats, err := s.complaints.Stats(ctx)
	if err != nil {
		return domain.ComplaintStats{}, readFailure("stats", "failed to load statistics", err)
	}
	return stats, nil
}

// MapClusters buckets every located complaint for the map at zoom.
func (s *ComplaintService) MapClusters(ctx context.Context, zoom int) ([]views.Cluster, error) {
	complaints, err := s.complaints.ListForMap(ctx)
	if err != nil {
		return nil, readFailure("complaints", "failed to load map", err)
	}
	return views.BuildClusters(complaints, zoom), nil
}

// Advance moves a complaint forward in its lifecycle. Administrators only.
func (s *ComplaintService) Advance(ctx context.Context, session *domain.Session, complaintID string, next domain.ComplaintStatus, note string) (*domain.Complaint, error) {
	if !session.IsAdmin() {
		return nil, apperrors.NewForbidden("administrator role required")
	}
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": next})
	}
	complaint, err := s.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, complaint, next, adminActor(session.Identity.ID), strings.TrimSpace(note))
}

// Reopen returns a resolved complaint to open. Only its reporter may do so.
// The previous resolution timestamp is kept.
func (s *ComplaintService) Reopen(ctx context.Context, session *domain.Session, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.ReporterID != session.Identity.ID {
		return nil, apperrors.NewForbidden("only the reporter can reopen a complaint")
	}
	if complaint.Status != domain.ComplaintStatusResolved {
		return nil, apperrors.NewInvalidTransition(string(complaint.Status), string(domain.ComplaintStatusOpen))
	}

	oldStatus := complaint.Status
	updated := *complaint
	updated.Status = domain.ComplaintStatusOpen
	updated.ReopenCount = complaint.ReopenCount + 1
	if err := s.complaints.UpdateStatus(ctx, &updated, oldStatus); err != nil {
		return nil, s.updateFailure(err)
	}

	actor := citizenActor(session.Identity.ID)
	s.recordHistory(ctx, actor, updated.ID, domain.ChangeTypeReopen,
		map[string]any{"status": oldStatus, "reopen_count": complaint.ReopenCount},
		map[string]any{"status": updated.Status, "reopen_count": updated.ReopenCount})
	s.events.publish(ctx, events.New(events.EventComplaintReopened, updated.ID, actor,
		events.ComplaintReopenedPayload{ReopenCount: updated.ReopenCount}))
	return &updated, nil
}

// Vote endorses an existing complaint. Repeated votes by the same person
// are a no-op reported with Created=false.
func (s *ComplaintService) Vote(ctx context.Context, session *domain.Session, complaintID string) (*VoteResult, error) {
	if session.Blocked() {
		return nil, apperrors.NewForbidden("account is blocked")
	}
	complaint, err := s.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	vote := &domain.Vote{ComplaintID: complaint.ID, UserID: session.Identity.ID}
	created, err := s.votes.Insert(ctx, vote)
	if err != nil {
		return nil, apperrors.NewWriteFailed("failed to record vote", err)
	}
	if !created {
		return &VoteResult{Complaint: complaint, Created: false}, nil
	}

	complaint.VoteCount++
	if count, err := s.votes.CountByComplaint(ctx, complaint.ID); err == nil {
		complaint.VoteCount = count
	} else {
		s.logger.Warn("vote count refresh failed", zap.String("complaint_id", complaint.ID), zap.Error(err))
	}

	s.events.publish(ctx, events.New(events.EventComplaintVoted, complaint.ID, citizenActor(session.Identity.ID),
		events.ComplaintVotedPayload{
			ReporterID: complaint.ReporterID,
			VoterID:    session.Identity.ID,
			VoteCount:  complaint.VoteCount,
		}))
	return &VoteResult{Complaint: complaint, Created: true}, nil
}

// Review records the reporter's feedback on a resolved complaint.
func (s *ComplaintService) Review(ctx context.Context, session *domain.Session, complaintID string, rating int, comment string) (*domain.Review, error) {
	if session.Blocked() {
		return nil, apperrors.NewForbidden("account is blocked")
	}
	if rating < domain.MinReviewRating || rating > domain.MaxReviewRating {
		return nil, apperrors.NewValidationError("rating must be between 1 and 10", map[string]any{"field": "rating"})
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxReviewCommentLength {
		return nil, apperrors.NewValidationError("comment is too long", map[string]any{"field": "comment", "max": maxReviewCommentLength})
	}

	complaint, err := s.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.ReporterID != session.Identity.ID {
		return nil, apperrors.NewForbidden("only the reporter can review a complaint")
	}
	if complaint.Status != domain.ComplaintStatusResolved {
		return nil, apperrors.NewConflict("only resolved complaints can be reviewed", map[string]any{"status": complaint.Status})
	}

	review := &domain.Review{ComplaintID: complaint.ID, UserID: session.Identity.ID, Rating: rating}
	if comment != "" {
		review.Comment = &comment
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, apperrors.NewWriteFailed("failed to save review", err)
	}
	s.events.publish(ctx, events.New(events.EventComplaintReviewed, complaint.ID, citizenActor(session.Identity.ID),
		events.ComplaintReviewedPayload{ReviewID: review.ID, Rating: review.Rating}))
	return review, nil
}

// ListReviews returns the feedback left on a complaint.
func (s *ComplaintService) ListReviews(ctx context.Context, complaintID string) ([]domain.Review, error) {
	if !validComplaintID(complaintID) {
		return nil, apperrors.NewNotFound("complaint", nil)
	}
	reviews, err := s.reviews.ListByComplaint(ctx, complaintID)
	if err != nil {
		return nil, readFailure("reviews", "failed to load reviews", err)
	}
	return reviews, nil
}

// History returns the audit trail of a complaint.
func (s *ComplaintService) History(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	complaint, err := s.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, readFailure("history", "failed to load history", err)
	}
	return history, nil
}

// AutoCloseResolved closes complaints that stayed resolved for longer than
// olderThan and returns how many were closed.
func (s *ComplaintService) AutoCloseResolved(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-olderThan)
	stale, err := s.complaints.ListResolvedBefore(ctx, cutoff, autoCloseBatchSize)
	if err != nil {
		return 0, readFailure("complaints", "failed to load resolved complaints", err)
	}

	closed := 0
	for i := range stale {
		complaint := stale[i]
		if _, err := s.transition(ctx, &complaint, domain.ComplaintStatusClosed, systemActor(), "auto_closed"); err != nil {
			s.logger.Warn("auto-close failed", zap.String("complaint_id", complaint.ID), zap.Error(err))
			continue
		}
		closed++
	}
	return closed, nil
}

func (s *ComplaintService) transition(ctx context.Context, complaint *domain.Complaint, next domain.ComplaintStatus, actor events.Actor, note string) (*domain.Complaint, error) {
	if !isValidTransition(complaint.Status, next) {
		return nil, apperrors.NewInvalidTransition(string(complaint.Status), string(next))
	}

	oldStatus := complaint.Status
	updated := *complaint
	updated.Status = next
	if next == domain.ComplaintStatusResolved {
		resolvedAt := s.now().UTC()
		updated.ResolvedAt = &resolvedAt
	}
	if err := s.complaints.UpdateStatus(ctx, &updated, oldStatus); err != nil {
		return nil, s.updateFailure(err)
	}

	newValue := map[string]any{"status": next}
	if note != "" {
		newValue["note"] = note
	}
	s.recordHistory(ctx, actor, updated.ID, domain.ChangeTypeStatus, map[string]any{"status": oldStatus}, newValue)
	s.events.publish(ctx, events.New(events.EventComplaintStatusChanged, updated.ID, actor,
		events.ComplaintStatusChangedPayload{
			ReporterID: updated.ReporterID,
			OldStatus:  oldStatus,
			NewStatus:  next,
			Note:       note,
		}))
	return &updated, nil
}

func (s *ComplaintService) updateFailure(err error) error {
	if errors.Is(err, repository.ErrStatusChanged) {
		return apperrors.NewConflict("complaint was changed by someone else; reload and try again", nil)
	}
	return apperrors.NewWriteFailed("failed to update complaint", err)
}

// recordHistory writes an audit entry. The status change already happened,
// so a failure here is logged rather than returned.
func (s *ComplaintService) recordHistory(ctx context.Context, actor events.Actor, complaintID string, change domain.ComplaintChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	actorType, actorID := historyActor(actor)
	entry := &domain.ComplaintHistory{
		ComplaintID:   complaintID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    change,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("history write failed",
			zap.String("complaint_id", complaintID),
			zap.String("change_type", string(change)),
			zap.Error(err))
	}
}

func validComplaintID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
