package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/cache"
	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/events"
	"github.com/civicseva/civic-complaints/internal/repository"
	"github.com/civicseva/civic-complaints/internal/storage"
	"github.com/civicseva/civic-complaints/internal/workflow"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

// Device geolocation failures reported by the client.
const (
	DeviceErrorDenied      = "denied"
	DeviceErrorUnavailable = "unavailable"
)

// Outcome is how a submission attempt ended.
type Outcome string

const (
	OutcomeSubmitted        Outcome = "submitted"
	OutcomeDuplicateOffered Outcome = "duplicate_offered"
	OutcomeReplayed         Outcome = "replayed"
)

// CategoryLister loads the category set a submission is validated against.
type CategoryLister interface {
	List(ctx context.Context) ([]domain.Category, error)
}

// Voter casts a vote on an existing complaint.
type Voter interface {
	Vote(ctx context.Context, session *domain.Session, complaintID string) (*VoteResult, error)
}

// IdempotencyKeys remembers which complaint a client retry key produced.
type IdempotencyKeys interface {
	Reserve(ctx context.Context, owner, key string) (complaintID string, reserved bool, err error)
	Complete(ctx context.Context, owner, key, complaintID string) error
	Release(ctx context.Context, owner, key string) error
}

// SubmissionInput is one complete pass through the submission wizard.
type SubmissionInput struct {
	Source      workflow.LocationSource
	Lat         float64
	Lng         float64
	DeviceError string
	Title       string
	Description string
	Transcript  *workflow.Transcript
	Photos      []workflow.Photo
	CategoryID  string
	Severity    domain.Severity
	Force       bool
}

// SubmissionResult reports the outcome of Submit.
type SubmissionResult struct {
	Outcome   Outcome
	Complaint *domain.Complaint
	Duplicate *domain.DuplicateMatch
	// SkippedPhotos names evidence that could not be uploaded.
	SkippedPhotos []string
}

// SubmissionService commits complaints produced by the submission workflow.
type SubmissionService struct {
	categories   CategoryLister
	complaints   repository.ComplaintRepository
	history      repository.ComplaintHistoryRepository
	uploader     storage.Uploader
	voter        Voter
	idempotency  IdempotencyKeys
	events       eventPublisher
	logger       *zap.Logger
	radiusMeters float64
}

// SubmissionDependencies bundles collaborators for the submission service.
type SubmissionDependencies struct {
	Categories      CategoryLister
	ComplaintRepo   repository.ComplaintRepository
	HistoryRepo     repository.ComplaintHistoryRepository
	Uploader        storage.Uploader
	Voter           Voter
	Idempotency     IdempotencyKeys
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	DuplicateRadius float64
}

// NewSubmissionService constructs the service.
func NewSubmissionService(deps SubmissionDependencies) *SubmissionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	radius := deps.DuplicateRadius
	if radius <= 0 {
		radius = 100
	}
	return &SubmissionService{
		categories:   deps.Categories,
		complaints:   deps.ComplaintRepo,
		history:      deps.HistoryRepo,
		uploader:     deps.Uploader,
		voter:        deps.Voter,
		idempotency:  deps.Idempotency,
		events:       eventPublisher{dispatcher: deps.Dispatcher, logger: logger},
		logger:       logger,
		radiusMeters: radius,
	}
}

// Prepare walks input through the workflow up to Categorization. Every
// check is local; the only collaborator call is the category load.
func (s *SubmissionService) Prepare(ctx context.Context, input SubmissionInput) (*workflow.Submission, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	sub := workflow.NewSubmission(categories)
	if err := setLocation(sub, input); err != nil {
		return nil, workflowFailure(err)
	}
	steps := []func() error{
		sub.ToEvidence,
		func() error { return sub.SetTitle(input.Title) },
		func() error { return sub.SetDescription(input.Description) },
		func() error {
			if input.Transcript == nil {
				return nil
			}
			return sub.AppendTranscript(*input.Transcript)
		},
		func() error {
			if len(input.Photos) == 0 {
				return nil
			}
			return sub.AddPhotos(input.Photos...)
		},
		sub.ToCategorization,
		func() error { return sub.SetCategorization(input.CategoryID, input.Severity) },
		func() error {
			if !input.Force {
				return nil
			}
			return sub.SkipDuplicateCheck()
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, workflowFailure(err)
		}
	}
	return sub, nil
}

func setLocation(sub *workflow.Submission, input SubmissionInput) error {
	switch input.Source {
	case workflow.SourceMap:
		return sub.PickOnMap(input.Lat, input.Lng)
	case workflow.SourceDevice, "":
		fix := workflow.DeviceFix{Lat: input.Lat, Lng: input.Lng}
		switch input.DeviceError {
		case "":
		case DeviceErrorDenied:
			fix.Err = workflow.ErrLocationDenied
		default:
			fix.Err = workflow.ErrLocationUnavailable
		}
		return sub.UseDeviceFix(fix)
	}
	return &workflow.ValidationError{Field: "location_source", Message: "must be device or map"}
}

// Submit validates and commits a complaint. Unless forced, a matching open
// complaint nearby is offered instead and nothing is inserted.
func (s *SubmissionService) Submit(ctx context.Context, session *domain.Session, input SubmissionInput, idempotencyKey string) (*SubmissionResult, error) {
	if session.Blocked() {
		return nil, apperrors.NewForbidden("account is blocked")
	}

	sub, err := s.Prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	owner := session.Identity.ID
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		replayed, held, err := s.reserveKey(ctx, owner, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if replayed != nil {
			return replayed, nil
		}
		if !held {
			idempotencyKey = ""
		}
	}

	result, err := s.commit(ctx, session, sub)
	if idempotencyKey != "" {
		if err != nil || result.Outcome != OutcomeSubmitted {
			s.releaseKey(ctx, owner, idempotencyKey)
		} else if completeErr := s.idempotency.Complete(ctx, owner, idempotencyKey, result.Complaint.ID); completeErr != nil {
			s.logger.Warn("idempotency key not recorded", zap.String("complaint_id", result.Complaint.ID), zap.Error(completeErr))
		}
	}
	return result, err
}

// VoteInstead abandons a submission in favor of the offered complaint.
func (s *SubmissionService) VoteInstead(ctx context.Context, session *domain.Session, complaintID string) (*VoteResult, error) {
	return s.voter.Vote(ctx, session, complaintID)
}

func (s *SubmissionService) commit(ctx context.Context, session *domain.Session, sub *workflow.Submission) (*SubmissionResult, error) {
	draft, err := sub.Ready()
	if err != nil {
		return nil, workflowFailure(err)
	}

	if !draft.Force {
		if match := s.findDuplicate(ctx, draft); match != nil {
			if err := sub.OfferDuplicate(*match); err != nil {
				return nil, workflowFailure(err)
			}
			return &SubmissionResult{Outcome: OutcomeDuplicateOffered, Duplicate: match}, nil
		}
	}

	images, skipped := s.uploadPhotos(ctx, session.Identity.ID, draft.Photos)
	categoryID := draft.CategoryID
	complaint := &domain.Complaint{
		ReporterID:  session.Identity.ID,
		Title:       draft.Title,
		Description: draft.Description,
		CategoryID:  &categoryID,
		Severity:    draft.Severity,
		Status:      domain.ComplaintStatusOpen,
		Location:    draft.Location.Point,
		Geocode:     draft.Location.Geocode,
		Images:      images,
	}
	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, apperrors.NewWriteFailed("failed to submit report", err)
	}
	if err := sub.MarkSubmitted(complaint.ID); err != nil {
		return nil, workflowFailure(err)
	}

	actor := citizenActor(session.Identity.ID)
	s.recordCreated(ctx, actor, complaint, draft.Force)
	s.events.publish(ctx, events.New(events.EventComplaintCreated, complaint.ID, actor,
		events.ComplaintCreatedPayload{
			ReporterID: complaint.ReporterID,
			Title:      complaint.Title,
			CategoryID: complaint.CategoryID,
			Severity:   complaint.Severity,
			Geocode:    complaint.Geocode,
			Images:     len(complaint.Images),
			Forced:     draft.Force,
		}))

	s.logger.Info("complaint submitted",
		zap.String("complaint_id", complaint.ID),
		zap.String("reporter_id", complaint.ReporterID),
		zap.Int("images", len(images)),
		zap.Int("skipped_images", len(skipped)))
	return &SubmissionResult{Outcome: OutcomeSubmitted, Complaint: complaint, SkippedPhotos: skipped}, nil
}

// findDuplicate returns the nearest matching complaint. A failed check is
// treated as no match.
func (s *SubmissionService) findDuplicate(ctx context.Context, draft workflow.Draft) *domain.DuplicateMatch {
	matches, err := s.complaints.FindDuplicates(ctx, draft.Location.Point, draft.Title, draft.CategoryID, s.radiusMeters)
	if err != nil {
		s.logger.Warn("duplicate check failed, continuing", zap.Error(err))
		return nil
	}
	if len(matches) == 0 {
		return nil
	}
	best := matches[0]
	return &best
}

// uploadPhotos stores each photo in turn. A failed upload is skipped.
func (s *SubmissionService) uploadPhotos(ctx context.Context, ownerID string, photos []workflow.Photo) (urls, skipped []string) {
	for _, photo := range photos {
		if s.uploader == nil {
			skipped = append(skipped, photo.Name)
			continue
		}
		url, err := s.uploader.Upload(ctx, storage.ObjectKey(ownerID, photo.Name), photo.Data, photo.ContentType)
		if err != nil {
			s.logger.Warn("photo upload failed", zap.String("photo", photo.Name), zap.Error(err))
			skipped = append(skipped, photo.Name)
			continue
		}
		urls = append(urls, url)
	}
	return urls, skipped
}

func (s *SubmissionService) recordCreated(ctx context.Context, actor events.Actor, complaint *domain.Complaint, forced bool) {
	if s.history == nil {
		return
	}
	actorType, actorID := historyActor(actor)
	entry := &domain.ComplaintHistory{
		ComplaintID:   complaint.ID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    domain.ChangeTypeCreated,
		NewValue: map[string]any{
			"status":   complaint.Status,
			"severity": complaint.Severity,
			"forced":   forced,
		},
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("history write failed", zap.String("complaint_id", complaint.ID), zap.Error(err))
	}
}

// reserveKey claims an idempotency key. It returns a replayed result when the
// key already produced a complaint, and held=false when the key store is
// unreachable and the request proceeds without it.
func (s *SubmissionService) reserveKey(ctx context.Context, owner, key string) (replayed *SubmissionResult, held bool, err error) {
	if s.idempotency == nil {
		return nil, false, nil
	}
	complaintID, reserved, err := s.idempotency.Reserve(ctx, owner, key)
	switch {
	case errors.Is(err, cache.ErrRequestInFlight):
		return nil, false, apperrors.NewConflict("a request with this idempotency key is in progress", nil)
	case err != nil:
		s.logger.Warn("idempotency store unavailable", zap.Error(err))
		return nil, false, nil
	case reserved:
		return nil, true, nil
	}

	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, false, readFailure("complaint", "failed to load submitted complaint", err)
	}
	return &SubmissionResult{Outcome: OutcomeReplayed, Complaint: complaint}, false, nil
}

func (s *SubmissionService) releaseKey(ctx context.Context, owner, key string) {
	if err := s.idempotency.Release(ctx, owner, key); err != nil {
		s.logger.Warn("idempotency key release failed", zap.Error(err))
	}
}
