package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicseva/civic-complaints/internal/api/dto"
	"github.com/civicseva/civic-complaints/internal/auth"
	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/service"
	"github.com/civicseva/civic-complaints/internal/views"
	"github.com/civicseva/civic-complaints/internal/workflow"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxPhotoBytes     = 10 << 20
)

// Submitter commits new complaints.
type Submitter interface {
	Submit(ctx context.Context, session *domain.Session, input service.SubmissionInput, idempotencyKey string) (*service.SubmissionResult, error)
	VoteInstead(ctx context.Context, session *domain.Session, complaintID string) (*service.VoteResult, error)
}

// ComplaintActions covers citizen reads and follow-ups on complaints.
type ComplaintActions interface {
	Get(ctx context.Context, complaintID string) (*domain.Complaint, error)
	ListMine(ctx context.Context, session *domain.Session) ([]domain.Complaint, error)
	MapClusters(ctx context.Context, zoom int) ([]views.Cluster, error)
	Vote(ctx context.Context, session *domain.Session, complaintID string) (*service.VoteResult, error)
	Reopen(ctx context.Context, session *domain.Session, complaintID string) (*domain.Complaint, error)
	Review(ctx context.Context, session *domain.Session, complaintID string, rating int, comment string) (*domain.Review, error)
	ListReviews(ctx context.Context, complaintID string) ([]domain.Review, error)
}

// ComplaintsHandler manages citizen complaint endpoints.
type ComplaintsHandler struct {
	submissions Submitter
	complaints  ComplaintActions
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(submissions Submitter, complaints ComplaintActions) *ComplaintsHandler {
	return &ComplaintsHandler{submissions: submissions, complaints: complaints}
}

// Submit POST /complaints. A nearby matching complaint answers 409 with the
// duplicate; resend with force=true to file anyway.
func (h *ComplaintsHandler) Submit(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	input, err := parseSubmission(c)
	if err != nil {
		return err
	}

	result, err := h.submissions.Submit(c.UserContext(), session, input, c.Get(idempotencyHeader))
	if err != nil {
		return err
	}
	status := http.StatusCreated
	switch result.Outcome {
	case service.OutcomeDuplicateOffered:
		status = http.StatusConflict
	case service.OutcomeReplayed:
		status = http.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{"data": submissionResponse(result)})
}

// VoteInstead POST /complaints/:id/vote-instead resolves a duplicate offer by
// endorsing the existing complaint.
func (h *ComplaintsHandler) VoteInstead(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	result, err := h.submissions.VoteInstead(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": voteResponse(result)})
}

// Mine GET /complaints/mine.
func (h *ComplaintsHandler) Mine(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	complaints, err := h.complaints.ListMine(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponses(complaints)})
}

// Map GET /complaints/map?zoom=.
func (h *ComplaintsHandler) Map(c *fiber.Ctx) error {
	zoom := views.DefaultZoom
	if raw := c.Query("zoom"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("zoom must be an integer", map[string]any{"field": "zoom"})
		}
		zoom = views.ClampZoom(parsed)
	}
	clusters, err := h.complaints.MapClusters(c.UserContext(), zoom)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MapResponse{Zoom: zoom, Clusters: clusterResponses(clusters)}})
}

// Get GET /complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	complaint, err := h.complaints.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// Vote POST /complaints/:id/votes.
func (h *ComplaintsHandler) Vote(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	result, err := h.complaints.Vote(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": voteResponse(result)})
}

// Reopen POST /complaints/:id/reopen.
func (h *ComplaintsHandler) Reopen(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	complaint, err := h.complaints.Reopen(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// Review POST /complaints/:id/reviews.
func (h *ComplaintsHandler) Review(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	review, err := h.complaints.Review(c.UserContext(), session, c.Params("id"), req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": reviewResponse(review)})
}

// Reviews GET /complaints/:id/reviews.
func (h *ComplaintsHandler) Reviews(c *fiber.Ctx) error {
	reviews, err := h.complaints.ListReviews(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		items = append(items, reviewResponse(&reviews[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func voteResponse(result *service.VoteResult) dto.VoteResponse {
	return dto.VoteResponse{Created: result.Created, Complaint: complaintResponse(result.Complaint)}
}

func parseSubmission(c *fiber.Ctx) (service.SubmissionInput, error) {
	deviceError := strings.ToLower(c.FormValue("location_error"))
	rawLat, rawLng := strings.TrimSpace(c.FormValue("lat")), strings.TrimSpace(c.FormValue("lng"))
	if deviceError == "" && (rawLat == "" || rawLng == "") {
		return service.SubmissionInput{}, apperrors.NewValidationError("location is required", map[string]any{"field": "location"})
	}
	lat, err := parseCoordinate(rawLat, "lat")
	if err != nil {
		return service.SubmissionInput{}, err
	}
	lng, err := parseCoordinate(rawLng, "lng")
	if err != nil {
		return service.SubmissionInput{}, err
	}

	input := service.SubmissionInput{
		Source:      workflow.LocationSource(strings.ToLower(c.FormValue("location_source"))),
		Lat:         lat,
		Lng:         lng,
		DeviceError: deviceError,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		CategoryID:  c.FormValue("category_id"),
		Severity:    domain.Severity(strings.ToLower(c.FormValue("severity"))),
	}
	if force := c.FormValue("force"); force != "" {
		input.Force, err = strconv.ParseBool(force)
		if err != nil {
			return service.SubmissionInput{}, apperrors.NewValidationError("force must be a boolean", map[string]any{"field": "force"})
		}
	}
	transcript := c.FormValue("transcript")
	transcriptErr := c.FormValue("transcript_error")
	if transcript != "" || transcriptErr != "" {
		input.Transcript = &workflow.Transcript{Text: transcript, ErrCode: transcriptErr}
	}

	form, err := c.MultipartForm()
	if err != nil {
		// urlencoded submissions carry no photos
		return input, nil
	}
	files := form.File["photos"]
	if len(files) > workflow.MaxPhotos {
		return service.SubmissionInput{}, apperrors.NewValidationError(workflow.ErrPhotoLimit.Message, map[string]any{"field": "photos"})
	}
	for _, fh := range files {
		photo, err := readPhoto(fh)
		if err != nil {
			return service.SubmissionInput{}, err
		}
		input.Photos = append(input.Photos, photo)
	}
	return input, nil
}

func parseCoordinate(raw, field string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("coordinate must be a number", map[string]any{"field": field})
	}
	return v, nil
}

func readPhoto(fh *multipart.FileHeader) (workflow.Photo, error) {
	if fh.Size > maxPhotoBytes {
		return workflow.Photo{}, apperrors.NewValidationError("photo is too large", map[string]any{"field": "photos", "name": fh.Filename})
	}
	f, err := fh.Open()
	if err != nil {
		return workflow.Photo{}, apperrors.NewValidationError("unreadable photo", map[string]any{"field": "photos", "name": fh.Filename})
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes+1))
	if err != nil {
		return workflow.Photo{}, apperrors.NewValidationError("unreadable photo", map[string]any{"field": "photos", "name": fh.Filename})
	}
	contentType := fh.Header.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return workflow.Photo{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}
