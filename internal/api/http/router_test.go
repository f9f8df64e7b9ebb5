package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/api/http/handlers"
	"github.com/civicseva/civic-complaints/internal/assistant"
	"github.com/civicseva/civic-complaints/internal/auth"
	"github.com/civicseva/civic-complaints/internal/config"
	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/observability"
	"github.com/civicseva/civic-complaints/internal/service"
	"github.com/civicseva/civic-complaints/internal/views"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

const complaintID = "4a1f0c62-7d1e-4c36-9a52-2f0b8f3f9e11"

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, credential string) (*domain.Session, error) {
	switch credential {
	case "citizen-token":
		return &domain.Session{Identity: domain.Identity{ID: "citizen-1"}, Role: domain.RoleCitizen}, nil
	case "admin-token":
		return &domain.Session{Identity: domain.Identity{ID: "admin-1"}, Role: domain.RoleAdmin}, nil
	case "flaky-token":
		return nil, apperrors.NewUnavailable("profile lookup failed", errors.New("timeout"))
	}
	return nil, nil
}

func (stubResolver) SignOut(context.Context, *domain.Session) error { return nil }

type stubComplaints struct {
	submitInput service.SubmissionInput
	advanceErr  error
}

func (s *stubComplaints) Submit(_ context.Context, _ *domain.Session, input service.SubmissionInput, _ string) (*service.SubmissionResult, error) {
	s.submitInput = input
	if input.Force {
		return &service.SubmissionResult{Outcome: service.OutcomeSubmitted, Complaint: &domain.Complaint{ID: "new-id", Title: input.Title}}, nil
	}
	return &service.SubmissionResult{
		Outcome:   service.OutcomeDuplicateOffered,
		Duplicate: &domain.DuplicateMatch{Complaint: domain.Complaint{ID: complaintID}, DistanceMeters: 14},
	}, nil
}

func (s *stubComplaints) VoteInstead(ctx context.Context, session *domain.Session, id string) (*service.VoteResult, error) {
	return s.Vote(ctx, session, id)
}

func (s *stubComplaints) Get(_ context.Context, id string) (*domain.Complaint, error) {
	return &domain.Complaint{ID: id, Status: domain.ComplaintStatusOpen}, nil
}

func (s *stubComplaints) ListMine(context.Context, *domain.Session) ([]domain.Complaint, error) {
	return []domain.Complaint{{ID: complaintID}}, nil
}

func (s *stubComplaints) MapClusters(_ context.Context, zoom int) ([]views.Cluster, error) {
	return []views.Cluster{{Count: zoom, Size: views.SizeSmall}}, nil
}

func (s *stubComplaints) Vote(_ context.Context, _ *domain.Session, id string) (*service.VoteResult, error) {
	return &service.VoteResult{Complaint: &domain.Complaint{ID: id, VoteCount: 3}, Created: true}, nil
}

func (s *stubComplaints) Reopen(_ context.Context, _ *domain.Session, id string) (*domain.Complaint, error) {
	return &domain.Complaint{ID: id, Status: domain.ComplaintStatusOpen, ReopenCount: 1}, nil
}

func (s *stubComplaints) Review(_ context.Context, _ *domain.Session, id string, rating int, _ string) (*domain.Review, error) {
	return &domain.Review{ID: "review-1", ComplaintID: id, Rating: rating}, nil
}

func (s *stubComplaints) ListReviews(context.Context, string) ([]domain.Review, error) {
	return nil, nil
}

func (s *stubComplaints) ListForAuthority(context.Context, service.AuthorityFilter) ([]domain.Complaint, error) {
	return []domain.Complaint{{ID: complaintID}}, nil
}

func (s *stubComplaints) Stats(context.Context) (domain.ComplaintStats, error) {
	return domain.ComplaintStats{Total: 4, Pending: 2, Critical: 1}, nil
}

func (s *stubComplaints) Advance(_ context.Context, _ *domain.Session, id string, next domain.ComplaintStatus, _ string) (*domain.Complaint, error) {
	if s.advanceErr != nil {
		return nil, s.advanceErr
	}
	return &domain.Complaint{ID: id, Status: next}, nil
}

func (s *stubComplaints) History(context.Context, string) ([]domain.ComplaintHistory, error) {
	return []domain.ComplaintHistory{}, nil
}

type stubProfiles struct{}

func (stubProfiles) Get(_ context.Context, session *domain.Session) (*domain.Profile, error) {
	return &domain.Profile{ID: session.Identity.ID, Role: session.Role}, nil
}

func (stubProfiles) Update(_ context.Context, session *domain.Session, _ service.ProfileUpdate) (*domain.Profile, error) {
	return &domain.Profile{ID: session.Identity.ID}, nil
}

func (stubProfiles) List(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: "cat-road", Name: "Road Damage"}}, nil
}

func newTestApp(complaints *stubComplaints) *fiber.App {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	RegisterMiddlewares(app, logger, metrics, 0)

	resolver := stubResolver{}
	chat := assistant.NewProxy(assistant.NewClient(assistantConfigForTest(), nil), nil, 0, nil)
	RegisterRoutes(app, RouteConfig{
		Health:            handlers.NewHealthHandler("civic", "test", nil, metrics),
		Session:           handlers.NewSessionHandler(resolver),
		Profile:           handlers.NewProfileHandler(stubProfiles{}, stubProfiles{}),
		Complaints:        handlers.NewComplaintsHandler(complaints, complaints),
		Authority:         handlers.NewAuthorityHandler(complaints),
		Chat:              handlers.NewChatHandler(chat),
		SessionMiddleware: auth.NewSessionMiddleware(resolver),
	})
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request, token string) (*http.Response, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func TestRoleGuards(t *testing.T) {
	app := newTestApp(&stubComplaints{})
	cases := []struct {
		method, path, token string
		status              int
	}{
		{"GET", "/complaints/mine", "", http.StatusUnauthorized},
		{"GET", "/complaints/mine", "admin-token", http.StatusForbidden},
		{"GET", "/complaints/mine", "citizen-token", http.StatusOK},
		{"GET", "/authority/stats", "citizen-token", http.StatusForbidden},
		{"GET", "/authority/stats", "admin-token", http.StatusOK},
		{"GET", "/authority/complaints?status=open,in_progress&q=DL", "admin-token", http.StatusOK},
		{"GET", "/complaints/map?zoom=14", "citizen-token", http.StatusOK},
		{"GET", "/complaints/map?zoom=x", "citizen-token", http.StatusBadRequest},
		{"GET", "/categories", "", http.StatusOK},
		{"GET", "/health/live", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path+" "+tc.token, func(t *testing.T) {
			resp, _ := do(t, app, httptest.NewRequest(tc.method, tc.path, nil), tc.token)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestResolverFailureIsRetryable(t *testing.T) {
	app := newTestApp(&stubComplaints{})

	resp, body := do(t, app, httptest.NewRequest("GET", "/auth/session", nil), "flaky-token")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errBody["code"])
}

func TestSessionEndpoint(t *testing.T) {
	app := newTestApp(&stubComplaints{})

	_, body := do(t, app, httptest.NewRequest("GET", "/auth/session", nil), "admin-token")
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["authenticated"])
	assert.Equal(t, "/authority-dashboard", data["destination"])

	_, body = do(t, app, httptest.NewRequest("GET", "/auth/session", nil), "expired")
	data = body["data"].(map[string]any)
	assert.Equal(t, false, data["authenticated"])
	assert.Equal(t, "/login", data["destination"])
}

func TestGateRedirects(t *testing.T) {
	app := newTestApp(&stubComplaints{})
	cases := []struct {
		view, token, location string
	}{
		{"authority", "citizen-token", "/citizen-app"},
		{"citizen", "admin-token", "/authority-dashboard"},
		{"citizen", "", "/login"},
		{"login", "citizen-token", "/citizen-app"},
	}
	for _, tc := range cases {
		resp, _ := do(t, app, httptest.NewRequest("GET", "/gate/"+tc.view, nil), tc.token)
		assert.Equal(t, http.StatusFound, resp.StatusCode, tc.view)
		assert.Equal(t, tc.location, resp.Header.Get("Location"), tc.view)
	}

	resp, _ := do(t, app, httptest.NewRequest("GET", "/gate/authority", nil), "admin-token")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func multipartSubmission(t *testing.T, fields map[string]string, photos int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i := 0; i < photos; i++ {
		part, err := w.CreateFormFile("photos", "pothole.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte{0xff, 0xd8, 0xff})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest("POST", "/complaints", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSubmitDuplicateOffered(t *testing.T) {
	complaints := &stubComplaints{}
	app := newTestApp(complaints)
	fields := map[string]string{
		"location_source": "map",
		"lat":             "28.6139",
		"lng":             "77.2095",
		"title":           "Pothole",
		"description":     "Deep pothole",
		"category_id":     "cat-road",
		"severity":        "HIGH",
	}

	resp, body := do(t, app, multipartSubmission(t, fields, 2), "citizen-token")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "duplicate_offered", data["outcome"])
	assert.Len(t, complaints.submitInput.Photos, 2)
	assert.Equal(t, domain.SeverityHigh, complaints.submitInput.Severity)

	fields["force"] = "true"
	resp, body = do(t, app, multipartSubmission(t, fields, 0), "citizen-token")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "submitted", body["data"].(map[string]any)["outcome"])
}

func TestSubmitValidation(t *testing.T) {
	app := newTestApp(&stubComplaints{})

	resp, body := do(t, app, multipartSubmission(t, map[string]string{"title": "x"}, 0), "citizen-token")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])

	fields := map[string]string{"lat": "28.6", "lng": "77.2"}
	resp, _ = do(t, app, multipartSubmission(t, fields, 6), "citizen-token")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusUpdateErrorEnvelope(t *testing.T) {
	complaints := &stubComplaints{advanceErr: apperrors.NewInvalidTransition("closed", "open")}
	app := newTestApp(complaints)

	req := httptest.NewRequest("POST", "/authority/complaints/"+complaintID+"/status", strings.NewReader(`{"status":"open"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := do(t, app, req, "admin-token")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_TRANSITION", errBody["code"])
	assert.Equal(t, "closed", errBody["details"].(map[string]any)["from"])
}

func TestVoteReportsCreation(t *testing.T) {
	app := newTestApp(&stubComplaints{})

	resp, body := do(t, app, httptest.NewRequest("POST", "/complaints/"+complaintID+"/votes", nil), "citizen-token")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["data"].(map[string]any)["created"])
}

func TestChatRejectsEmptyConversation(t *testing.T) {
	app := newTestApp(&stubComplaints{})

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"messages":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := do(t, app, req, "citizen-token")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, httptest.NewRequest("POST", "/chat", nil), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func assistantConfigForTest() config.AssistantConfig {
	return config.AssistantConfig{BaseURL: "http://127.0.0.1:1", APIKey: "test"}
}
