package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/civicseva/civic-complaints/internal/auth"
	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/repository"
)

type MockTokenParser struct {
	mock.Mock
}

func (m *MockTokenParser) ParseToken(token string) (*auth.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

type MockRevocations struct {
	mock.Mock
}

func (m *MockRevocations) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	return m.Called(ctx, token, expiresAt).Error(0)
}

func (m *MockRevocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockProfileRepo) Update(ctx context.Context, profile *domain.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

type MockCategoryRepo struct {
	mock.Mock
}

func (m *MockCategoryRepo) ListAll(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

type MockCategoryCache struct {
	mock.Mock
}

func (m *MockCategoryCache) Get(ctx context.Context) ([]domain.Category, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.Category), args.Bool(1), args.Error(2)
}

func (m *MockCategoryCache) Set(ctx context.Context, categories []domain.Category) error {
	return m.Called(ctx, categories).Error(0)
}

type MockComplaintRepo struct {
	mock.Mock
}

func (m *MockComplaintRepo) Create(ctx context.Context, complaint *domain.Complaint) error {
	return m.Called(ctx, complaint).Error(0)
}

func (m *MockComplaintRepo) UpdateStatus(ctx context.Context, complaint *domain.Complaint, expected domain.ComplaintStatus) error {
	return m.Called(ctx, complaint, expected).Error(0)
}

func (m *MockComplaintRepo) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Complaint), args.Error(1)
}

func (m *MockComplaintRepo) ListByReporter(ctx context.Context, reporterID string) ([]domain.Complaint, error) {
	args := m.Called(ctx, reporterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Complaint), args.Error(1)
}

func (m *MockComplaintRepo) ListWithFilter(ctx context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Complaint), args.Error(1)
}

func (m *MockComplaintRepo) ListForMap(ctx context.Context) ([]domain.Complaint, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Complaint), args.Error(1)
}

func (m *MockComplaintRepo) ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Complaint, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Complaint), args.Error(1)
}

func (m *MockComplaintRepo) Stats(ctx context.Context) (domain.ComplaintStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ComplaintStats), args.Error(1)
}

func (m *MockComplaintRepo) FindDuplicates(ctx context.Context, point domain.GeoPoint, title, categoryID string, radiusMeters float64) ([]domain.DuplicateMatch, error) {
	args := m.Called(ctx, point, title, categoryID, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DuplicateMatch), args.Error(1)
}

type MockVoteRepo struct {
	mock.Mock
}

func (m *MockVoteRepo) Insert(ctx context.Context, vote *domain.Vote) (bool, error) {
	args := m.Called(ctx, vote)
	return args.Bool(0), args.Error(1)
}

func (m *MockVoteRepo) CountByComplaint(ctx context.Context, complaintID string) (int, error) {
	args := m.Called(ctx, complaintID)
	return args.Int(0), args.Error(1)
}

type MockReviewRepo struct {
	mock.Mock
}

func (m *MockReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *MockReviewRepo) ListByComplaint(ctx context.Context, complaintID string) ([]domain.Review, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

type MockHistoryRepo struct {
	mock.Mock
}

func (m *MockHistoryRepo) Create(ctx context.Context, history *domain.ComplaintHistory) error {
	return m.Called(ctx, history).Error(0)
}

func (m *MockHistoryRepo) ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComplaintHistory), args.Error(1)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, objectPath, data, contentType)
	return args.String(0), args.Error(1)
}

type MockIdempotency struct {
	mock.Mock
}

func (m *MockIdempotency) Reserve(ctx context.Context, owner, key string) (string, bool, error) {
	args := m.Called(ctx, owner, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockIdempotency) Complete(ctx context.Context, owner, key, complaintID string) error {
	return m.Called(ctx, owner, key, complaintID).Error(0)
}

func (m *MockIdempotency) Release(ctx context.Context, owner, key string) error {
	return m.Called(ctx, owner, key).Error(0)
}

func citizenSession(id string) *domain.Session {
	return &domain.Session{
		Identity: domain.Identity{ID: id, Email: id + "@example.org"},
		Role:     domain.RoleCitizen,
		Profile:  &domain.Profile{ID: id, Role: domain.RoleCitizen},
	}
}

func adminSession(id string) *domain.Session {
	return &domain.Session{
		Identity: domain.Identity{ID: id, Email: id + "@example.org"},
		Role:     domain.RoleAdmin,
		Profile:  &domain.Profile{ID: id, Role: domain.RoleAdmin},
	}
}
