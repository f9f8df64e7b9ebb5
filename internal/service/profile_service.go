package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/auth"
	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/repository"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

const (
	aadharDigits  = 12
	pincodeDigits = 6
)

// ProfileService reads and edits the caller's own profile.
type ProfileService struct {
	repo       repository.ProfileRepository
	bcryptCost int
	logger     *zap.Logger
}

// ProfileUpdate carries optional profile edits. A nil field is left as is;
// an empty string clears it.
type ProfileUpdate struct {
	Aadhar     *string
	HouseNo    *string
	ColonyName *string
	Pincode    *string
	MapLink    *string
}

// NewProfileService builds the service.
func NewProfileService(repo repository.ProfileRepository, bcryptCost int, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, bcryptCost: bcryptCost, logger: logger}
}

// Get returns the caller's current profile.
func (s *ProfileService) Get(ctx context.Context, session *domain.Session) (*domain.Profile, error) {
	profile, err := s.repo.GetByID(ctx, session.Identity.ID)
	if err != nil {
		return nil, readFailure("profile", "failed to load profile", err)
	}
	return profile, nil
}

// Update applies the edits. The national id is stored only as a hash.
func (s *ProfileService) Update(ctx context.Context, session *domain.Session, update ProfileUpdate) (*domain.Profile, error) {
	profile, err := s.Get(ctx, session)
	if err != nil {
		return nil, err
	}

	if update.Aadhar != nil {
		number := stripSpaces(*update.Aadhar)
		switch {
		case number == "":
			profile.AadharHash = nil
		case !allDigits(number, aadharDigits):
			return nil, apperrors.NewValidationError("aadhar number must have 12 digits", map[string]any{"field": "aadhar"})
		default:
			hashed, err := auth.HashSecret(number, s.bcryptCost)
			if err != nil {
				return nil, apperrors.NewInternalError(err)
			}
			profile.AadharHash = &hashed
		}
	}
	if update.Pincode != nil {
		pin := strings.TrimSpace(*update.Pincode)
		if pin != "" && !allDigits(pin, pincodeDigits) {
			return nil, apperrors.NewValidationError("pincode must have 6 digits", map[string]any{"field": "pincode"})
		}
		profile.Pincode = optionalString(pin)
	}
	if update.HouseNo != nil {
		profile.HouseNo = optionalString(*update.HouseNo)
	}
	if update.ColonyName != nil {
		profile.ColonyName = optionalString(*update.ColonyName)
	}
	if update.MapLink != nil {
		profile.MapLink = optionalString(*update.MapLink)
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, apperrors.NewWriteFailed("failed to update profile", err)
	}
	s.logger.Info("profile updated", zap.String("profile_id", profile.ID))
	return profile, nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func stripSpaces(v string) string {
	return strings.Join(strings.Fields(v), "")
}

func allDigits(v string, n int) bool {
	if len(v) != n {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
