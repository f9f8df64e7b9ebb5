package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/auth"
	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/persistence"
	"github.com/civicseva/civic-complaints/internal/repository"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

// TokenParser validates identity provider tokens.
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// TokenRevocations tracks signed-out tokens.
type TokenRevocations interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RoleResolver turns a session credential into an identity and role,
// provisioning a citizen profile the first time an identity is seen.
type RoleResolver struct {
	tokens      TokenParser
	revocations TokenRevocations
	profiles    repository.ProfileRepository
	logger      *zap.Logger
}

// RoleResolverDependencies bundles collaborators for the resolver.
type RoleResolverDependencies struct {
	Tokens      TokenParser
	Revocations TokenRevocations
	ProfileRepo repository.ProfileRepository
	Logger      *zap.Logger
}

// NewRoleResolver constructs the resolver. Revocations may be nil.
func NewRoleResolver(deps RoleResolverDependencies) *RoleResolver {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleResolver{
		tokens:      deps.Tokens,
		revocations: deps.Revocations,
		profiles:    deps.ProfileRepo,
		logger:      logger,
	}
}

// Resolve returns the session for credential. A missing, invalid, expired
// or revoked credential yields (nil, nil). A failed profile lookup yields a
// retryable error and never a session: no role is assumed on failure.
func (r *RoleResolver) Resolve(ctx context.Context, credential string) (*domain.Session, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, nil
	}

	claims, err := r.tokens.ParseToken(credential)
	if err != nil {
		r.logger.Debug("rejected session token", zap.Error(err))
		return nil, nil
	}

	if r.revocations != nil {
		revoked, err := r.revocations.IsRevoked(ctx, credential)
		if err != nil {
			return nil, apperrors.NewUnavailable("session check failed", err)
		}
		if revoked {
			return nil, nil
		}
	}

	identity := claims.Identity()
	profile, err := r.loadOrProvision(ctx, identity)
	if err != nil {
		r.logger.Warn("role resolution failed", zap.String("identity_id", identity.ID), zap.Error(err))
		return nil, err
	}

	return &domain.Session{
		Identity:  identity,
		Role:      profile.Role.Normalize(),
		Profile:   profile,
		Token:     credential,
		ExpiresAt: claims.ExpiresAtTime(),
	}, nil
}

// SignOut revokes the session's token until it expires.
func (r *RoleResolver) SignOut(ctx context.Context, session *domain.Session) error {
	if session == nil || r.revocations == nil {
		return nil
	}
	if err := r.revocations.Revoke(ctx, session.Token, session.ExpiresAt); err != nil {
		return apperrors.NewWriteFailed("failed to sign out", err)
	}
	return nil
}

func (r *RoleResolver) loadOrProvision(ctx context.Context, identity domain.Identity) (*domain.Profile, error) {
	profile, err := r.profiles.GetByID(ctx, identity.ID)
	if err == nil {
		return profile, nil
	}
	if !persistence.IsNoRows(err) {
		return nil, apperrors.NewUnavailable("profile lookup failed", err)
	}

	profile = &domain.Profile{
		ID:    identity.ID,
		Email: identity.Email,
		Role:  domain.RoleCitizen,
	}
	err = r.profiles.Create(ctx, profile)
	if err == nil {
		r.logger.Info("provisioned profile", zap.String("identity_id", identity.ID))
		return profile, nil
	}
	if !persistence.IsUniqueViolation(err) {
		return nil, apperrors.NewUnavailable("profile provisioning failed", err)
	}

	// A concurrent request created the profile first.
	profile, err = r.profiles.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, apperrors.NewUnavailable("profile lookup failed", err)
	}
	return profile, nil
}
