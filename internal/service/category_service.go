package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/repository"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

// CategoryCache is the last-known-good copy of the category list.
type CategoryCache interface {
	Get(ctx context.Context) ([]domain.Category, bool, error)
	Set(ctx context.Context, categories []domain.Category) error
}

// CategoryService serves the complaint category reference data.
type CategoryService struct {
	repo   repository.CategoryRepository
	cache  CategoryCache
	logger *zap.Logger
}

// NewCategoryService builds the service. cache may be nil.
func NewCategoryService(repo repository.CategoryRepository, cache CategoryCache, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, cache: cache, logger: logger}
}

// List returns every category ordered by name. When the store cannot be
// reached the cached copy is served instead.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListAll(ctx)
	if err == nil {
		s.remember(ctx, categories)
		return categories, nil
	}

	if s.cache != nil {
		cached, found, cacheErr := s.cache.Get(ctx)
		if cacheErr != nil {
			s.logger.Warn("category cache read failed", zap.Error(cacheErr))
		}
		if found {
			s.logger.Warn("serving cached categories", zap.Error(err))
			return cached, nil
		}
	}
	return nil, apperrors.NewUnavailable("failed to load categories", err)
}

// Warm refreshes the cache from the store.
func (s *CategoryService) Warm(ctx context.Context) error {
	categories, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	s.remember(ctx, categories)
	return nil
}

func (s *CategoryService) remember(ctx context.Context, categories []domain.Category) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, categories); err != nil {
		s.logger.Warn("category cache write failed", zap.Error(err))
	}
}
