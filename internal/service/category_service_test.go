package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/civicseva/civic-complaints/internal/domain"
)

var testCategories = []domain.Category{
	{ID: "cat-road", Name: "Road Damage", Icon: "road"},
	{ID: "cat-water", Name: "Water Supply", Icon: "droplet"},
}

func TestCategoryListCachesFreshResult(t *testing.T) {
	repo := new(MockCategoryRepo)
	cache := new(MockCategoryCache)
	repo.On("ListAll", mock.Anything).Return(testCategories, nil)
	cache.On("Set", mock.Anything, testCategories).Return(nil)

	svc := NewCategoryService(repo, cache, nil)
	categories, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testCategories, categories)
	cache.AssertExpectations(t)
}

func TestCategoryListFallsBackToCache(t *testing.T) {
	repo := new(MockCategoryRepo)
	cache := new(MockCategoryCache)
	repo.On("ListAll", mock.Anything).Return(nil, errors.New("connection refused"))
	cache.On("Get", mock.Anything).Return(testCategories, true, nil)

	svc := NewCategoryService(repo, cache, nil)
	categories, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 2)
}

func TestCategoryListUnavailableWithoutCache(t *testing.T) {
	repo := new(MockCategoryRepo)
	cache := new(MockCategoryCache)
	repo.On("ListAll", mock.Anything).Return(nil, errors.New("connection refused"))
	cache.On("Get", mock.Anything).Return(nil, false, nil)

	svc := NewCategoryService(repo, cache, nil)
	_, err := svc.List(context.Background())
	assertDomainStatus(t, err, http.StatusServiceUnavailable)
}

func TestCategoryCacheWriteFailureIsIgnored(t *testing.T) {
	repo := new(MockCategoryRepo)
	cache := new(MockCategoryCache)
	repo.On("ListAll", mock.Anything).Return(testCategories, nil)
	cache.On("Set", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	svc := NewCategoryService(repo, cache, nil)
	_, err := svc.List(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, svc.Warm(context.Background()))
}
