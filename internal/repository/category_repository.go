package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/persistence"
)

// CategoryRepository reads complaint classification reference data.
type CategoryRepository interface {
	ListAll(ctx context.Context) ([]domain.Category, error)
}

type categoryRepository struct {
	pool   *pgxpool.Pool
	policy persistence.CallPolicy
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool, policy persistence.CallPolicy) CategoryRepository {
	return &categoryRepository{pool: pool, policy: policy}
}

func (r *categoryRepository) ListAll(ctx context.Context) ([]domain.Category, error) {
	const query = `SELECT id::text, name, icon FROM categories ORDER BY name ASC`

	var result []domain.Category
	err := r.policy.Read(ctx, "categories.list", func(ctx context.Context) error {
		result = nil
		rows, err := r.pool.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var cat domain.Category
			if err := rows.Scan(&cat.ID, &cat.Name, &cat.Icon); err != nil {
				return err
			}
			result = append(result, cat)
		}
		return rows.Err()
	})
	return result, err
}
