package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/persistence"
)

// ReviewRepository persists reporter feedback on resolved complaints.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.Review, error)
}

type reviewRepository struct {
	pool   *pgxpool.Pool
	policy persistence.CallPolicy
}

// NewReviewRepository creates repository.
func NewReviewRepository(pool *pgxpool.Pool, policy persistence.CallPolicy) ReviewRepository {
	return &reviewRepository{pool: pool, policy: policy}
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	const query = `
        INSERT INTO reviews (complaint_id, user_id, rating, comment)
        VALUES ($1,$2,$3,$4)
        RETURNING id::text, created_at`
	return r.policy.Write(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query,
			review.ComplaintID,
			review.UserID,
			review.Rating,
			review.Comment,
		).Scan(&review.ID, &review.CreatedAt)
	})
}

func (r *reviewRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.Review, error) {
	const query = `
        SELECT id::text, complaint_id::text, user_id, rating, comment, created_at
        FROM reviews WHERE complaint_id=$1 ORDER BY created_at ASC`

	var result []domain.Review
	err := r.policy.Read(ctx, "reviews.list", func(ctx context.Context) error {
		result = nil
		rows, err := r.pool.Query(ctx, query, complaintID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var review domain.Review
			if err := rows.Scan(
				&review.ID,
				&review.ComplaintID,
				&review.UserID,
				&review.Rating,
				&review.Comment,
				&review.CreatedAt,
			); err != nil {
				return err
			}
			result = append(result, review)
		}
		return rows.Err()
	})
	return result, err
}
