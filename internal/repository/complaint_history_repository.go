package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/persistence"
)

// ComplaintHistoryRepository stores audit entries.
type ComplaintHistoryRepository interface {
	Create(ctx context.Context, history *domain.ComplaintHistory) error
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error)
}

type complaintHistoryRepository struct {
	pool   *pgxpool.Pool
	policy persistence.CallPolicy
}

// NewComplaintHistoryRepository builds repository.
func NewComplaintHistoryRepository(pool *pgxpool.Pool, policy persistence.CallPolicy) ComplaintHistoryRepository {
	return &complaintHistoryRepository{pool: pool, policy: policy}
}

func (r *complaintHistoryRepository) Create(ctx context.Context, history *domain.ComplaintHistory) error {
	const query = `
        INSERT INTO complaint_history (complaint_id, changed_by_type, changed_by_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id::text, created_at`
	return r.policy.Write(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query,
			history.ComplaintID,
			history.ChangedByType,
			history.ChangedByID,
			history.ChangeType,
			history.OldValue,
			history.NewValue,
		).Scan(&history.ID, &history.CreatedAt)
	})
}

func (r *complaintHistoryRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	const query = `
        SELECT id::text, complaint_id::text, changed_by_type, changed_by_id, change_type, old_value, new_value, created_at
        FROM complaint_history WHERE complaint_id=$1 ORDER BY created_at ASC`

	var result []domain.ComplaintHistory
	err := r.policy.Read(ctx, "complaint_history.list", func(ctx context.Context) error {
		result = nil
		rows, err := r.pool.Query(ctx, query, complaintID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var history domain.ComplaintHistory
			if err := rows.Scan(
				&history.ID,
				&history.ComplaintID,
				&history.ChangedByType,
				&history.ChangedByID,
				&history.ChangeType,
				&history.OldValue,
				&history.NewValue,
				&history.CreatedAt,
			); err != nil {
				return err
			}
			result = append(result, history)
		}
		return rows.Err()
	})
	return result, err
}
