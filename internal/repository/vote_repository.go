package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/persistence"
)

// VoteRepository stores complaint endorsements.
type VoteRepository interface {
	// Insert records the vote. inserted is false when the voter had already
	// voted on the complaint.
	Insert(ctx context.Context, vote *domain.Vote) (inserted bool, err error)
	CountByComplaint(ctx context.Context, complaintID string) (int, error)
}

type voteRepository struct {
	pool   *pgxpool.Pool
	policy persistence.CallPolicy
}

// NewVoteRepository builds repository.
func NewVoteRepository(pool *pgxpool.Pool, policy persistence.CallPolicy) VoteRepository {
	return &voteRepository{pool: pool, policy: policy}
}

func (r *voteRepository) Insert(ctx context.Context, vote *domain.Vote) (bool, error) {
	const query = `
        INSERT INTO complaint_votes (complaint_id, user_id)
        VALUES ($1, $2)
        RETURNING created_at`
	err := r.policy.Write(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query, vote.ComplaintID, vote.UserID).Scan(&vote.CreatedAt)
	})
	if persistence.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *voteRepository) CountByComplaint(ctx context.Context, complaintID string) (int, error) {
	const query = `SELECT COUNT(*) FROM complaint_votes WHERE complaint_id=$1`
	var count int
	err := r.policy.Read(ctx, "votes.count", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query, complaintID).Scan(&count)
	})
	return count, err
}
