package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/persistence"
)

// ProfileRepository defines persistence access for signed-in people.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}

type profileRepository struct {
	pool   *pgxpool.Pool
	policy persistence.CallPolicy
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool, policy persistence.CallPolicy) ProfileRepository {
	return &profileRepository{pool: pool, policy: policy}
}

// Create inserts a profile keyed by the identity id. A concurrent insert for
// the same id surfaces as a unique violation.
func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (id, email, role)
        VALUES ($1, $2, $3)
        RETURNING created_at, updated_at`

	return r.policy.Write(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query,
			profile.ID,
			profile.Email,
			profile.Role,
		).Scan(&profile.CreatedAt, &profile.UpdatedAt)
	})
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	const query = `
        UPDATE profiles SET aadhar_hash=$1, house_no=$2, colony_name=$3, pincode=$4, map_lngh=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	return r.policy.Write(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query,
			profile.AadharHash,
			profile.HouseNo,
			profile.ColonyName,
			profile.Pincode,
			profile.MapLink,
			profile.ID,
		).Scan(&profile.UpdatedAt)
	})
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `
        SELECT id, email, role, aadhar_hash, blocked, spam_strikes, house_no, colony_name, pincode, map_lngh, created_at, updated_at
        FROM profiles WHERE id=$1`

	var profile domain.Profile
	err := r.policy.Read(ctx, "profiles.get", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query, id).Scan(
			&profile.ID,
			&profile.Email,
			&profile.Role,
			&profile.AadharHash,
			&profile.Blocked,
			&profile.SpamStrikes,
			&profile.HouseNo,
			&profile.ColonyName,
			&profile.Pincode,
			&profile.MapLink,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
