package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/persistence"
)

// ErrStatusChanged is returned when a complaint's status moved underneath a guarded update.
var ErrStatusChanged = errors.New("complaint status changed concurrently")

// ComplaintFilter captures list and search parameters.
type ComplaintFilter struct {
	ReporterID *string
	Statuses   []domain.ComplaintStatus
	Severities []domain.Severity
	SearchTerm *string
	Limit      int
	Offset     int
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	// UpdateStatus persists status, reopen_count and resolved_at, provided the
	// stored status still equals expected.
	UpdateStatus(ctx context.Context, complaint *domain.Complaint, expected domain.ComplaintStatus) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	ListByReporter(ctx context.Context, reporterID string) ([]domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	ListForMap(ctx context.Context) ([]domain.Complaint, error)
	ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Complaint, error)
	Stats(ctx context.Context) (domain.ComplaintStats, error)
	FindDuplicates(ctx context.Context, point domain.GeoPoint, title, categoryID string, radiusMeters float64) ([]domain.DuplicateMatch, error)
}

const complaintColumns = `
        c.id::text, c.reporter_id, c.title, c.description, c.category_id::text, cat.name, cat.icon,
        c.severity, c.status, c.location_lat, c.location_long, c.digipin, c.images,
        (SELECT COUNT(*) FROM complaint_votes v WHERE v.complaint_id = c.id),
        c.reopen_count, c.created_at, c.updated_at, c.resolved_at`

const complaintFrom = `FROM complaints c LEFT JOIN categories cat ON cat.id = c.category_id`

const maxMapComplaints = 5000

type complaintRepository struct {
	pool   *pgxpool.Pool
	policy persistence.CallPolicy
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool, policy persistence.CallPolicy) ComplaintRepository {
	return &complaintRepository{pool: pool, policy: policy}
}

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (reporter_id, title, description, category_id, severity, status,
            location_lat, location_long, digipin, images, reopen_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id::text, created_at, updated_at`
	images := complaint.Images
	if images == nil {
		images = []string{}
	}
	return r.policy.Write(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query,
			complaint.ReporterID,
			complaint.Title,
			complaint.Description,
			complaint.CategoryID,
			complaint.Severity,
			complaint.Status,
			complaint.Location.Lat,
			complaint.Location.Lng,
			complaint.Geocode,
			images,
			complaint.ReopenCount,
		).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt)
	})
}

func (r *complaintRepository) UpdateStatus(ctx context.Context, complaint *domain.Complaint, expected domain.ComplaintStatus) error {
	const query = `
        UPDATE complaints SET status=$1, reopen_count=$2, resolved_at=$3, updated_at=NOW()
        WHERE id=$4 AND status=$5
        RETURNING updated_at`
	err := r.policy.Write(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query,
			complaint.Status,
			complaint.ReopenCount,
			complaint.ResolvedAt,
			complaint.ID,
			expected,
		).Scan(&complaint.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStatusChanged
	}
	return err
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE c.id=$1`, complaintColumns, complaintFrom)

	var complaint *domain.Complaint
	err := r.policy.Read(ctx, "complaints.get", func(ctx context.Context) error {
		found, err := scanComplaint(r.pool.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}
		complaint = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return complaint, nil
}

func (r *complaintRepository) ListByReporter(ctx context.Context, reporterID string) ([]domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE c.reporter_id=$1 ORDER BY c.created_at DESC`, complaintColumns, complaintFrom)
	return r.list(ctx, "complaints.list_by_reporter", query, reporterID)
}

func (r *complaintRepository) ListForMap(ctx context.Context) ([]domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s %s ORDER BY c.created_at DESC LIMIT %d`, complaintColumns, complaintFrom, maxMapComplaints)
	return r.list(ctx, "complaints.list_for_map", query)
}

func (r *complaintRepository) ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Complaint, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE c.status='resolved' AND c.resolved_at < $1 ORDER BY c.resolved_at ASC LIMIT %d`,
		complaintColumns, complaintFrom, limit)
	return r.list(ctx, "complaints.list_resolved_before", query, cutoff)
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("c.reporter_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("c.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Severities) > 0 {
		placeholders := make([]string, len(filter.Severities))
		for i, sev := range filter.Severities {
			args = append(args, sev)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("c.severity IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(strings.TrimSpace(*filter.SearchTerm)))+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(c.id::text LIKE %[1]s OR LOWER(c.digipin) LIKE %[1]s OR LOWER(COALESCE(cat.name, '')) LIKE %[1]s)", placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d`,
		complaintColumns, complaintFrom, strings.Join(clauses, " AND "), limit, offset)
	return r.list(ctx, "complaints.list_with_filter", query, args...)
}

func (r *complaintRepository) Stats(ctx context.Context) (domain.ComplaintStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='open'),
               COUNT(*) FILTER (WHERE status='in_progress'),
               COUNT(*) FILTER (WHERE status='resolved'),
               COUNT(*) FILTER (WHERE severity='critical')
        FROM complaints`

	var stats domain.ComplaintStats
	err := r.policy.Read(ctx, "complaints.stats", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query).Scan(
			&stats.Total,
			&stats.Pending,
			&stats.InProgress,
			&stats.Resolved,
			&stats.Critical,
		)
	})
	return stats, err
}

func (r *complaintRepository) FindDuplicates(ctx context.Context, point domain.GeoPoint, title, categoryID string, radiusMeters float64) ([]domain.DuplicateMatch, error) {
	query := fmt.Sprintf(`
        SELECT %s, d.distance_meters
        FROM check_for_duplicate_report($1, $2, $3, $4, $5) d
        JOIN complaints c ON c.id = d.complaint_id
        LEFT JOIN categories cat ON cat.id = c.category_id
        ORDER BY d.distance_meters ASC`, complaintColumns)

	var result []domain.DuplicateMatch
	err := r.policy.Read(ctx, "complaints.find_duplicates", func(ctx context.Context) error {
		result = nil
		rows, err := r.pool.Query(ctx, query, point.Lat, point.Lng, title, categoryID, radiusMeters)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var match domain.DuplicateMatch
			var catName, catIcon *string
			dest := append(complaintScanDest(&match.Complaint, &catName, &catIcon), &match.DistanceMeters)
			if err := rows.Scan(dest...); err != nil {
				return err
			}
			attachCategory(&match.Complaint, catName, catIcon)
			result = append(result, match)
		}
		return rows.Err()
	})
	return result, err
}

func (r *complaintRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Complaint, error) {
	var result []domain.Complaint
	err := r.policy.Read(ctx, op, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		result, err = scanComplaints(rows)
		return err
	})
	return result, err
}

func complaintScanDest(c *domain.Complaint, catName, catIcon **string) []any {
	return []any{
		&c.ID,
		&c.ReporterID,
		&c.Title,
		&c.Description,
		&c.CategoryID,
		catName,
		catIcon,
		&c.Severity,
		&c.Status,
		&c.Location.Lat,
		&c.Location.Lng,
		&c.Geocode,
		&c.Images,
		&c.VoteCount,
		&c.ReopenCount,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ResolvedAt,
	}
}

// attachCategory sets the category reference only when the join found one.
func attachCategory(c *domain.Complaint, name, icon *string) {
	if c.CategoryID == nil || name == nil {
		c.Category = nil
		return
	}
	cat := &domain.Category{ID: *c.CategoryID, Name: *name}
	if icon != nil {
		cat.Icon = *icon
	}
	c.Category = cat
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var complaint domain.Complaint
	var catName, catIcon *string
	if err := row.Scan(complaintScanDest(&complaint, &catName, &catIcon)...); err != nil {
		return nil, err
	}
	attachCategory(&complaint, catName, catIcon)
	return &complaint, nil
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *complaint)
	}
	return result, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
