package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/xavierca1/field-dispatch/internal/entity"
)

type TechnicianRepository struct {
	DB *sql.DB
}

func NewTechnicianRepository(db *sql.DB) *TechnicianRepository {
	return &TechnicianRepository{DB: db}
}

func (r *TechnicianRepository) Create(ctx context.Context, t *entity.Technician) error {
	query := `
		INSERT INTO technicians (
			id, name, phone, email, service_types, max_jobs_per_day,
			notification_preference, color, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.DB.ExecContext(ctx, query,
		t.ID,
		t.Name,
		t.Phone,
		nullString(t.Email),
		pq.Array(t.ServiceTypes),
		t.MaxJobsPerDay,
		t.NotificationPreference,
		t.Color,
		t.IsActive,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

func (r *TechnicianRepository) FindByID(ctx context.Context, id string) (*entity.Technician, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+technicianColumns+` FROM technicians WHERE id = $1`, id)
	t, err := scanTechnician(row)
	if err != nil {
		return nil, notFoundOr(err, entity.ErrTechnicianNotFound)
	}
	return t, nil
}

func (r *TechnicianRepository) ListActive(ctx context.Context) ([]*entity.Technician, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+technicianColumns+` FROM technicians WHERE is_active ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Technician
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TechnicianRepository) Update(ctx context.Context, t *entity.Technician) error {
	query := `
		UPDATE technicians SET
			name = $2,
			phone = $3,
			email = $4,
			service_types = $5,
			max_jobs_per_day = $6,
			notification_preference = $7,
			color = $8,
			is_active = $9,
			updated_at = $10
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query,
		t.ID,
		t.Name,
		t.Phone,
		nullString(t.Email),
		pq.Array(t.ServiceTypes),
		t.MaxJobsPerDay,
		t.NotificationPreference,
		t.Color,
		t.IsActive,
		t.UpdatedAt,
	)
	if err != nil {
		return notFoundOr(err, entity.ErrTechnicianNotFound)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrTechnicianNotFound
	}
	return nil
}

// CountActiveJobsByTechnician returns non-cancelled schedule counts on date,
// keyed by technician id. Technicians without jobs are absent.
func (r *TechnicianRepository) CountActiveJobsByTechnician(ctx context.Context, date string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT technician_id, COUNT(*)
		FROM job_schedules
		WHERE scheduled_date = $1::date AND status <> 'cancelled'
		GROUP BY technician_id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
