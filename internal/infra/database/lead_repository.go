package database

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/xavierca1/field-dispatch/internal/entity"
)

// LeadRepository reads and writes contact_submissions rows.
type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO contact_submissions (
			id, name, phone, email, address, service_type, message, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		nullString(lead.Phone),
		nullString(lead.Email),
		nullString(lead.Address),
		nullString(lead.ServiceType),
		nullString(lead.Message),
		lead.Status,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	return err
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM contact_submissions WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		return nil, notFoundOr(err, entity.ErrLeadNotFound)
	}
	return lead, nil
}

// FindByStatus returns the newest leads first.
func (r *LeadRepository) FindByStatus(ctx context.Context, statuses []entity.LeadStatus, limit int) ([]*entity.Lead, error) {
	wanted := make([]string, len(statuses))
	for i, s := range statuses {
		wanted[i] = string(s)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+leadColumns+`
		FROM contact_submissions
		WHERE status = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`, pq.Array(wanted), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id string, status entity.LeadStatus) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE contact_submissions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return notFoundOr(err, entity.ErrLeadNotFound)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}
