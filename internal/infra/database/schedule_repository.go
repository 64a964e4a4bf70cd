package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xavierca1/field-dispatch/internal/entity"
)

// claimExpiry bounds how long a dispatched notification may stay
// unrecorded before it is dispatched again.
const claimExpiry = 15 * time.Minute

type ScheduleRepository struct {
	DB *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{DB: db}
}

const scheduleViewQuery = `
	SELECT
		s.id, s.technician_id, s.lead_id,
		to_char(s.scheduled_date, 'YYYY-MM-DD'), to_char(s.scheduled_time, 'HH24:MI'),
		s.estimated_duration, s.status, s.notification_status, s.notify_at,
		COALESCE(s.notification_provider_id, ''), s.notes, s.created_at, s.updated_at,
		t.id, t.name, t.phone, COALESCE(t.email, ''), t.color, t.notification_preference, t.is_active,
		c.id, c.name, COALESCE(c.phone, ''), COALESCE(c.email, ''), COALESCE(c.address, ''),
		COALESCE(c.service_type, ''), c.status
	FROM job_schedules s
	JOIN technicians t ON t.id = s.technician_id
	JOIN contact_submissions c ON c.id = s.lead_id
`

func scanScheduleView(row rowScanner) (*entity.ScheduleView, error) {
	var v entity.ScheduleView
	var notifyAt sql.NullTime
	err := row.Scan(
		&v.ID, &v.TechnicianID, &v.LeadID, &v.ScheduledDate, &v.ScheduledTime,
		&v.EstimatedDuration, &v.Status, &v.NotificationStatus, &notifyAt,
		&v.NotificationProviderID, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
		&v.Technician.ID, &v.Technician.Name, &v.Technician.Phone, &v.Technician.Email,
		&v.Technician.Color, &v.Technician.NotificationPreference, &v.Technician.IsActive,
		&v.Lead.ID, &v.Lead.Name, &v.Lead.Phone, &v.Lead.Email, &v.Lead.Address,
		&v.Lead.ServiceType, &v.Lead.Status,
	)
	if err != nil {
		return nil, err
	}
	if notifyAt.Valid {
		at := notifyAt.Time
		v.NotifyAt = &at
	}
	return &v, nil
}

func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*entity.JobSchedule, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM job_schedules WHERE id = $1`, id)
	s, err := scanSchedule(row)
	if err != nil {
		return nil, notFoundOr(err, entity.ErrScheduleNotFound)
	}
	return s, nil
}

func (r *ScheduleRepository) FindView(ctx context.Context, id string) (*entity.ScheduleView, error) {
	row := r.DB.QueryRowContext(ctx, scheduleViewQuery+` WHERE s.id = $1`, id)
	v, err := scanScheduleView(row)
	if err != nil {
		return nil, notFoundOr(err, entity.ErrScheduleNotFound)
	}
	return v, nil
}

// ListWeek returns non-cancelled schedules dated from..to inclusive.
func (r *ScheduleRepository) ListWeek(ctx context.Context, from, to string) ([]*entity.ScheduleView, error) {
	rows, err := r.DB.QueryContext(ctx, scheduleViewQuery+`
		WHERE s.scheduled_date BETWEEN $1::date AND $2::date
		  AND s.status <> 'cancelled'
		ORDER BY s.scheduled_date, s.scheduled_time, s.created_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query week: %w", err)
	}
	defer rows.Close()

	out := []*entity.ScheduleView{}
	for rows.Next() {
		v, err := scanScheduleView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateNotificationResult only touches rows still pending, so a late
// duplicate delivery cannot overwrite the first outcome.
func (r *ScheduleRepository) UpdateNotificationResult(ctx context.Context, id string, status entity.NotificationStatus, providerID string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE job_schedules
		SET notification_status = $2, notification_provider_id = $3, updated_at = NOW()
		WHERE id = $1 AND notification_status = 'pending'
	`, id, status, nullString(providerID))
	if err != nil {
		return notFoundOr(err, entity.ErrScheduleNotFound)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM job_schedules WHERE id = $1)`, id).Scan(&exists); err != nil {
		return notFoundOr(err, entity.ErrScheduleNotFound)
	}
	if !exists {
		return entity.ErrScheduleNotFound
	}
	return entity.ErrNotificationAlreadyRecorded
}

// ClaimDueNotifications marks up to limit pending, unclaimed, open
// schedules whose notify_at has passed as enqueued and returns them.
// A claim older than claimExpiry counts as abandoned and is taken again.
// SKIP LOCKED lets several dispatchers run side by side.
func (r *ScheduleRepository) ClaimDueNotifications(ctx context.Context, now time.Time, limit int) ([]*entity.JobSchedule, error) {
	rows, err := r.DB.QueryContext(ctx, `
		UPDATE job_schedules
		SET notification_enqueued_at = NOW()
		WHERE id IN (
			SELECT id FROM job_schedules
			WHERE notification_status = 'pending'
			  AND (notification_enqueued_at IS NULL OR notification_enqueued_at < $3)
			  AND notify_at <= $1
			  AND status IN ('scheduled', 'confirmed')
			ORDER BY notify_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+scheduleColumns, now, limit, now.Add(-claimExpiry))
	if err != nil {
		return nil, fmt.Errorf("claim notifications: %w", err)
	}
	defer rows.Close()

	var out []*entity.JobSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ScheduleRepository) ReleaseNotificationClaim(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE job_schedules SET notification_enqueued_at = NULL WHERE id = $1`, id)
	return err
}
