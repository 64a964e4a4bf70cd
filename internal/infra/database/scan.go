package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/xavierca1/field-dispatch/internal/entity"
)

const technicianColumns = `id, name, phone, COALESCE(email, ''), service_types, max_jobs_per_day,
	notification_preference, color, is_active, created_at, updated_at`

const scheduleColumns = `id, technician_id, lead_id,
	to_char(scheduled_date, 'YYYY-MM-DD'), to_char(scheduled_time, 'HH24:MI'),
	estimated_duration, status, notification_status, notify_at,
	COALESCE(notification_provider_id, ''), notes, created_at, updated_at`

const leadColumns = `id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''),
	COALESCE(service_type, ''), COALESCE(message, ''), status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTechnician(row rowScanner) (*entity.Technician, error) {
	var t entity.Technician
	var types pq.StringArray
	err := row.Scan(
		&t.ID, &t.Name, &t.Phone, &t.Email, &types, &t.MaxJobsPerDay,
		&t.NotificationPreference, &t.Color, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ServiceTypes = []string(types)
	return &t, nil
}

func scanSchedule(row rowScanner) (*entity.JobSchedule, error) {
	var s entity.JobSchedule
	var notifyAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.TechnicianID, &s.LeadID, &s.ScheduledDate, &s.ScheduledTime,
		&s.EstimatedDuration, &s.Status, &s.NotificationStatus, &notifyAt,
		&s.NotificationProviderID, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if notifyAt.Valid {
		at := notifyAt.Time
		s.NotifyAt = &at
	}
	return &s, nil
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var l entity.Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &l.Address,
		&l.ServiceType, &l.Message, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// notFoundOr maps sql.ErrNoRows and malformed uuids onto sentinel.
func notFoundOr(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
		return sentinel
	}
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
