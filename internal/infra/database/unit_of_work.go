package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/xavierca1/field-dispatch/internal/entity"
	"github.com/xavierca1/field-dispatch/internal/usecase"
)

// UnitOfWork runs ledger writes inside one READ COMMITTED transaction. The
// row locks taken by LockTechnician and LockSchedule are what serialise
// concurrent writers; isolation level alone is not relied on.
type UnitOfWork struct {
	DB *sql.DB
}

func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{DB: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(tx usecase.LedgerTx) error) (err error) {
	sqlTx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&ledgerTx{tx: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx *sql.Tx
}

func (l *ledgerTx) LockTechnician(ctx context.Context, id string) (*entity.Technician, error) {
	row := l.tx.QueryRowContext(ctx,
		`SELECT `+technicianColumns+` FROM technicians WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTechnician(row)
	if err != nil {
		return nil, notFoundOr(err, entity.ErrTechnicianNotFound)
	}
	return t, nil
}

func (l *ledgerTx) LockSchedule(ctx context.Context, id string) (*entity.JobSchedule, error) {
	row := l.tx.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM job_schedules WHERE id = $1 FOR UPDATE`, id)
	s, err := scanSchedule(row)
	if err != nil {
		return nil, notFoundOr(err, entity.ErrScheduleNotFound)
	}
	return s, nil
}

// FindLead takes a share lock so the lead's status cannot flip to
// converted/closed underneath an assignment.
func (l *ledgerTx) FindLead(ctx context.Context, id string) (*entity.Lead, error) {
	row := l.tx.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM contact_submissions WHERE id = $1 FOR SHARE`, id)
	lead, err := scanLead(row)
	if err != nil {
		return nil, notFoundOr(err, entity.ErrLeadNotFound)
	}
	return lead, nil
}

func (l *ledgerTx) CountActiveOnDate(ctx context.Context, technicianID, date, excludeScheduleID string) (int, error) {
	var n int
	err := l.tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM job_schedules
		WHERE technician_id = $1
		  AND scheduled_date = $2::date
		  AND status <> 'cancelled'
		  AND id::text <> $3
	`, technicianID, date, excludeScheduleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count schedules: %w", err)
	}
	return n, nil
}

func (l *ledgerTx) InsertSchedule(ctx context.Context, s *entity.JobSchedule) error {
	_, err := l.tx.ExecContext(ctx, `
		INSERT INTO job_schedules (
			id, technician_id, lead_id, scheduled_date, scheduled_time, estimated_duration,
			status, notification_status, notify_at, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4::date, $5::time, $6, $7, $8, $9, $10, $11, $12)
	`,
		s.ID, s.TechnicianID, s.LeadID, s.ScheduledDate, s.ScheduledTime, s.EstimatedDuration,
		s.Status, s.NotificationStatus, s.NotifyAt, s.Notes, s.CreatedAt, s.UpdatedAt,
	)
	return mapWriteError(err)
}

// UpdateSchedule drops any outstanding dispatch claim when notify_at moves,
// so the rescheduled notification is picked up again.
func (l *ledgerTx) UpdateSchedule(ctx context.Context, s *entity.JobSchedule) error {
	res, err := l.tx.ExecContext(ctx, `
		UPDATE job_schedules SET
			technician_id = $2,
			scheduled_date = $3::date,
			scheduled_time = $4::time,
			estimated_duration = $5,
			status = $6,
			notification_status = $7,
			notification_enqueued_at = CASE
				WHEN notify_at IS DISTINCT FROM $8 THEN NULL
				ELSE notification_enqueued_at
			END,
			notify_at = $8,
			notification_provider_id = $9,
			notes = $10,
			updated_at = $11
		WHERE id = $1
	`,
		s.ID, s.TechnicianID, s.ScheduledDate, s.ScheduledTime, s.EstimatedDuration,
		s.Status, s.NotificationStatus, s.NotifyAt, nullString(s.NotificationProviderID),
		s.Notes, s.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrScheduleNotFound
	}
	return nil
}

// mapWriteError turns a foreign key violation into the not-found sentinel
// of the missing parent.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "job_schedules_technician_id_fkey":
			return entity.ErrTechnicianNotFound
		case "job_schedules_lead_id_fkey":
			return entity.ErrLeadNotFound
		}
	}
	return err
}
