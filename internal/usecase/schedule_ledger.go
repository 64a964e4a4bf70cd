package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/field-dispatch/internal/entity"
	"github.com/xavierca1/field-dispatch/internal/infra/http/middleware"
)

// ScheduleLedger is the only write path for job schedules. Every write runs
// in a single UnitOfWork: the technician row is locked, checks run against
// current persisted state, then the record is written. Any failure rolls
// the whole change back.
type ScheduleLedger struct {
	UoW      UnitOfWork
	Repo     ScheduleRepository
	Capacity CapacityChecker
	Notifier *NotificationScheduler
	Cache    WeekViewCache
	Now      Clock
	Logger   *zap.Logger
}

func NewScheduleLedger(uow UnitOfWork, repo ScheduleRepository, notifier *NotificationScheduler, cache WeekViewCache, logger *zap.Logger) *ScheduleLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleLedger{
		UoW:      uow,
		Repo:     repo,
		Notifier: notifier,
		Cache:    cache,
		Now:      time.Now,
		Logger:   logger,
	}
}

func (l *ScheduleLedger) CreateAssignment(ctx context.Context, input CreateAssignmentInput) (*entity.JobSchedule, error) {
	if err := ValidateCreateAssignmentInput(input); err != nil {
		return nil, err
	}

	var created *entity.JobSchedule
	err := l.UoW.Do(ctx, func(tx LedgerTx) error {
		lead, err := tx.FindLead(ctx, input.LeadID)
		if err != nil {
			return notFound(err, entity.ErrLeadNotFound, "lead", input.LeadID)
		}
		if !lead.IsSchedulable() {
			return invalid("lead_id", fmt.Sprintf("lead is %s and can no longer be scheduled", lead.Status))
		}

		tech, err := tx.LockTechnician(ctx, input.TechnicianID)
		if err != nil {
			return notFound(err, entity.ErrTechnicianNotFound, "technician", input.TechnicianID)
		}
		if err := l.Capacity.Eligible(tech, lead); err != nil {
			return err
		}
		if err := l.Capacity.Check(ctx, tx, tech, input.Date, ""); err != nil {
			return err
		}

		s := entity.NewJobSchedule(lead.ID, tech.ID, input.Date, input.Time, input.EstimatedDuration)
		s.Notes = strings.TrimSpace(input.Notes)
		now := l.Now()
		s.CreatedAt, s.UpdatedAt = now, now
		if err := l.Notifier.Schedule(s, now); err != nil {
			return invalid("scheduled_time", err.Error())
		}
		if err := tx.InsertSchedule(ctx, s); err != nil {
			return fmt.Errorf("insert job schedule: %w", err)
		}
		created = s
		return nil
	})
	if err != nil {
		l.recordRejection(err)
		return nil, err
	}

	middleware.RecordAssignmentCreated()
	l.invalidate(ctx)
	l.Logger.Info("job scheduled",
		zap.String("schedule_id", created.ID),
		zap.String("technician_id", created.TechnicianID),
		zap.String("lead_id", created.LeadID),
		zap.String("date", created.ScheduledDate),
		zap.String("time", created.ScheduledTime),
	)
	return created, nil
}

func (l *ScheduleLedger) Reschedule(ctx context.Context, scheduleID, newDate, newTime string) (*entity.JobSchedule, error) {
	return l.Patch(ctx, scheduleID, PatchScheduleInput{Date: &newDate, Time: &newTime})
}

func (l *ScheduleLedger) ReassignTechnician(ctx context.Context, scheduleID, technicianID string) (*entity.JobSchedule, error) {
	return l.Patch(ctx, scheduleID, PatchScheduleInput{TechnicianID: &technicianID})
}

func (l *ScheduleLedger) ChangeStatus(ctx context.Context, scheduleID, status string) (*entity.JobSchedule, error) {
	return l.Patch(ctx, scheduleID, PatchScheduleInput{Status: &status})
}

func (l *ScheduleLedger) UpdateNotes(ctx context.Context, scheduleID, notes string) (*entity.JobSchedule, error) {
	return l.Patch(ctx, scheduleID, PatchScheduleInput{Notes: &notes})
}

// Patch applies any combination of slot, technician, status and notes
// changes in one transaction. Slot and technician changes are applied
// before the status change, so a job can be moved and confirmed together
// but not moved after it has been closed.
func (l *ScheduleLedger) Patch(ctx context.Context, scheduleID string, input PatchScheduleInput) (*entity.JobSchedule, error) {
	if input.Empty() {
		return nil, invalid("", "no changes supplied")
	}
	if input.Date != nil {
		if err := validateDate(*input.Date); err != nil {
			return nil, err
		}
	}
	if input.Time != nil {
		if err := validateTime(*input.Time); err != nil {
			return nil, err
		}
	}
	if input.TechnicianID != nil && strings.TrimSpace(*input.TechnicianID) == "" {
		return nil, invalid("technician_id", "cannot be empty")
	}
	var next entity.ScheduleStatus
	if input.Status != nil {
		next = entity.ScheduleStatus(*input.Status)
		if !next.Valid() {
			return nil, invalid("status", "must be one of scheduled, confirmed, completed, cancelled")
		}
	}

	var (
		updated    *entity.JobSchedule
		prevStatus entity.ScheduleStatus
	)
	err := l.UoW.Do(ctx, func(tx LedgerTx) error {
		s, err := tx.LockSchedule(ctx, scheduleID)
		if err != nil {
			return notFound(err, entity.ErrScheduleNotFound, "job schedule", scheduleID)
		}
		prevStatus = s.Status
		now := l.Now()

		moved := input.Date != nil && *input.Date != s.ScheduledDate ||
			input.Time != nil && *input.Time != s.ScheduledTime
		reassigned := input.TechnicianID != nil && *input.TechnicianID != s.TechnicianID

		if moved || reassigned {
			if s.Status.Terminal() {
				return invalid("status", fmt.Sprintf("job is %s and cannot be moved", s.Status))
			}
			if err := l.applySlotChange(ctx, tx, s, input, reassigned); err != nil {
				return err
			}
			if err := l.Notifier.Schedule(s, now); err != nil {
				return invalid("scheduled_time", err.Error())
			}
		}

		// a status equal to the current one is not a transition
		if input.Status != nil {
			if !s.Status.CanTransitionTo(next) {
				return &InvalidTransitionError{From: string(s.Status), To: string(next)}
			}
			s.Status = next
		}

		if input.Notes != nil {
			s.Notes = strings.TrimSpace(*input.Notes)
		}

		s.UpdatedAt = now
		if err := tx.UpdateSchedule(ctx, s); err != nil {
			return fmt.Errorf("update job schedule: %w", err)
		}
		updated = s
		return nil
	})
	if err != nil {
		l.recordRejection(err)
		return nil, err
	}

	if updated.Status != prevStatus {
		middleware.RecordStatusTransition(string(prevStatus), string(updated.Status))
	}
	l.invalidate(ctx)
	l.Logger.Info("job schedule updated",
		zap.String("schedule_id", updated.ID),
		zap.String("status", string(updated.Status)),
		zap.String("technician_id", updated.TechnicianID),
		zap.String("date", updated.ScheduledDate),
	)
	return updated, nil
}

// applySlotChange moves s onto the destination technician/date after the
// same eligibility and capacity checks as a new assignment. s is only
// mutated once every check has passed.
func (l *ScheduleLedger) applySlotChange(ctx context.Context, tx LedgerTx, s *entity.JobSchedule, input PatchScheduleInput, reassigned bool) error {
	techID := s.TechnicianID
	if reassigned {
		techID = *input.TechnicianID
	}
	date := s.ScheduledDate
	if input.Date != nil {
		date = *input.Date
	}
	clock := s.ScheduledTime
	if input.Time != nil {
		clock = *input.Time
	}

	tech, err := tx.LockTechnician(ctx, techID)
	if err != nil {
		return notFound(err, entity.ErrTechnicianNotFound, "technician", techID)
	}
	if reassigned {
		lead, err := tx.FindLead(ctx, s.LeadID)
		if err != nil {
			return notFound(err, entity.ErrLeadNotFound, "lead", s.LeadID)
		}
		if err := l.Capacity.Eligible(tech, lead); err != nil {
			return err
		}
	}
	if reassigned || date != s.ScheduledDate {
		if err := l.Capacity.Check(ctx, tx, tech, date, s.ID); err != nil {
			return err
		}
	}

	s.TechnicianID = tech.ID
	s.ScheduledDate = date
	s.ScheduledTime = clock
	return nil
}

// RecordNotificationResult is the delivery boundary's callback. It is the
// only path that moves notification_status off pending.
func (l *ScheduleLedger) RecordNotificationResult(ctx context.Context, scheduleID string, sent bool, providerID string) error {
	s, err := l.Repo.FindByID(ctx, scheduleID)
	if err != nil {
		return notFound(err, entity.ErrScheduleNotFound, "job schedule", scheduleID)
	}
	if s.NotificationStatus != entity.NotificationPending {
		return invalid("notification_status", fmt.Sprintf("notification already %s", s.NotificationStatus))
	}

	status := entity.NotificationFailed
	if sent {
		status = entity.NotificationSent
	}
	if err := l.Repo.UpdateNotificationResult(ctx, scheduleID, status, providerID); err != nil {
		// a concurrent delivery recorded first
		if errors.Is(err, entity.ErrNotificationAlreadyRecorded) {
			return invalid("notification_status", "notification already recorded")
		}
		return notFound(err, entity.ErrScheduleNotFound, "job schedule", scheduleID)
	}
	l.invalidate(ctx)
	return nil
}

// WeekView lists non-cancelled jobs dated weekStart..weekStart+6 joined with
// their technician and lead, ordered by date then time.
func (l *ScheduleLedger) WeekView(ctx context.Context, weekStart string) ([]*entity.ScheduleView, error) {
	start, err := time.Parse(entity.DateLayout, weekStart)
	if err != nil {
		return nil, invalid("week_start", "must be a valid date (YYYY-MM-DD)")
	}
	end := start.AddDate(0, 0, 6).Format(entity.DateLayout)

	var (
		generation int64
		cacheable  bool
	)
	if l.Cache != nil {
		rows, gen, hit, err := l.Cache.Get(ctx, weekStart)
		switch {
		case err != nil:
			l.Logger.Warn("week view cache read failed", zap.Error(err))
		case hit:
			return rows, nil
		default:
			generation, cacheable = gen, true
		}
	}

	rows, err := l.Repo.ListWeek(ctx, weekStart, end)
	if err != nil {
		return nil, fmt.Errorf("list week %s: %w", weekStart, err)
	}
	if rows == nil {
		rows = []*entity.ScheduleView{}
	}

	if cacheable {
		if err := l.Cache.Set(ctx, weekStart, generation, rows); err != nil {
			l.Logger.Warn("week view cache write failed", zap.Error(err))
		}
	}
	return rows, nil
}

func (l *ScheduleLedger) invalidate(ctx context.Context) {
	if l.Cache == nil {
		return
	}
	if err := l.Cache.Invalidate(ctx); err != nil {
		l.Logger.Warn("week view cache invalidation failed", zap.Error(err))
	}
}

func (l *ScheduleLedger) recordRejection(err error) {
	var capErr *CapacityExceededError
	if errors.As(err, &capErr) {
		middleware.RecordCapacityRejection()
		l.Logger.Info("assignment rejected: capacity",
			zap.String("technician_id", capErr.TechnicianID),
			zap.String("date", capErr.Date),
			zap.Int("max", capErr.Max),
		)
		return
	}
	if !IsDomainError(err) {
		l.Logger.Error("ledger write failed", zap.Error(err))
	}
}
