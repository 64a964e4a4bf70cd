package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/field-dispatch/internal/entity"
	"github.com/xavierca1/field-dispatch/internal/infra/queue"
)

const (
	DefaultNotifyLeadTime = time.Hour
	defaultDispatchBatch  = 100
)

// NotificationScheduler decides when a job's notification fires and hands
// due notifications to the delivery queue. It never marks anything sent.
type NotificationScheduler struct {
	LeadTime  time.Duration
	Location  *time.Location
	Repo      ScheduleRepository
	Queue     NotificationQueue
	BatchSize int
	Now       Clock
	Logger    *zap.Logger
}

func NewNotificationScheduler(leadTime time.Duration, loc *time.Location, repo ScheduleRepository, q NotificationQueue, logger *zap.Logger) *NotificationScheduler {
	if leadTime < 0 {
		leadTime = DefaultNotifyLeadTime
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationScheduler{
		LeadTime:  leadTime,
		Location:  loc,
		Repo:      repo,
		Queue:     q,
		BatchSize: defaultDispatchBatch,
		Now:       time.Now,
		Logger:    logger,
	}
}

// NotifyAt is due minus the lead time, clamped to now when that moment has
// already passed so the notification goes out immediately instead of being
// skipped.
func (n *NotificationScheduler) NotifyAt(s *entity.JobSchedule, now time.Time) (time.Time, error) {
	due, err := s.DueAt(n.Location)
	if err != nil {
		return time.Time{}, err
	}
	at := due.Add(-n.LeadTime)
	if at.Before(now) {
		return now, nil
	}
	return at, nil
}

// Schedule stamps notify_at and resets the record to pending. Called by
// the ledger whenever the slot or technician changes.
func (n *NotificationScheduler) Schedule(s *entity.JobSchedule, now time.Time) error {
	at, err := n.NotifyAt(s, now)
	if err != nil {
		return err
	}
	s.NotifyAt = &at
	s.NotificationStatus = entity.NotificationPending
	s.NotificationProviderID = ""
	return nil
}

// DispatchDue claims pending notifications whose notify_at has passed and
// publishes them. A claim whose publish fails is released so the next run
// picks it up again.
func (n *NotificationScheduler) DispatchDue(ctx context.Context) (int, error) {
	now := n.Now()
	due, err := n.Repo.ClaimDueNotifications(ctx, now, n.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due notifications: %w", err)
	}

	published := 0
	for _, s := range due {
		payload := queue.NotificationPayload{
			ScheduleID:   s.ID,
			TechnicianID: s.TechnicianID,
			LeadID:       s.LeadID,
			NotifyAt:     derefTime(s.NotifyAt),
		}
		if err := n.Queue.PublishNotification(ctx, payload); err != nil {
			n.Logger.Error("publish notification failed", zap.String("schedule_id", s.ID), zap.Error(err))
			if rerr := n.Repo.ReleaseNotificationClaim(ctx, s.ID); rerr != nil {
				n.Logger.Error("release notification claim failed", zap.String("schedule_id", s.ID), zap.Error(rerr))
			}
			continue
		}
		published++
	}

	if published > 0 {
		n.Logger.Info("notifications dispatched", zap.Int("count", published))
	}
	return published, nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
