package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/field-dispatch/internal/entity"
	"github.com/xavierca1/field-dispatch/internal/infra/http/middleware"
	"github.com/xavierca1/field-dispatch/internal/infra/queue"
)

// NotificationDelivery consumes dispatched notifications, fans them out to
// the SMS and email collaborators and reports the outcome to the ledger.
// A failed send is recorded on the job; it never touches the schedule.
type NotificationDelivery struct {
	Repo           ScheduleRepository
	Ledger         *ScheduleLedger
	SMS            SMSSender
	Email          EmailService
	NotifyCustomer bool
	Logger         *zap.Logger
}

func NewNotificationDelivery(repo ScheduleRepository, ledger *ScheduleLedger, sms SMSSender, email EmailService, notifyCustomer bool, logger *zap.Logger) *NotificationDelivery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDelivery{
		Repo:           repo,
		Ledger:         ledger,
		SMS:            sms,
		Email:          email,
		NotifyCustomer: notifyCustomer,
		Logger:         logger,
	}
}

// Deliver returns an error only when the outcome could not be recorded, so
// the queue consumer can dead-letter the message. The dispatch claim is
// released first so the job is claimed and published again on a later run.
func (d *NotificationDelivery) Deliver(ctx context.Context, payload queue.NotificationPayload) error {
	err := d.deliver(ctx, payload)
	if err == nil {
		return nil
	}
	if rerr := d.Repo.ReleaseNotificationClaim(ctx, payload.ScheduleID); rerr != nil {
		d.Logger.Error("release notification claim failed", zap.String("schedule_id", payload.ScheduleID), zap.Error(rerr))
	}
	return err
}

func (d *NotificationDelivery) deliver(ctx context.Context, payload queue.NotificationPayload) error {
	view, err := d.Repo.FindView(ctx, payload.ScheduleID)
	if err != nil {
		if errors.Is(err, entity.ErrScheduleNotFound) {
			d.Logger.Warn("notification for unknown schedule dropped", zap.String("schedule_id", payload.ScheduleID))
			return nil
		}
		return err
	}

	if view.Status.Terminal() || view.NotificationStatus != entity.NotificationPending {
		d.Logger.Info("notification skipped",
			zap.String("schedule_id", view.ID),
			zap.String("status", string(view.Status)),
			zap.String("notification_status", string(view.NotificationStatus)),
		)
		return nil
	}
	// the job was moved after this message was published; the new slot has
	// its own claim
	if view.NotifyAt == nil || !view.NotifyAt.Equal(payload.NotifyAt) {
		d.Logger.Info("stale notification skipped", zap.String("schedule_id", view.ID))
		return nil
	}

	providerIDs, attempted := d.send(ctx, view)
	sent := len(providerIDs) > 0
	if attempted == 0 {
		d.Logger.Warn("no notification channel available", zap.String("schedule_id", view.ID))
	}

	if err := d.Ledger.RecordNotificationResult(ctx, view.ID, sent, strings.Join(providerIDs, ",")); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			d.Logger.Info("notification result already recorded", zap.String("schedule_id", view.ID))
			return nil
		}
		return err
	}
	return nil
}

func (d *NotificationDelivery) send(ctx context.Context, view *entity.ScheduleView) (providerIDs []string, attempted int) {
	tech := view.Technician
	data := JobNotificationData{
		RecipientName:  tech.Name,
		TechnicianName: tech.Name,
		CustomerName:   view.Lead.Name,
		Address:        view.Lead.Address,
		ServiceType:    view.Lead.ServiceType,
		Date:           view.ScheduledDate,
		Time:           view.ScheduledTime,
		Duration:       view.EstimatedDuration,
		Notes:          view.Notes,
		Status:         string(view.Status),
	}

	if d.SMS != nil && tech.NotificationPreference.WantsSMS() && tech.Phone != "" {
		attempted++
		if id, ok := d.sendSMS(ctx, view.ID, tech.Phone, technicianSMSBody(data)); ok {
			providerIDs = append(providerIDs, id)
		}
	}
	if d.Email != nil && tech.NotificationPreference.WantsEmail() && tech.Email != "" {
		attempted++
		id, err := d.Email.SendJobNotification(tech.Email, data)
		if err != nil {
			middleware.RecordNotification("email", "failed")
			d.Logger.Warn("job email failed", zap.String("schedule_id", view.ID), zap.Error(err))
		} else {
			middleware.RecordNotification("email", "sent")
			providerIDs = append(providerIDs, id)
		}
	}
	if d.SMS != nil && d.NotifyCustomer && view.Lead.Phone != "" {
		attempted++
		data.RecipientName = view.Lead.Name
		if id, ok := d.sendSMS(ctx, view.ID, view.Lead.Phone, customerSMSBody(data)); ok {
			providerIDs = append(providerIDs, id)
		}
	}
	return providerIDs, attempted
}

func (d *NotificationDelivery) sendSMS(ctx context.Context, scheduleID, to, body string) (string, bool) {
	id, err := d.SMS.Send(ctx, to, body)
	if err != nil {
		middleware.RecordNotification("sms", "failed")
		d.Logger.Warn("job sms failed", zap.String("schedule_id", scheduleID), zap.Error(err))
		return "", false
	}
	middleware.RecordNotification("sms", "sent")
	return id, true
}

func technicianSMSBody(d JobNotificationData) string {
	var b strings.Builder
	b.WriteString("New job " + d.Date + " " + d.Time + ": " + d.CustomerName)
	if d.Address != "" {
		b.WriteString(", " + d.Address)
	}
	if d.ServiceType != "" {
		b.WriteString(" (" + d.ServiceType + ")")
	}
	if d.Notes != "" {
		b.WriteString(". Notes: " + d.Notes)
	}
	return b.String()
}

func customerSMSBody(d JobNotificationData) string {
	return "Hi " + d.CustomerName + ", your appointment is " + d.Status + " for " + d.Date + " at " + d.Time +
		". Your technician is " + d.TechnicianName + "."
}
