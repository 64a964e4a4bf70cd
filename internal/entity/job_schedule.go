package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrScheduleNotFound            = errors.New("job schedule not found")
	ErrNotificationAlreadyRecorded = errors.New("notification result already recorded")
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultEstimatedDuration = 60 // minutes
)

type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusConfirmed ScheduleStatus = "confirmed"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

var scheduleTransitions = map[ScheduleStatus][]ScheduleStatus{
	ScheduleStatusScheduled: {ScheduleStatusConfirmed, ScheduleStatusCancelled},
	ScheduleStatusConfirmed: {ScheduleStatusCompleted, ScheduleStatusCancelled},
}

func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusConfirmed, ScheduleStatusCompleted, ScheduleStatusCancelled:
		return true
	}
	return false
}

func (s ScheduleStatus) Terminal() bool {
	return s == ScheduleStatusCompleted || s == ScheduleStatusCancelled
}

// CanTransitionTo follows scheduled -> confirmed -> completed, with
// cancellation allowed from either open state.
func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	for _, allowed := range scheduleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

type JobSchedule struct {
	ID                     string             `json:"id"`
	TechnicianID           string             `json:"technician_id"`
	LeadID                 string             `json:"lead_id"`
	ScheduledDate          string             `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime          string             `json:"scheduled_time"` // HH:MM
	EstimatedDuration      int                `json:"estimated_duration"`
	Status                 ScheduleStatus     `json:"status"`
	NotificationStatus     NotificationStatus `json:"notification_status"`
	NotifyAt               *time.Time         `json:"notify_at,omitempty"`
	NotificationProviderID string             `json:"notification_provider_id,omitempty"`
	Notes                  string             `json:"notes"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

func NewJobSchedule(leadID, technicianID, date, clock string, duration int) *JobSchedule {
	if duration == 0 {
		duration = DefaultEstimatedDuration
	}
	now := time.Now()
	return &JobSchedule{
		ID:                 uuid.New().String(),
		TechnicianID:       technicianID,
		LeadID:             leadID,
		ScheduledDate:      date,
		ScheduledTime:      clock,
		EstimatedDuration:  duration,
		Status:             ScheduleStatusScheduled,
		NotificationStatus: NotificationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// IsActive is true while the job still occupies technician capacity for
// dispatch purposes.
func (j *JobSchedule) IsActive() bool {
	return !j.Status.Terminal()
}

// DueAt is the moment the job starts, interpreted in loc.
func (j *JobSchedule) DueAt(loc *time.Location) (time.Time, error) {
	due, err := time.ParseInLocation(DateLayout+" "+TimeLayout, j.ScheduledDate+" "+j.ScheduledTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot %s %s: %w", j.ScheduledDate, j.ScheduledTime, err)
	}
	return due, nil
}

// ScheduleView is a JobSchedule joined with the technician and lead it
// references, as rendered on the calendar.
type ScheduleView struct {
	JobSchedule
	Technician TechnicianSnapshot `json:"technician"`
	Lead       LeadSnapshot       `json:"lead"`
}

type TechnicianSnapshot struct {
	ID                     string                 `json:"id"`
	Name                   string                 `json:"name"`
	Phone                  string                 `json:"phone"`
	Email                  string                 `json:"email,omitempty"`
	Color                  string                 `json:"color"`
	NotificationPreference NotificationPreference `json:"notification_preference"`
	IsActive               bool                   `json:"is_active"`
}

type LeadSnapshot struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Address     string     `json:"address,omitempty"`
	ServiceType string     `json:"service_type,omitempty"`
	Status      LeadStatus `json:"status"`
}

type JobScheduleRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*JobSchedule, error)
	FindView(ctx context.Context, id string) (*ScheduleView, error)
	ListWeek(ctx context.Context, from, to string) ([]*ScheduleView, error)
	UpdateNotificationResult(ctx context.Context, id string, status NotificationStatus, providerID string) error
	ClaimDueNotifications(ctx context.Context, now time.Time, limit int) ([]*JobSchedule, error)
	ReleaseNotificationClaim(ctx context.Context, id string) error
}
