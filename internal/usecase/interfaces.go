package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/field-dispatch/internal/entity"
	"github.com/xavierca1/field-dispatch/internal/infra/queue"
)

type TechnicianRepository = entity.TechnicianRepositoryInterface

type LeadRepository = entity.LeadRepositoryInterface

type ScheduleRepository = entity.JobScheduleRepositoryInterface

// LedgerTx is the set of reads and writes available inside one ledger
// transaction. LockTechnician must hold the technician until the
// transaction ends so that count-then-insert cannot interleave with another
// assignment for the same technician.
type LedgerTx interface {
	LockTechnician(ctx context.Context, id string) (*entity.Technician, error)
	LockSchedule(ctx context.Context, id string) (*entity.JobSchedule, error)
	FindLead(ctx context.Context, id string) (*entity.Lead, error)
	CountActiveOnDate(ctx context.Context, technicianID, date, excludeScheduleID string) (int, error)
	InsertSchedule(ctx context.Context, s *entity.JobSchedule) error
	UpdateSchedule(ctx context.Context, s *entity.JobSchedule) error
}

// UnitOfWork commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx LedgerTx) error) error
}

type NotificationQueue interface {
	PublishNotification(ctx context.Context, payload queue.NotificationPayload) error
}

// WeekViewCache holds ledger week rows. It is never consulted for capacity.
// Get reports the cache generation it looked at; Set writes under that
// generation so rows read before an Invalidate can never be served after it.
type WeekViewCache interface {
	Get(ctx context.Context, weekStart string) (rows []*entity.ScheduleView, generation int64, hit bool, err error)
	Set(ctx context.Context, weekStart string, generation int64, rows []*entity.ScheduleView) error
	Invalidate(ctx context.Context) error
}

type SMSSender interface {
	Send(ctx context.Context, to, body string) (providerID string, err error)
}

type EmailService interface {
	SendJobNotification(to string, data JobNotificationData) (providerID string, err error)
}

type JobNotificationData struct {
	RecipientName  string
	TechnicianName string
	CustomerName   string
	Address        string
	ServiceType    string
	Date           string
	Time           string
	Duration       int
	Notes          string
	Status         string
}

// Clock is swapped in tests.
type Clock func() time.Time
