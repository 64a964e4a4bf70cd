package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/field-dispatch/internal/entity"
)

const LeadPoolPageSize = 50

// WeeklyViewBuilder assembles the calendar snapshot. It never writes.
type WeeklyViewBuilder struct {
	Ledger   *ScheduleLedger
	Registry *TechnicianRegistry
	Leads    LeadRepository
	Location *time.Location
	Logger   *zap.Logger
}

func NewWeeklyViewBuilder(ledger *ScheduleLedger, registry *TechnicianRegistry, leads LeadRepository, loc *time.Location, logger *zap.Logger) *WeeklyViewBuilder {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeeklyViewBuilder{
		Ledger:   ledger,
		Registry: registry,
		Leads:    leads,
		Location: loc,
		Logger:   logger,
	}
}

// WeekStart is the Monday on or before ref in loc.
func WeekStart(ref time.Time, loc *time.Location) time.Time {
	ref = ref.In(loc)
	offset := (int(ref.Weekday()) + 6) % 7
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
	return day.AddDate(0, 0, -offset)
}

// Build returns the snapshot for the week containing ref. The three sources
// are read concurrently; any of them may come back empty.
func (b *WeeklyViewBuilder) Build(ctx context.Context, ref time.Time) (*WeekSnapshot, error) {
	start := WeekStart(ref, b.Location)
	snap := &WeekSnapshot{
		WeekStart:   start.Format(entity.DateLayout),
		WeekEnd:     start.AddDate(0, 0, 6).Format(entity.DateLayout),
		Schedules:   []*entity.ScheduleView{},
		Technicians: []*entity.TechnicianSummary{},
		Leads:       []*entity.Lead{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := b.Ledger.WeekView(gctx, snap.WeekStart)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			snap.Schedules = rows
		}
		return nil
	})
	g.Go(func() error {
		techs, err := b.Registry.ListActive(gctx)
		if err != nil {
			return err
		}
		if len(techs) > 0 {
			snap.Technicians = techs
		}
		return nil
	})
	g.Go(func() error {
		leads, err := b.Leads.FindByStatus(gctx, entity.SchedulableLeadStatuses, LeadPoolPageSize)
		if err != nil {
			return err
		}
		if len(leads) > 0 {
			snap.Leads = leads
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		b.Logger.Error("week view build failed", zap.String("week_start", snap.WeekStart), zap.Error(err))
		return nil, err
	}
	return snap, nil
}
