package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/field-dispatch/internal/entity"
)

type TechnicianRegistry struct {
	Repo     TechnicianRepository
	Cache    WeekViewCache
	Location *time.Location
	Now      Clock
	Logger   *zap.Logger
}

func NewTechnicianRegistry(repo TechnicianRepository, cache WeekViewCache, loc *time.Location, logger *zap.Logger) *TechnicianRegistry {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechnicianRegistry{
		Repo:     repo,
		Cache:    cache,
		Location: loc,
		Now:      time.Now,
		Logger:   logger,
	}
}

// ListActive returns active technicians by name with jobs_today derived
// from the ledger on every call.
func (r *TechnicianRegistry) ListActive(ctx context.Context) ([]*entity.TechnicianSummary, error) {
	techs, err := r.Repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active technicians: %w", err)
	}

	today := r.Now().In(r.Location).Format(entity.DateLayout)
	counts, err := r.Repo.CountActiveJobsByTechnician(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("count jobs for %s: %w", today, err)
	}

	out := make([]*entity.TechnicianSummary, 0, len(techs))
	for _, t := range techs {
		out = append(out, &entity.TechnicianSummary{Technician: *t, JobsToday: counts[t.ID]})
	}
	return out, nil
}

func (r *TechnicianRegistry) Get(ctx context.Context, id string) (*entity.Technician, error) {
	t, err := r.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, entity.ErrTechnicianNotFound, "technician", id)
	}
	return t, nil
}

func (r *TechnicianRegistry) Register(ctx context.Context, input RegisterTechnicianInput) (*entity.Technician, error) {
	if err := ValidateRegisterTechnicianInput(input); err != nil {
		return nil, err
	}

	t := entity.NewTechnician(
		input.Name,
		input.Phone,
		input.Email,
		input.ServiceTypes,
		input.MaxJobsPerDay,
		entity.NotificationPreference(input.NotificationPreference),
		input.Color,
	)
	if err := r.Repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create technician: %w", err)
	}

	r.Logger.Info("technician registered", zap.String("technician_id", t.ID), zap.String("name", t.Name))
	return t, nil
}

func (r *TechnicianRegistry) Update(ctx context.Context, id string, input UpdateTechnicianInput) (*entity.Technician, error) {
	if err := ValidateUpdateTechnicianInput(input); err != nil {
		return nil, err
	}

	t, err := r.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, entity.ErrTechnicianNotFound, "technician", id)
	}

	if input.Name != nil {
		t.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		t.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Email != nil {
		t.Email = strings.TrimSpace(*input.Email)
	}
	if input.ServiceTypes != nil {
		t.ServiceTypes = entity.NormalizeServiceTypes(*input.ServiceTypes)
	}
	if input.MaxJobsPerDay != nil {
		t.MaxJobsPerDay = *input.MaxJobsPerDay
	}
	if input.NotificationPreference != nil {
		t.NotificationPreference = entity.NotificationPreference(*input.NotificationPreference)
	}
	if input.Color != nil {
		t.Color = *input.Color
	}
	if input.IsActive != nil {
		t.IsActive = *input.IsActive
	}
	t.UpdatedAt = r.Now()

	if err := r.Repo.Update(ctx, t); err != nil {
		return nil, notFound(err, entity.ErrTechnicianNotFound, "technician", id)
	}
	r.invalidate(ctx)
	return t, nil
}

// Deactivate is a soft delete. Schedules keep pointing at the technician.
func (r *TechnicianRegistry) Deactivate(ctx context.Context, id string) (*entity.Technician, error) {
	inactive := false
	t, err := r.Update(ctx, id, UpdateTechnicianInput{IsActive: &inactive})
	if err != nil {
		return nil, err
	}
	r.Logger.Info("technician deactivated", zap.String("technician_id", id))
	return t, nil
}

func (r *TechnicianRegistry) invalidate(ctx context.Context) {
	if r.Cache == nil {
		return
	}
	if err := r.Cache.Invalidate(ctx); err != nil {
		r.Logger.Warn("week view cache invalidation failed", zap.Error(err))
	}
}
