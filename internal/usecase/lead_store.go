package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/field-dispatch/internal/entity"
)

const maxLeadPage = 200

type LeadService struct {
	Repo   LeadRepository
	Cache  WeekViewCache
	Logger *zap.Logger
}

func NewLeadService(repo LeadRepository, cache WeekViewCache, logger *zap.Logger) *LeadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{Repo: repo, Cache: cache, Logger: logger}
}

func (s *LeadService) Capture(ctx context.Context, input CaptureLeadInput) (*entity.Lead, error) {
	if err := ValidateCaptureLeadInput(input); err != nil {
		return nil, err
	}
	lead, err := entity.NewLead(input.Name, input.Phone, input.Email, input.Address, input.ServiceType, input.Message)
	if err != nil {
		return nil, invalid("", err.Error())
	}
	if err := s.Repo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	s.Logger.Info("lead captured", zap.String("lead_id", lead.ID), zap.String("service_type", lead.ServiceType))
	return lead, nil
}

// List returns leads in the given statuses, newest first. An empty status
// list means the schedulable pool.
func (s *LeadService) List(ctx context.Context, statuses []string, limit int) ([]*entity.Lead, error) {
	wanted := make([]entity.LeadStatus, 0, len(statuses))
	for _, st := range statuses {
		ls := entity.LeadStatus(st)
		if !ls.Valid() {
			return nil, invalid("status", fmt.Sprintf("unknown lead status %q", st))
		}
		wanted = append(wanted, ls)
	}
	if len(wanted) == 0 {
		wanted = entity.SchedulableLeadStatuses
	}
	if limit <= 0 {
		limit = LeadPoolPageSize
	}
	if limit > maxLeadPage {
		limit = maxLeadPage
	}

	leads, err := s.Repo.FindByStatus(ctx, wanted, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	return leads, nil
}

func (s *LeadService) UpdateStatus(ctx context.Context, id, status string) (*entity.Lead, error) {
	next := entity.LeadStatus(status)
	if !next.Valid() {
		return nil, invalid("status", "must be one of new, contacted, quoted, converted, closed")
	}
	if err := s.Repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, notFound(err, entity.ErrLeadNotFound, "lead", id)
	}
	lead, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, entity.ErrLeadNotFound, "lead", id)
	}
	// lead snapshots are embedded in cached week rows
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx); err != nil {
			s.Logger.Warn("week view cache invalidation failed", zap.Error(err))
		}
	}
	return lead, nil
}
