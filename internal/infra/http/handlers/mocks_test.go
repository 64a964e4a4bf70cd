package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/field-dispatch/internal/entity"
	"github.com/xavierca1/field-dispatch/internal/usecase"
)

type MockTechnicianService struct {
	mock.Mock
}

func (m *MockTechnicianService) ListActive(ctx context.Context) ([]*entity.TechnicianSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.TechnicianSummary), args.Error(1)
}

func (m *MockTechnicianService) Get(ctx context.Context, id string) (*entity.Technician, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Technician), args.Error(1)
}

func (m *MockTechnicianService) Register(ctx context.Context, input usecase.RegisterTechnicianInput) (*entity.Technician, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Technician), args.Error(1)
}

func (m *MockTechnicianService) Update(ctx context.Context, id string, input usecase.UpdateTechnicianInput) (*entity.Technician, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Technician), args.Error(1)
}

func (m *MockTechnicianService) Deactivate(ctx context.Context, id string) (*entity.Technician, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Technician), args.Error(1)
}

type MockScheduleService struct {
	mock.Mock
}

func (m *MockScheduleService) CreateAssignment(ctx context.Context, input usecase.CreateAssignmentInput) (*entity.JobSchedule, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.JobSchedule), args.Error(1)
}

func (m *MockScheduleService) Patch(ctx context.Context, scheduleID string, input usecase.PatchScheduleInput) (*entity.JobSchedule, error) {
	args := m.Called(ctx, scheduleID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.JobSchedule), args.Error(1)
}

type MockWeekViewBuilder struct {
	mock.Mock
}

func (m *MockWeekViewBuilder) Build(ctx context.Context, ref time.Time) (*usecase.WeekSnapshot, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.WeekSnapshot), args.Error(1)
}

type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) Capture(ctx context.Context, input usecase.CaptureLeadInput) (*entity.Lead, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadService) List(ctx context.Context, statuses []string, limit int) ([]*entity.Lead, error) {
	args := m.Called(ctx, statuses, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadService) UpdateStatus(ctx context.Context, id, status string) (*entity.Lead, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}
