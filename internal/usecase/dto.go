package usecase

import "github.com/xavierca1/field-dispatch/internal/entity"

type RegisterTechnicianInput struct {
	Name                   string   `json:"name"`
	Phone                  string   `json:"phone"`
	Email                  string   `json:"email"`
	ServiceTypes           []string `json:"service_types"`
	MaxJobsPerDay          int      `json:"max_jobs_per_day"`
	NotificationPreference string   `json:"notification_preference"`
	Color                  string   `json:"color"`
}

// UpdateTechnicianInput is the allow-list for technician patches. Fields
// left nil are untouched; anything not listed here cannot be written.
type UpdateTechnicianInput struct {
	Name                   *string   `json:"name"`
	Phone                  *string   `json:"phone"`
	Email                  *string   `json:"email"`
	ServiceTypes           *[]string `json:"service_types"`
	MaxJobsPerDay          *int      `json:"max_jobs_per_day"`
	NotificationPreference *string   `json:"notification_preference"`
	Color                  *string   `json:"color"`
	IsActive               *bool     `json:"is_active"`
}

type CreateAssignmentInput struct {
	LeadID            string `json:"lead_id"`
	TechnicianID      string `json:"technician_id"`
	Date              string `json:"scheduled_date"`
	Time              string `json:"scheduled_time"`
	EstimatedDuration int    `json:"estimated_duration"`
	Notes             string `json:"notes"`
}

// PatchScheduleInput is the allow-list for job schedule patches.
type PatchScheduleInput struct {
	Date         *string `json:"scheduled_date"`
	Time         *string `json:"scheduled_time"`
	TechnicianID *string `json:"technician_id"`
	Status       *string `json:"status"`
	Notes        *string `json:"notes"`
}

func (in PatchScheduleInput) Empty() bool {
	return in.Date == nil && in.Time == nil && in.TechnicianID == nil && in.Status == nil && in.Notes == nil
}

type WeekSnapshot struct {
	WeekStart   string                      `json:"week_start"`
	WeekEnd     string                      `json:"week_end"`
	Schedules   []*entity.ScheduleView      `json:"schedules"`
	Technicians []*entity.TechnicianSummary `json:"technicians"`
	Leads       []*entity.Lead              `json:"leads"`
}

type CaptureLeadInput struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	ServiceType string `json:"service_type"`
	Message     string `json:"message"`
}
