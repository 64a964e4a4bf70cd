package entity

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrTechnicianNotFound = errors.New("technician not found")

const (
	DefaultServiceType      = "residential"
	DefaultMaxJobsPerDay    = 4
	DefaultNotificationPref = NotifyAll
	DefaultColor            = "#3B82F6"
)

type NotificationPreference string

const (
	NotifyAll   NotificationPreference = "all"
	NotifySMS   NotificationPreference = "sms"
	NotifyEmail NotificationPreference = "email"
	NotifyNone  NotificationPreference = "none"
)

func (p NotificationPreference) Valid() bool {
	switch p {
	case NotifyAll, NotifySMS, NotifyEmail, NotifyNone:
		return true
	}
	return false
}

func (p NotificationPreference) WantsSMS() bool   { return p == NotifyAll || p == NotifySMS }
func (p NotificationPreference) WantsEmail() bool { return p == NotifyAll || p == NotifyEmail }

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func ValidColor(c string) bool { return colorPattern.MatchString(c) }

type Technician struct {
	ID                     string                 `json:"id"`
	Name                   string                 `json:"name"`
	Phone                  string                 `json:"phone"`
	Email                  string                 `json:"email,omitempty"`
	ServiceTypes           []string               `json:"service_types"`
	MaxJobsPerDay          int                    `json:"max_jobs_per_day"`
	NotificationPreference NotificationPreference `json:"notification_preference"`
	Color                  string                 `json:"color"`
	IsActive               bool                   `json:"is_active"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// NewTechnician fills the registry defaults for zero-valued optional fields.
func NewTechnician(name, phone, email string, serviceTypes []string, maxJobsPerDay int, pref NotificationPreference, color string) *Technician {
	types := NormalizeServiceTypes(serviceTypes)
	if len(types) == 0 {
		types = []string{DefaultServiceType}
	}
	if maxJobsPerDay == 0 {
		maxJobsPerDay = DefaultMaxJobsPerDay
	}
	if pref == "" {
		pref = DefaultNotificationPref
	}
	if color == "" {
		color = DefaultColor
	}
	now := time.Now()
	return &Technician{
		ID:                     uuid.New().String(),
		Name:                   strings.TrimSpace(name),
		Phone:                  strings.TrimSpace(phone),
		Email:                  strings.TrimSpace(email),
		ServiceTypes:           types,
		MaxJobsPerDay:          maxJobsPerDay,
		NotificationPreference: pref,
		Color:                  color,
		IsActive:               true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// Offers reports whether the technician performs serviceType. An empty
// service type on the lead side matches everyone.
func (t *Technician) Offers(serviceType string) bool {
	serviceType = strings.ToLower(strings.TrimSpace(serviceType))
	if serviceType == "" {
		return true
	}
	for _, s := range t.ServiceTypes {
		if s == serviceType {
			return true
		}
	}
	return false
}

// NormalizeServiceTypes lowercases, trims and de-duplicates, keeping order.
func NormalizeServiceTypes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// TechnicianSummary is a technician as listed by the registry, with the
// jobs_today projection computed at read time.
type TechnicianSummary struct {
	Technician
	JobsToday int `json:"jobs_today"`
}

type TechnicianRepositoryInterface interface {
	Create(ctx context.Context, t *Technician) error
	FindByID(ctx context.Context, id string) (*Technician, error)
	ListActive(ctx context.Context) ([]*Technician, error)
	Update(ctx context.Context, t *Technician) error
	CountActiveJobsByTechnician(ctx context.Context, date string) (map[string]int, error)
}
