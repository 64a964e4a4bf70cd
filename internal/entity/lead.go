package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrLeadNotFound = errors.New("lead not found")

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQuoted    LeadStatus = "quoted"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusClosed    LeadStatus = "closed"
)

// SchedulableLeadStatuses is the pool the dispatch calendar draws from.
var SchedulableLeadStatuses = []LeadStatus{LeadStatusNew, LeadStatusContacted, LeadStatusQuoted}

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQuoted, LeadStatusConverted, LeadStatusClosed:
		return true
	}
	return false
}

// Lead is a contact_submissions row. The scheduling core only reads it.
type Lead struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Address     string     `json:"address,omitempty"`
	ServiceType string     `json:"service_type,omitempty"`
	Message     string     `json:"message,omitempty"`
	Status      LeadStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewLead(name, phone, email, address, serviceType, message string) (*Lead, error) {
	lead := &Lead{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(name),
		Phone:       strings.TrimSpace(phone),
		Email:       strings.TrimSpace(email),
		Address:     strings.TrimSpace(address),
		ServiceType: strings.ToLower(strings.TrimSpace(serviceType)),
		Message:     message,
		Status:      LeadStatusNew,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if lead.Name == "" {
		return nil, errors.New("name is required")
	}
	if lead.Phone == "" && lead.Email == "" {
		return nil, errors.New("phone or email is required")
	}
	return lead, nil
}

func (l *Lead) IsSchedulable() bool {
	for _, s := range SchedulableLeadStatuses {
		if l.Status == s {
			return true
		}
	}
	return false
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindByStatus(ctx context.Context, statuses []LeadStatus, limit int) ([]*Lead, error)
	UpdateStatus(ctx context.Context, id string, status LeadStatus) error
}
