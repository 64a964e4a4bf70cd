package usecase

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/xavierca1/field-dispatch/internal/entity"
)

var nonDigits = regexp.MustCompile(`\D`)

func ValidateRegisterTechnicianInput(input RegisterTechnicianInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return invalid("name", "is required")
	}
	if len(input.Name) > 200 {
		return invalid("name", "must not exceed 200 characters")
	}
	if strings.TrimSpace(input.Phone) == "" {
		return invalid("phone", "is required")
	}
	if !isValidPhoneNumber(input.Phone) {
		return invalid("phone", "must be a valid phone number")
	}
	if input.Email != "" && !isValidEmail(input.Email) {
		return invalid("email", "is invalid")
	}
	if input.MaxJobsPerDay < 0 {
		return invalid("max_jobs_per_day", "must be a positive integer")
	}
	if input.NotificationPreference != "" && !entity.NotificationPreference(input.NotificationPreference).Valid() {
		return invalid("notification_preference", "must be one of all, sms, email, none")
	}
	if input.Color != "" && !entity.ValidColor(input.Color) {
		return invalid("color", "must be a hex color like #3B82F6")
	}
	return nil
}

func ValidateUpdateTechnicianInput(input UpdateTechnicianInput) error {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return invalid("name", "cannot be empty")
	}
	if input.Phone != nil && !isValidPhoneNumber(*input.Phone) {
		return invalid("phone", "must be a valid phone number")
	}
	if input.Email != nil && *input.Email != "" && !isValidEmail(*input.Email) {
		return invalid("email", "is invalid")
	}
	if input.ServiceTypes != nil && len(entity.NormalizeServiceTypes(*input.ServiceTypes)) == 0 {
		return invalid("service_types", "must contain at least one service type")
	}
	if input.MaxJobsPerDay != nil && *input.MaxJobsPerDay <= 0 {
		return invalid("max_jobs_per_day", "must be a positive integer")
	}
	if input.NotificationPreference != nil && !entity.NotificationPreference(*input.NotificationPreference).Valid() {
		return invalid("notification_preference", "must be one of all, sms, email, none")
	}
	if input.Color != nil && !entity.ValidColor(*input.Color) {
		return invalid("color", "must be a hex color like #3B82F6")
	}
	return nil
}

func ValidateCreateAssignmentInput(input CreateAssignmentInput) error {
	if strings.TrimSpace(input.LeadID) == "" {
		return invalid("lead_id", "is required")
	}
	if strings.TrimSpace(input.TechnicianID) == "" {
		return invalid("technician_id", "is required")
	}
	if err := validateDate(input.Date); err != nil {
		return err
	}
	if err := validateTime(input.Time); err != nil {
		return err
	}
	if input.EstimatedDuration < 0 {
		return invalid("estimated_duration", "must not be negative")
	}
	return nil
}

func ValidateCaptureLeadInput(input CaptureLeadInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return invalid("name", "is required")
	}
	if strings.TrimSpace(input.Phone) == "" && strings.TrimSpace(input.Email) == "" {
		return invalid("phone", "phone or email is required")
	}
	if input.Phone != "" && !isValidPhoneNumber(input.Phone) {
		return invalid("phone", "must be a valid phone number")
	}
	if input.Email != "" && !isValidEmail(input.Email) {
		return invalid("email", "is invalid")
	}
	return nil
}

func validateDate(date string) error {
	if strings.TrimSpace(date) == "" {
		return invalid("scheduled_date", "is required")
	}
	if _, err := time.Parse(entity.DateLayout, date); err != nil {
		return invalid("scheduled_date", "must be a valid date (YYYY-MM-DD)")
	}
	return nil
}

func validateTime(clock string) error {
	if strings.TrimSpace(clock) == "" {
		return invalid("scheduled_time", "is required")
	}
	if _, err := time.Parse(entity.TimeLayout, clock); err != nil {
		return invalid("scheduled_time", "must be a valid time (HH:MM)")
	}
	return nil
}

func isValidPhoneNumber(phone string) bool {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	return len(cleaned) >= 10 && len(cleaned) <= 15
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
