package usecase

import (
	"context"
	"fmt"

	"github.com/xavierca1/field-dispatch/internal/entity"
)

// CapacityChecker decides whether a technician may take one more job on a
// date. It works at (technician, date) granularity only: overlapping start
// times on the same day are allowed until max_jobs_per_day is reached.
type CapacityChecker struct{}

// Eligible checks the technician side of an assignment: active and
// offering the lead's service type.
func (CapacityChecker) Eligible(t *entity.Technician, lead *entity.Lead) error {
	if !t.IsActive {
		return invalid("technician_id", fmt.Sprintf("technician %s is inactive", t.Name))
	}
	if !t.Offers(lead.ServiceType) {
		return invalid("technician_id", fmt.Sprintf("technician %s does not offer %s service", t.Name, lead.ServiceType))
	}
	return nil
}

// Check must run inside the transaction that holds the technician lock.
// excludeScheduleID keeps a record from counting against itself when it
// is moved.
func (CapacityChecker) Check(ctx context.Context, tx LedgerTx, t *entity.Technician, date, excludeScheduleID string) error {
	count, err := tx.CountActiveOnDate(ctx, t.ID, date, excludeScheduleID)
	if err != nil {
		return fmt.Errorf("count jobs for technician %s on %s: %w", t.ID, date, err)
	}
	if count >= t.MaxJobsPerDay {
		return &CapacityExceededError{
			TechnicianID: t.ID,
			Date:         date,
			Max:          t.MaxJobsPerDay,
			Current:      count,
		}
	}
	return nil
}
