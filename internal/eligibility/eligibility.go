// Package eligibility holds the pure time-and-state predicate that decides
// whether an inheritance record may be executed. No I/O, no clock access:
// callers pass now explicitly so the predicate is testable against literal
// timestamps.
package eligibility

import (
	"time"

	"github.com/solheir/heirkeeper/pkg/models"
)

// Eligible reports whether record may be executed at now. A record qualifies
// only when it is unclaimed, holds a nonzero amount, and the owner's elapsed
// inactivity strictly exceeds the configured threshold. Elapsed time exactly
// equal to the threshold is NOT eligible, matching the program's
// owner-still-active rejection.
func Eligible(record *models.InheritanceRecord, now time.Time) bool {
	if record == nil || record.Claimed {
		return false
	}
	if record.Amount == 0 {
		return false
	}
	return record.Elapsed(now) > record.InactivityThreshold
}

// Filter returns the records eligible at now, preserving input order
func Filter(records []*models.InheritanceRecord, now time.Time) []*models.InheritanceRecord {
	eligible := make([]*models.InheritanceRecord, 0, len(records))
	for _, record := range records {
		if Eligible(record, now) {
			eligible = append(eligible, record)
		}
	}
	return eligible
}
