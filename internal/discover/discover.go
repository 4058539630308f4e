// Package discover enumerates inheritance records from the ledger. Each
// asset kind is listed independently: one kind's query failing degrades to
// zero records of that kind rather than aborting the others. Records that
// are already claimed are filtered before hand-off; re-processing a claimed
// record must be a guaranteed no-op, so they never reach the dispatcher.
package discover

import (
	"context"
	"fmt"

	"github.com/solheir/heirkeeper/internal/ledger"
	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/models"
	"github.com/solheir/heirkeeper/pkg/retry"
)

// Discoverer lists non-terminal records across every known asset kind
type Discoverer struct {
	client ledger.Client
	retry  retry.Config
	logger *logging.Logger
}

// New creates a Discoverer
func New(client ledger.Client, retryConfig retry.Config, logger *logging.Logger) *Discoverer {
	return &Discoverer{
		client: client,
		retry:  retryConfig,
		logger: logger,
	}
}

// Discover returns the full set of unclaimed records. It errors only when
// every kind's listing failed, which is a cycle-level condition; partial
// failure is logged and degraded.
func (d *Discoverer) Discover(ctx context.Context) ([]*models.InheritanceRecord, error) {
	var records []*models.InheritanceRecord
	failedKinds := 0

	for _, kind := range models.AllKinds {
		var listed []*models.InheritanceRecord
		err := retry.Do(ctx, d.retry, fmt.Sprintf("list_%s_records", kind), func() error {
			var listErr error
			listed, listErr = d.client.ListRecords(ctx, kind)
			return listErr
		})
		if err != nil {
			failedKinds++
			d.logger.Warn("record listing failed, degrading to zero records of kind", logging.Fields{
				"kind":  string(kind),
				"error": err.Error(),
			})
			continue
		}

		kept := 0
		for _, record := range listed {
			if record.Claimed {
				continue
			}
			records = append(records, record)
			kept++
		}
		d.logger.Debug("listed records", logging.Fields{
			"kind":      string(kind),
			"total":     len(listed),
			"unclaimed": kept,
		})
	}

	if failedKinds == len(models.AllKinds) {
		return nil, fmt.Errorf("discovery failed for all %d record kinds", failedKinds)
	}
	return records, nil
}
