// Package funding gates each cycle's execution phase on the keeper's own
// fee headroom. The check is all-or-nothing per cycle: a keeper that cannot
// cover fees performs discovery and logging only, never a partial run that
// silently skips some records for balance reasons.
package funding

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/solheir/heirkeeper/internal/ledger"
	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/retry"
)

// Guard checks the operating account against a minimum lamport floor
type Guard struct {
	client   ledger.Client
	operator solana.PublicKey
	floor    uint64
	retry    retry.Config
	logger   *logging.Logger
}

// New creates a Guard. floor is in lamports.
func New(client ledger.Client, operator solana.PublicKey, floor uint64, retryConfig retry.Config, logger *logging.Logger) *Guard {
	return &Guard{
		client:   client,
		operator: operator,
		floor:    floor,
		retry:    retryConfig,
		logger:   logger,
	}
}

// Check returns true when the cycle may execute. A balance read failure is
// treated as insufficient: executing blind risks fee-funded half-work.
func (g *Guard) Check(ctx context.Context) (balance uint64, ok bool) {
	err := retry.Do(ctx, g.retry, "get_operating_balance", func() error {
		var readErr error
		balance, readErr = g.client.GetBalance(ctx, g.operator)
		return readErr
	})
	if err != nil {
		g.logger.Warn("could not read operating balance, skipping executions this cycle", logging.Fields{
			"operator": g.operator.String(),
			"error":    err.Error(),
		})
		return 0, false
	}

	if balance < g.floor {
		g.logger.Warn("operating balance below fee floor, skipping all executions this cycle", logging.Fields{
			"operator": g.operator.String(),
			"balance":  balance,
			"floor":    g.floor,
			"needed":   g.floor - balance,
		})
		return balance, false
	}
	return balance, true
}
