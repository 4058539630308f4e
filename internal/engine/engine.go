// Package engine ties discovery, eligibility, funding and dispatch together
// on a fixed interval. The loop is stateless across cycles: every cycle
// re-derives truth from the ledger, so the keeper can be killed and
// restarted at any cycle boundary without bookkeeping.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/solheir/heirkeeper/internal/discover"
	"github.com/solheir/heirkeeper/internal/dispatch"
	"github.com/solheir/heirkeeper/internal/eligibility"
	"github.com/solheir/heirkeeper/internal/funding"
	"github.com/solheir/heirkeeper/internal/metrics"
	"github.com/solheir/heirkeeper/internal/notify"
	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/models"
)

// Keeper is the scheduler loop: Stopped -> Running -> Stopped
type Keeper struct {
	discoverer *discover.Discoverer
	guard      *funding.Guard
	dispatcher *dispatch.Dispatcher
	notifier   notify.Notifier
	collector  *metrics.Collector
	logger     *logging.Logger

	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	lastReport *models.CycleReport
	reportMu   sync.RWMutex
}

// Config wires a Keeper
type Config struct {
	Discoverer *discover.Discoverer
	Guard      *funding.Guard
	Dispatcher *dispatch.Dispatcher
	Notifier   notify.Notifier
	Collector  *metrics.Collector
	Logger     *logging.Logger
	Interval   time.Duration    // minutes granularity, default 5m
	Now        func() time.Time // tests override; nil means time.Now
}

// New creates a Keeper
func New(cfg Config) *Keeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Keeper{
		discoverer: cfg.Discoverer,
		guard:      cfg.Guard,
		dispatcher: cfg.Dispatcher,
		notifier:   cfg.Notifier,
		collector:  cfg.Collector,
		logger:     cfg.Logger,
		interval:   interval,
		now:        now,
	}
}

// Start runs one cycle immediately, then arms the periodic timer. Calling
// Start while already running is a logged no-op.
func (k *Keeper) Start(ctx context.Context) {
	k.mu.Lock()
	if k.running {
		k.mu.Unlock()
		k.logger.Warn("keeper already running, ignoring start")
		return
	}
	k.running = true
	k.stopCh = make(chan struct{})
	k.doneCh = make(chan struct{})
	k.mu.Unlock()

	k.logger.Info("keeper started", logging.Fields{"interval": k.interval.String()})
	go k.run(ctx)
}

// Stop requests a graceful stop. No cycle is interrupted mid-execution;
// only the next cycle is prevented from starting. Stop blocks until the
// loop has drained.
func (k *Keeper) Stop() {
	k.mu.Lock()
	if !k.running {
		k.mu.Unlock()
		return
	}
	k.running = false
	close(k.stopCh)
	done := k.doneCh
	k.mu.Unlock()

	k.logger.Info("keeper stopping, waiting for in-flight cycle")
	<-done
	k.logger.Info("keeper stopped")
}

// Running reports the loop state
func (k *Keeper) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running
}

// LastReport returns the most recent cycle report, or nil before the first
// cycle completes.
func (k *Keeper) LastReport() *models.CycleReport {
	k.reportMu.RLock()
	defer k.reportMu.RUnlock()
	return k.lastReport
}

func (k *Keeper) run(ctx context.Context) {
	defer close(k.doneCh)

	k.cycle(ctx)

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-k.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Stop may have raced the tick; re-check before starting
			// another cycle.
			select {
			case <-k.stopCh:
				return
			default:
			}
			k.cycle(ctx)
		}
	}
}

// cycle runs one full discovery/evaluation/dispatch pass. Per-record errors
// never abort the cycle; cycle-level errors (funding, total discovery
// failure) abort only the execution phase.
func (k *Keeper) cycle(ctx context.Context) *models.CycleReport {
	start := k.now()
	report := &models.CycleReport{StartedAt: start}
	defer func() {
		report.Duration = k.now().Sub(start)
		k.collector.RecordCycle(report)
		k.publishReport(report)
		k.logger.Info("cycle complete", logging.Fields{
			"discovered": report.Discovered,
			"eligible":   report.Eligible,
			"executed":   report.Executed,
			"failed":     report.Failed,
			"skipped":    report.Skipped,
			"duration":   report.Duration.String(),
		})
	}()

	balance, funded := k.guard.Check(ctx)
	k.collector.RecordBalance(balance)
	report.FundingOK = funded

	records, err := k.discoverer.Discover(ctx)
	if err != nil {
		k.logger.Error("discovery failed for all record kinds, aborting cycle execution", logging.Fields{
			"error": err.Error(),
		})
		k.collector.RecordSkip("discovery_failed")
		return report
	}
	report.Discovered = len(records)

	eligible := eligibility.Filter(records, k.now())
	report.Eligible = len(eligible)

	for _, record := range eligible {
		k.logger.Info("record eligible", logging.Fields{
			"record":    record.ID(),
			"kind":      string(record.Kind),
			"owner":     record.Owner.String(),
			"amount":    record.Amount,
			"elapsed":   record.Elapsed(k.now()).String(),
			"threshold": record.InactivityThreshold.String(),
		})
		if k.notifier != nil {
			k.notifier.Publish(ctx, notify.NewEvent(notify.EventRecordEligible, record))
		}
	}

	if !funded {
		report.Skipped = len(eligible)
		k.collector.RecordSkip("funding")
		return report
	}

	// Records are processed sequentially; heirs are independent, so one
	// record's failure must not block the rest of the cycle.
	for _, record := range eligible {
		result := k.dispatcher.Dispatch(ctx, record)
		report.Results = append(report.Results, result)
		if result.Outcome == models.OutcomeSuccess {
			report.Executed++
		} else {
			report.Failed++
		}
	}
	return report
}

func (k *Keeper) publishReport(report *models.CycleReport) {
	k.reportMu.Lock()
	defer k.reportMu.Unlock()
	k.lastReport = report
}

// RunOnce executes a single cycle synchronously without starting the loop.
// Used by the records command and by tests.
func (k *Keeper) RunOnce(ctx context.Context) *models.CycleReport {
	return k.cycle(ctx)
}
