// Package dispatch builds, submits and confirms the transactions that move
// escrowed assets to heirs. Each eligible record is one retry-unit: the
// build/submit/confirm sequence is wrapped in classified retry, and a
// submission that already went out is never re-sent under a fresh blockhash —
// on retry the dispatcher re-confirms the known signature instead, which is
// what keeps a confirmation timeout from turning into a double-claim.
package dispatch

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solheir/heirkeeper/internal/ledger"
	"github.com/solheir/heirkeeper/internal/notify"
	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/models"
	"github.com/solheir/heirkeeper/pkg/ratelimit"
	"github.com/solheir/heirkeeper/pkg/retry"
)

// Dispatcher executes eligible records by asset kind
type Dispatcher struct {
	client    ledger.Client
	programID solana.PublicKey
	keeper    solana.PrivateKey
	strategy  Strategy
	retry     retry.Config
	pacer     *ratelimit.Pacer
	notifier  notify.Notifier
	logger    *logging.Logger
}

// Config wires a Dispatcher
type Config struct {
	Client    ledger.Client
	ProgramID solana.PublicKey
	Keeper    solana.PrivateKey
	Strategy  Strategy
	Retry     retry.Config
	Pacer     *ratelimit.Pacer
	Notifier  notify.Notifier
	Logger    *logging.Logger
}

// New creates a Dispatcher
func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		client:    cfg.Client,
		programID: cfg.ProgramID,
		keeper:    cfg.Keeper,
		strategy:  cfg.Strategy,
		retry:     cfg.Retry,
		pacer:     cfg.Pacer,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
	}
}

// Dispatch executes one record and reports the classified outcome. It waits
// on the submission pacer first so a cycle cannot hammer the RPC endpoint.
func (d *Dispatcher) Dispatch(ctx context.Context, record *models.InheritanceRecord) models.ExecutionResult {
	result := models.ExecutionResult{
		RecordID: record.ID(),
		Kind:     record.Kind,
	}

	if d.pacer != nil {
		if err := d.pacer.Wait(ctx); err != nil {
			result.Outcome = models.OutcomeRetryable
			result.Reason = fmt.Sprintf("cancelled before submission: %v", err)
			return result
		}
	}

	var sig solana.Signature
	var err error
	switch record.Kind {
	case models.AssetNativeCoin, models.AssetFungibleToken:
		sig, err = d.strategy.Claim(ctx, d, record)
	case models.AssetMultiHeirWallet:
		sig, err = d.executeMultiHeir(ctx, record)
	default:
		err = &retry.LedgerError{
			Class: retry.ClassFatal, Op: "dispatch", Attempts: 0,
			Err: fmt.Errorf("malformed record: unknown asset kind %q", record.Kind),
		}
	}

	if err != nil {
		if retry.IsFatal(err) {
			result.Outcome = models.OutcomeFatal
		} else {
			result.Outcome = models.OutcomeRetryable
		}
		result.Reason = err.Error()
		d.logger.Error("execution failed", logging.Fields{
			"record":  record.ID(),
			"kind":    string(record.Kind),
			"amount":  record.Amount,
			"outcome": string(result.Outcome),
			"reason":  result.Reason,
		})
	} else {
		result.Outcome = models.OutcomeSuccess
		result.TxSig = sig
		if !sig.IsZero() {
			d.logger.Info("execution succeeded", logging.Fields{
				"record": record.ID(),
				"kind":   string(record.Kind),
				"amount": record.Amount,
				"tx":     sig.String(),
			})
		}
	}

	// A prepared claim already published its own event; only submitted
	// outcomes are reported here.
	prepared := result.Outcome == models.OutcomeSuccess && result.TxSig.IsZero()
	if d.notifier != nil && !prepared {
		eventType := notify.EventExecutionSuccess
		if result.Outcome != models.OutcomeSuccess {
			eventType = notify.EventExecutionFailed
		}
		event := notify.NewEvent(eventType, record)
		event.Result = &result
		d.notifier.Publish(ctx, event)
	}
	return result
}

// submitOnce runs one build/submit/confirm retry-unit. The signature of a
// submission that made it out is remembered across attempts: later attempts
// re-confirm it rather than re-submit, so at most one claim can land.
func (d *Dispatcher) submitOnce(ctx context.Context, opName string, build func(blockhash solana.Hash) (*solana.Transaction, error)) (solana.Signature, error) {
	var submitted solana.Signature

	err := retry.Do(ctx, d.retry, opName, func() error {
		if !submitted.IsZero() {
			return d.client.ConfirmTransaction(ctx, submitted)
		}

		blockhash, err := d.client.LatestBlockhash(ctx)
		if err != nil {
			return err
		}
		tx, err := build(blockhash)
		if err != nil {
			return err
		}

		sig, err := d.client.SubmitTransaction(ctx, tx)
		if err != nil {
			return err
		}
		submitted = sig
		return d.client.ConfirmTransaction(ctx, sig)
	})
	if err != nil {
		return submitted, err
	}
	return submitted, nil
}

// executeMultiHeir re-reads the escrow balance at execution time, then
// submits the single execute instruction the program fans out per
// allocation. The per-heir amounts here are for logging only; the program
// computes the transfers.
func (d *Dispatcher) executeMultiHeir(ctx context.Context, record *models.InheritanceRecord) (solana.Signature, error) {
	var balance uint64
	err := retry.Do(ctx, d.retry, "read_escrow_balance", func() error {
		var readErr error
		balance, readErr = d.client.GetBalance(ctx, record.Address)
		return readErr
	})
	if err != nil {
		return solana.Signature{}, err
	}
	if balance == 0 {
		return solana.Signature{}, &retry.LedgerError{
			Class: retry.ClassFatal, Op: "execute_multi_heir", Attempts: 1,
			Err: fmt.Errorf("escrow %s already claimed or empty at execution time", record.ID()),
		}
	}

	for _, heir := range record.Heirs {
		share := balance / 100 * uint64(heir.AllocationPercent)
		d.logger.Info("multi-heir allocation", logging.Fields{
			"record":  record.ID(),
			"heir":    heir.Address.String(),
			"percent": heir.AllocationPercent,
			"amount":  share,
		})
	}

	keeperKey := d.keeper.PublicKey()
	return d.submitOnce(ctx, "execute_multi_heir", func(blockhash solana.Hash) (*solana.Transaction, error) {
		ix, err := ledger.ExecuteMultiHeirInstruction(d.programID, record, keeperKey)
		if err != nil {
			return nil, err
		}
		tx, err := solana.NewTransaction([]solana.Instruction{ix}, blockhash, solana.TransactionPayer(keeperKey))
		if err != nil {
			return nil, err
		}
		if _, err := tx.Sign(d.signerFor); err != nil {
			return nil, fmt.Errorf("failed to sign transaction: %w", err)
		}
		return tx, nil
	})
}

func (d *Dispatcher) signerFor(key solana.PublicKey) *solana.PrivateKey {
	if d.keeper.PublicKey().Equals(key) {
		return &d.keeper
	}
	return nil
}
