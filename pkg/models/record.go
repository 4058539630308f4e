package models

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// AssetKind identifies which escrow variant an inheritance record belongs to
type AssetKind string

const (
	AssetNativeCoin      AssetKind = "native"
	AssetFungibleToken   AssetKind = "token"
	AssetMultiHeirWallet AssetKind = "multi"
)

// AllKinds lists every asset kind the keeper knows how to discover
var AllKinds = []AssetKind{AssetNativeCoin, AssetFungibleToken, AssetMultiHeirWallet}

// Heir is a single beneficiary with its percentage allocation.
// Single-heir records carry exactly one entry at 100.
type Heir struct {
	Address           solana.PublicKey `json:"address"`
	AllocationPercent uint8            `json:"allocation_percent"`
}

// InheritanceRecord is the canonical unit of work: one escrow account on the
// ledger, decoded into the fields the keeper needs. The ledger program
// enforces that allocations sum to 100 at creation time; the keeper assumes it.
type InheritanceRecord struct {
	Address             solana.PublicKey  `json:"address"` // escrow account (PDA)
	Kind                AssetKind         `json:"kind"`
	Owner               solana.PublicKey  `json:"owner"`
	Heirs               []Heir            `json:"heirs"`
	Mint                *solana.PublicKey `json:"mint,omitempty"` // token records only
	Amount              uint64            `json:"amount"`
	InactivityThreshold time.Duration     `json:"inactivity_threshold"`
	LastActivity        time.Time         `json:"last_activity"`
	Claimed             bool              `json:"claimed"`
}

// ID returns the record's stable identity: its escrow account address.
func (r *InheritanceRecord) ID() string {
	return r.Address.String()
}

// Elapsed returns how long the owner has been inactive as of now.
func (r *InheritanceRecord) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.LastActivity)
}

// PrimaryHeir returns the first heir. For native and token records this is
// the only heir; for multi-heir wallets it is just the first allocation.
func (r *InheritanceRecord) PrimaryHeir() Heir {
	if len(r.Heirs) == 0 {
		return Heir{}
	}
	return r.Heirs[0]
}

// Outcome classifies the result of one dispatch attempt
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeRetryable Outcome = "retryable_failure"
	OutcomeFatal     Outcome = "fatal_failure"
)

// ExecutionResult records what happened when the dispatcher acted on one
// eligible record. A Success is terminal: the record must never be
// re-submitted, even if a later step in the same cycle fails.
type ExecutionResult struct {
	RecordID string           `json:"record_id"`
	Kind     AssetKind        `json:"kind"`
	Outcome  Outcome          `json:"outcome"`
	TxSig    solana.Signature `json:"tx_sig,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

func (res ExecutionResult) String() string {
	switch res.Outcome {
	case OutcomeSuccess:
		return fmt.Sprintf("%s: success (tx %s)", res.RecordID, res.TxSig)
	default:
		return fmt.Sprintf("%s: %s (%s)", res.RecordID, res.Outcome, res.Reason)
	}
}

// CycleReport is the per-cycle snapshot. It is created at the top of a cycle,
// passed through discovery, evaluation and dispatch, and discarded when the
// cycle ends: the ledger is the source of truth, not process memory.
type CycleReport struct {
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration"`
	Discovered  int               `json:"discovered"`
	Eligible    int               `json:"eligible"`
	Executed    int               `json:"executed"`
	Failed      int               `json:"failed"`
	Skipped     int               `json:"skipped"` // funding guard or stop flag
	FundingOK   bool              `json:"funding_ok"`
	Results     []ExecutionResult `json:"results,omitempty"`
}
