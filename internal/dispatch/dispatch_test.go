package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solheir/heirkeeper/internal/notify"
	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/models"
	"github.com/solheir/heirkeeper/pkg/retry"
)

// fakeLedger scripts ledger behavior per call: errors are consumed from the
// front of each queue, nil entries mean success.
type fakeLedger struct {
	mu          sync.Mutex
	balances    map[solana.PublicKey]uint64
	balanceErrs []error
	submitErrs  []error
	confirmErrs []error
	submissions int
	confirms    int
}

func (f *fakeLedger) ListRecords(ctx context.Context, kind models.AssetKind) ([]*models.InheritanceRecord, error) {
	return nil, nil
}

func pop(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (f *fakeLedger) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := pop(&f.balanceErrs); err != nil {
		return 0, err
	}
	return f.balances[account], nil
}

func (f *fakeLedger) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{1}, nil
}

func (f *fakeLedger) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := pop(&f.submitErrs); err != nil {
		return solana.Signature{}, err
	}
	f.submissions++
	var sig solana.Signature
	sig[0] = byte(f.submissions)
	return sig, nil
}

func (f *fakeLedger) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms++
	return pop(&f.confirmErrs)
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *captureNotifier) Publish(ctx context.Context, event notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureNotifier) byType(eventType notify.EventType) []notify.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []notify.Event
	for _, event := range c.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func testLogger() *logging.Logger {
	logger := logging.New("test", logging.ERROR, false)
	return logger
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func nativeRecord(amount uint64) *models.InheritanceRecord {
	return &models.InheritanceRecord{
		Address:             solana.NewWallet().PublicKey(),
		Kind:                models.AssetNativeCoin,
		Owner:               solana.NewWallet().PublicKey(),
		Heirs:               []models.Heir{{Address: solana.NewWallet().PublicKey(), AllocationPercent: 100}},
		Amount:              amount,
		InactivityThreshold: time.Hour,
		LastActivity:        time.Now().Add(-2 * time.Hour),
	}
}

func multiRecord() *models.InheritanceRecord {
	return &models.InheritanceRecord{
		Address: solana.NewWallet().PublicKey(),
		Kind:    models.AssetMultiHeirWallet,
		Owner:   solana.NewWallet().PublicKey(),
		Heirs: []models.Heir{
			{Address: solana.NewWallet().PublicKey(), AllocationPercent: 60},
			{Address: solana.NewWallet().PublicKey(), AllocationPercent: 40},
		},
		Amount:              2_000_000_000,
		InactivityThreshold: time.Hour,
		LastActivity:        time.Now().Add(-2 * time.Hour),
	}
}

func newTestDispatcher(fake *fakeLedger, strategy Strategy, notifier notify.Notifier) *Dispatcher {
	keeper := solana.NewWallet()
	return New(Config{
		Client:    fake,
		ProgramID: solana.NewWallet().PublicKey(),
		Keeper:    keeper.PrivateKey,
		Strategy:  strategy,
		Retry:     fastRetry(),
		Notifier:  notifier,
		Logger:    testLogger(),
	})
}

func TestDirectClaimSuccess(t *testing.T) {
	fake := &fakeLedger{}
	capture := &captureNotifier{}
	d := newTestDispatcher(fake, &DirectClaim{}, capture)

	result := d.Dispatch(context.Background(), nativeRecord(100_000_000))

	if result.Outcome != models.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Outcome, result.Reason)
	}
	if result.TxSig.IsZero() {
		t.Error("success must carry a transaction signature")
	}
	if fake.submissions != 1 {
		t.Errorf("expected exactly 1 submission, got %d", fake.submissions)
	}
	if len(capture.byType(notify.EventExecutionSuccess)) != 1 {
		t.Error("expected one execution_success event")
	}
}

func TestFatalRejectionNotRetried(t *testing.T) {
	fake := &fakeLedger{
		submitErrs: []error{errProtocol("custom program error: OwnerStillActive")},
	}
	d := newTestDispatcher(fake, &DirectClaim{}, nil)

	result := d.Dispatch(context.Background(), nativeRecord(100))

	if result.Outcome != models.OutcomeFatal {
		t.Fatalf("expected fatal, got %s", result.Outcome)
	}
	if fake.submissions != 0 {
		t.Errorf("rejected submission must not count as sent, got %d", fake.submissions)
	}
}

func TestTransientSubmitRetriedThenExhausted(t *testing.T) {
	fake := &fakeLedger{
		submitErrs: []error{
			errProtocol("blockhash not found"),
			errProtocol("blockhash not found"),
			errProtocol("blockhash not found"),
		},
	}
	d := newTestDispatcher(fake, &DirectClaim{}, nil)

	result := d.Dispatch(context.Background(), nativeRecord(100))

	if result.Outcome != models.OutcomeRetryable {
		t.Fatalf("expected retryable failure, got %s", result.Outcome)
	}
	if fake.submissions != 0 {
		t.Errorf("no submission should have landed, got %d", fake.submissions)
	}
}

func TestConfirmTimeoutDoesNotResubmit(t *testing.T) {
	// Submission lands, confirmation times out once, then succeeds. The
	// retry must re-confirm the known signature, never re-send under a
	// fresh blockhash: that is the double-claim guard.
	fake := &fakeLedger{
		confirmErrs: []error{errProtocol("timed out waiting for confirmation")},
	}
	d := newTestDispatcher(fake, &DirectClaim{}, nil)

	result := d.Dispatch(context.Background(), nativeRecord(100))

	if result.Outcome != models.OutcomeSuccess {
		t.Fatalf("expected success after re-confirmation, got %s (%s)", result.Outcome, result.Reason)
	}
	if fake.submissions != 1 {
		t.Errorf("expected exactly 1 submission, got %d", fake.submissions)
	}
	if fake.confirms != 2 {
		t.Errorf("expected 2 confirmation attempts, got %d", fake.confirms)
	}
}

func TestMultiHeirReReadsEscrowBalance(t *testing.T) {
	record := multiRecord()
	fake := &fakeLedger{
		balances: map[solana.PublicKey]uint64{record.Address: 2_000_000_000},
	}
	d := newTestDispatcher(fake, &DirectClaim{}, nil)

	result := d.Dispatch(context.Background(), record)

	if result.Outcome != models.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Outcome, result.Reason)
	}
	if fake.submissions != 1 {
		t.Errorf("expected 1 submission, got %d", fake.submissions)
	}
}

func TestMultiHeirEmptyEscrowIsFatal(t *testing.T) {
	record := multiRecord()
	fake := &fakeLedger{balances: map[solana.PublicKey]uint64{}}
	d := newTestDispatcher(fake, &DirectClaim{}, nil)

	result := d.Dispatch(context.Background(), record)

	if result.Outcome != models.OutcomeFatal {
		t.Fatalf("empty escrow at execution time must be fatal, got %s", result.Outcome)
	}
	if fake.submissions != 0 {
		t.Errorf("no submission should happen for an empty escrow, got %d", fake.submissions)
	}
}

func TestPreparedClaimPublishesPayloadWithoutSubmitting(t *testing.T) {
	fake := &fakeLedger{}
	capture := &captureNotifier{}
	d := newTestDispatcher(fake, &PreparedClaim{}, capture)

	result := d.Dispatch(context.Background(), nativeRecord(100_000_000))

	if result.Outcome != models.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Outcome, result.Reason)
	}
	if !result.TxSig.IsZero() {
		t.Error("prepared claim must not report a submitted signature")
	}
	if fake.submissions != 0 {
		t.Errorf("prepared claim must not submit, got %d submissions", fake.submissions)
	}

	prepared := capture.byType(notify.EventClaimPrepared)
	if len(prepared) != 1 {
		t.Fatalf("expected one claim_prepared event, got %d", len(prepared))
	}
	if prepared[0].Detail == "" {
		t.Error("claim_prepared event must carry the serialized transaction")
	}
}

func TestStrategyFor(t *testing.T) {
	if s, err := StrategyFor(""); err != nil || s.Name() != "direct" {
		t.Errorf("empty mode should default to direct, got %v err=%v", s, err)
	}
	if s, err := StrategyFor("prepare"); err != nil || s.Name() != "prepare" {
		t.Errorf("prepare mode not resolved, got %v err=%v", s, err)
	}
	if _, err := StrategyFor("custodial"); err == nil {
		t.Error("unknown mode must error")
	}
}

type errProtocol string

func (e errProtocol) Error() string { return string(e) }
