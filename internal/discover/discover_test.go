package discover

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/models"
	"github.com/solheir/heirkeeper/pkg/retry"
)

type fakeLedger struct {
	records  map[models.AssetKind][]*models.InheritanceRecord
	listErrs map[models.AssetKind]error
}

func (f *fakeLedger) ListRecords(ctx context.Context, kind models.AssetKind) ([]*models.InheritanceRecord, error) {
	if err := f.listErrs[kind]; err != nil {
		return nil, err
	}
	return f.records[kind], nil
}

func (f *fakeLedger) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return 0, nil
}

func (f *fakeLedger) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (f *fakeLedger) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, errors.New("not implemented")
}

func (f *fakeLedger) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	return errors.New("not implemented")
}

func record(kind models.AssetKind, claimed bool) *models.InheritanceRecord {
	return &models.InheritanceRecord{
		Address:             solana.NewWallet().PublicKey(),
		Kind:                kind,
		Owner:               solana.NewWallet().PublicKey(),
		Heirs:               []models.Heir{{Address: solana.NewWallet().PublicKey(), AllocationPercent: 100}},
		Amount:              1_000,
		InactivityThreshold: time.Hour,
		LastActivity:        time.Now(),
		Claimed:             claimed,
	}
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func quietLogger() *logging.Logger {
	return logging.New("test", logging.FATAL, false)
}

func TestDiscoverAllKinds(t *testing.T) {
	fake := &fakeLedger{
		records: map[models.AssetKind][]*models.InheritanceRecord{
			models.AssetNativeCoin:      {record(models.AssetNativeCoin, false)},
			models.AssetFungibleToken:   {record(models.AssetFungibleToken, false)},
			models.AssetMultiHeirWallet: {record(models.AssetMultiHeirWallet, false)},
		},
	}
	d := New(fake, fastRetry(), quietLogger())

	records, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestClaimedRecordsFilteredOut(t *testing.T) {
	fake := &fakeLedger{
		records: map[models.AssetKind][]*models.InheritanceRecord{
			models.AssetNativeCoin: {
				record(models.AssetNativeCoin, false),
				record(models.AssetNativeCoin, true),
				record(models.AssetNativeCoin, true),
			},
		},
	}
	d := New(fake, fastRetry(), quietLogger())

	records, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("claimed records must be filtered, got %d records", len(records))
	}
	if records[0].Claimed {
		t.Error("a claimed record reached downstream")
	}
}

func TestOneKindFailingDegrades(t *testing.T) {
	fake := &fakeLedger{
		records: map[models.AssetKind][]*models.InheritanceRecord{
			models.AssetNativeCoin:      {record(models.AssetNativeCoin, false)},
			models.AssetMultiHeirWallet: {record(models.AssetMultiHeirWallet, false)},
		},
		listErrs: map[models.AssetKind]error{
			models.AssetFungibleToken: errors.New("503 service unavailable"),
		},
	}
	d := New(fake, fastRetry(), quietLogger())

	records, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("one kind failing must not abort discovery: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected the two healthy kinds' records, got %d", len(records))
	}
}

func TestAllKindsFailingIsCycleError(t *testing.T) {
	failure := errors.New("connection refused")
	fake := &fakeLedger{
		listErrs: map[models.AssetKind]error{
			models.AssetNativeCoin:      failure,
			models.AssetFungibleToken:   failure,
			models.AssetMultiHeirWallet: failure,
		},
	}
	d := New(fake, fastRetry(), quietLogger())

	if _, err := d.Discover(context.Background()); err == nil {
		t.Error("total discovery failure must surface as an error")
	}
}
