package dispatch

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solheir/heirkeeper/internal/ledger"
	"github.com/solheir/heirkeeper/internal/notify"
	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/models"
)

// Strategy is the claim custody pattern for single-heir records. The ledger
// program's deployment decides whether the heir must sign their own claim or
// a neutral caller may submit it; both patterns live behind this interface
// and the operator selects one with the claim_mode setting.
type Strategy interface {
	Name() string
	Claim(ctx context.Context, d *Dispatcher, record *models.InheritanceRecord) (solana.Signature, error)
}

// StrategyFor maps a claim_mode setting to a Strategy
func StrategyFor(mode string) (Strategy, error) {
	switch mode {
	case "", "direct":
		return &DirectClaim{}, nil
	case "prepare":
		return &PreparedClaim{}, nil
	default:
		return nil, fmt.Errorf("unknown claim mode %q (want direct or prepare)", mode)
	}
}

// DirectClaim submits the claim as a neutral caller: the keeper pays fees,
// signs, and the program credits the heir without requiring their signature.
type DirectClaim struct{}

func (s *DirectClaim) Name() string { return "direct" }

func (s *DirectClaim) Claim(ctx context.Context, d *Dispatcher, record *models.InheritanceRecord) (solana.Signature, error) {
	keeperKey := d.keeper.PublicKey()
	return d.submitOnce(ctx, "claim_"+string(record.Kind), func(blockhash solana.Hash) (*solana.Transaction, error) {
		ix, err := claimInstruction(d.programID, record, false)
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

// PreparedClaim is self-custody: the heir must sign their own claim. The
// keeper builds the transaction, co-signs as fee payer, and publishes the
// partially signed payload for the heir to complete. No signature is
// returned because nothing was submitted; the record stays unclaimed on the
// ledger until the heir acts, and will be re-prepared next cycle.
type PreparedClaim struct{}

func (s *PreparedClaim) Name() string { return "prepare" }

func (s *PreparedClaim) Claim(ctx context.Context, d *Dispatcher, record *models.InheritanceRecord) (solana.Signature, error) {
	keeperKey := d.keeper.PublicKey()

	blockhash, err := d.client.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	ix, err := claimInstruction(d.programID, record, true)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, blockhash, solana.TransactionPayer(keeperKey))
	if err != nil {
		return solana.Signature{}, err
	}
	if _, err := tx.PartialSign(d.signerFor); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to co-sign fee payer: %w", err)
	}

	payload, err := tx.ToBase64()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to serialize prepared claim: %w", err)
	}

	if d.notifier != nil {
		event := notify.NewEvent(notify.EventClaimPrepared, record)
		event.Detail = payload
		d.notifier.Publish(ctx, event)
	}
	d.logger.Info("claim prepared, awaiting heir signature", logging.Fields{
		"record": record.ID(),
		"heir":   record.PrimaryHeir().Address.String(),
	})
	return solana.Signature{}, nil
}

func claimInstruction(programID solana.PublicKey, record *models.InheritanceRecord, heirSigns bool) (solana.Instruction, error) {
	switch record.Kind {
	case models.AssetNativeCoin:
		return ledger.ClaimNativeInstruction(programID, record, heirSigns)
	case models.AssetFungibleToken:
		return ledger.ClaimTokenInstruction(programID, record, heirSigns)
	default:
		return nil, fmt.Errorf("no claim instruction for kind %q", record.Kind)
	}
}
