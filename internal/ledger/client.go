// Package ledger is the keeper's thin abstraction over the Solana RPC
// surface: kind-specific record listing, balance reads, and transaction
// submission with confirmation. Everything else in the engine consumes the
// Client interface so tests can run against a fake ledger.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solheir/heirkeeper/pkg/models"
)

// Client is the capability the engine consumes
type Client interface {
	// ListRecords returns every record of one asset kind, decoded.
	// Individual accounts that fail to decode are skipped, not fatal.
	ListRecords(ctx context.Context, kind models.AssetKind) ([]*models.InheritanceRecord, error)

	// GetBalance returns the lamport balance of an account
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)

	// LatestBlockhash returns a recent blockhash for transaction building
	LatestBlockhash(ctx context.Context) (solana.Hash, error)

	// SubmitTransaction sends a signed transaction
	SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// ConfirmTransaction blocks until the signature reaches finalized
	// commitment, the transaction errors, or the wait times out
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
}

// RPCClient implements Client against a Solana JSON-RPC endpoint
type RPCClient struct {
	rpc        *rpc.Client
	programID  solana.PublicKey
	commitment rpc.CommitmentType

	confirmTimeout time.Duration
	confirmPoll    time.Duration
}

// NewRPCClient creates a client for the given endpoint and ledger program
func NewRPCClient(endpoint string, programID solana.PublicKey) *RPCClient {
	return &RPCClient{
		rpc:            rpc.New(endpoint),
		programID:      programID,
		commitment:     rpc.CommitmentFinalized,
		confirmTimeout: 90 * time.Second,
		confirmPoll:    3 * time.Second,
	}
}

// EndpointFor maps a network selector to an RPC URL. Anything that is not a
// known network name is treated as a custom endpoint URL.
func EndpointFor(network string) string {
	switch network {
	case "devnet":
		return rpc.DevNet_RPC
	case "testnet":
		return rpc.TestNet_RPC
	case "mainnet", "mainnet-beta":
		return rpc.MainNetBeta_RPC
	default:
		return network
	}
}

// ListRecords queries all program accounts of one kind via a discriminator
// memcmp filter and decodes them.
func (c *RPCClient) ListRecords(ctx context.Context, kind models.AssetKind) ([]*models.InheritanceRecord, error) {
	disc, err := discriminatorFor(kind)
	if err != nil {
		return nil, err
	}

	out, err := c.rpc.GetProgramAccountsWithOpts(ctx, c.programID, &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  solana.Base58(disc[:]),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", kind, err)
	}

	records := make([]*models.InheritanceRecord, 0, len(out))
	for _, keyed := range out {
		if keyed == nil || keyed.Account == nil {
			continue
		}
		record, err := DecodeRecord(kind, keyed.Pubkey, keyed.Account.Data.GetBinary(), keyed.Account.Lamports)
		if err != nil {
			// One malformed account must not poison the listing.
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *RPCClient) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, account, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", account, err)
	}
	return out.Value, nil
}

func (c *RPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

func (c *RPCClient) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to submit transaction: %w", err)
	}
	return sig, nil
}

// ConfirmTransaction polls signature statuses until finalized. A transaction
// that landed with an on-chain error is surfaced as an error containing the
// program's message so the retry classifier can bucket it.
func (c *RPCClient) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(c.confirmTimeout)
	ticker := time.NewTicker(c.confirmPoll)
	defer ticker.Stop()

	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on chain: %v", sig, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for confirmation of %s", sig)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
