package ledger

import (
	"bytes"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/solheir/heirkeeper/pkg/models"
)

// Anchor-style 8-byte account discriminators, used both to memcmp-filter
// getProgramAccounts queries and to sanity-check decoded data.
var (
	nativeRecordDiscriminator = [8]byte{0x38, 0xd1, 0x36, 0x2d, 0xc3, 0xea, 0xf9, 0xf1}
	tokenRecordDiscriminator  = [8]byte{0x58, 0x95, 0xf6, 0x63, 0x10, 0x88, 0x30, 0xad}
	multiWalletDiscriminator  = [8]byte{0xdd, 0x4c, 0x09, 0x5a, 0x17, 0xff, 0x12, 0x3e}
)

// PDA seed prefixes, fixed by the external ledger program
const (
	seedNativeHeir  = "native_heir"
	seedTokenHeir   = "token_heir"
	seedMultiWallet = "multi_wallet"
)

// nativeHeirRecord mirrors the program's single-heir native escrow layout
type nativeHeirRecord struct {
	Owner               solana.PublicKey
	Heir                solana.PublicKey
	Amount              uint64
	InactivityThreshold int64 // seconds
	LastActivity        int64 // unix seconds
	Claimed             bool
	Bump                uint8
}

// tokenHeirRecord mirrors the single-heir SPL token escrow layout
type tokenHeirRecord struct {
	Owner               solana.PublicKey
	Heir                solana.PublicKey
	Mint                solana.PublicKey
	Amount              uint64
	InactivityThreshold int64
	LastActivity        int64
	Claimed             bool
	Bump                uint8
}

// heirShare is one (heir, percent) allocation inside a multi-heir wallet
type heirShare struct {
	Heir         solana.PublicKey
	SharePercent uint8
}

// multiHeirWallet mirrors the multi-heir smart wallet layout. Its
// distributable amount is the account's lamport balance, not a stored field.
type multiHeirWallet struct {
	Owner               solana.PublicKey
	Heirs               []heirShare
	InactivityThreshold int64
	LastActivity        int64
	Executed            bool
	Bump                uint8
}

func discriminatorFor(kind models.AssetKind) ([8]byte, error) {
	switch kind {
	case models.AssetNativeCoin:
		return nativeRecordDiscriminator, nil
	case models.AssetFungibleToken:
		return tokenRecordDiscriminator, nil
	case models.AssetMultiHeirWallet:
		return multiWalletDiscriminator, nil
	default:
		return [8]byte{}, fmt.Errorf("unknown asset kind %q", kind)
	}
}

// DecodeRecord decodes raw account data for the given kind into the keeper's
// domain model. address is the escrow account, lamports its current balance
// (the authoritative amount for multi-heir wallets).
func DecodeRecord(kind models.AssetKind, address solana.PublicKey, data []byte, lamports uint64) (*models.InheritanceRecord, error) {
	disc, err := discriminatorFor(kind)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("account %s: data too short (%d bytes)", address, len(data))
	}
	for i := 0; i < 8; i++ {
		if data[i] != disc[i] {
			return nil, fmt.Errorf("account %s: discriminator mismatch for kind %s", address, kind)
		}
	}

	dec := bin.NewBorshDecoder(data[8:])

	switch kind {
	case models.AssetNativeCoin:
		var raw nativeHeirRecord
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("account %s: invalid account data: %w", address, err)
		}
		return &models.InheritanceRecord{
			Address:             address,
			Kind:                kind,
			Owner:               raw.Owner,
			Heirs:               []models.Heir{{Address: raw.Heir, AllocationPercent: 100}},
			Amount:              raw.Amount,
			InactivityThreshold: time.Duration(raw.InactivityThreshold) * time.Second,
			LastActivity:        time.Unix(raw.LastActivity, 0).UTC(),
			Claimed:             raw.Claimed,
		}, nil

	case models.AssetFungibleToken:
		var raw tokenHeirRecord
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("account %s: invalid account data: %w", address, err)
		}
		mint := raw.Mint
		return &models.InheritanceRecord{
			Address:             address,
			Kind:                kind,
			Owner:               raw.Owner,
			Heirs:               []models.Heir{{Address: raw.Heir, AllocationPercent: 100}},
			Mint:                &mint,
			Amount:              raw.Amount,
			InactivityThreshold: time.Duration(raw.InactivityThreshold) * time.Second,
			LastActivity:        time.Unix(raw.LastActivity, 0).UTC(),
			Claimed:             raw.Claimed,
		}, nil

	case models.AssetMultiHeirWallet:
		var raw multiHeirWallet
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("account %s: invalid account data: %w", address, err)
		}
		heirs := make([]models.Heir, 0, len(raw.Heirs))
		for _, share := range raw.Heirs {
			heirs = append(heirs, models.Heir{Address: share.Heir, AllocationPercent: share.SharePercent})
		}
		return &models.InheritanceRecord{
			Address:             address,
			Kind:                kind,
			Owner:               raw.Owner,
			Heirs:               heirs,
			Amount:              lamports,
			InactivityThreshold: time.Duration(raw.InactivityThreshold) * time.Second,
			LastActivity:        time.Unix(raw.LastActivity, 0).UTC(),
			Claimed:             raw.Executed,
		}, nil

	default:
		return nil, fmt.Errorf("unknown asset kind %q", kind)
	}
}

// EncodeRecord builds raw account bytes for a record. Used by tests and by
// the records command's offline fixtures; the keeper itself never writes
// account data.
func EncodeRecord(record *models.InheritanceRecord) ([]byte, error) {
	disc, err := discriminatorFor(record.Kind)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(disc[:])
	enc := bin.NewBorshEncoder(&buf)

	switch record.Kind {
	case models.AssetNativeCoin:
		raw := nativeHeirRecord{
			Owner:               record.Owner,
			Heir:                record.PrimaryHeir().Address,
			Amount:              record.Amount,
			InactivityThreshold: int64(record.InactivityThreshold / time.Second),
			LastActivity:        record.LastActivity.Unix(),
			Claimed:             record.Claimed,
		}
		if err := enc.Encode(raw); err != nil {
			return nil, err
		}
	case models.AssetFungibleToken:
		raw := tokenHeirRecord{
			Owner:               record.Owner,
			Heir:                record.PrimaryHeir().Address,
			Amount:              record.Amount,
			InactivityThreshold: int64(record.InactivityThreshold / time.Second),
			LastActivity:        record.LastActivity.Unix(),
			Claimed:             record.Claimed,
		}
		if record.Mint != nil {
			raw.Mint = *record.Mint
		}
		if err := enc.Encode(raw); err != nil {
			return nil, err
		}
	case models.AssetMultiHeirWallet:
		shares := make([]heirShare, 0, len(record.Heirs))
		for _, heir := range record.Heirs {
			shares = append(shares, heirShare{Heir: heir.Address, SharePercent: heir.AllocationPercent})
		}
		raw := multiHeirWallet{
			Owner:               record.Owner,
			Heirs:               shares,
			InactivityThreshold: int64(record.InactivityThreshold / time.Second),
			LastActivity:        record.LastActivity.Unix(),
			Executed:            record.Claimed,
		}
		if err := enc.Encode(raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown asset kind %q", record.Kind)
	}

	return buf.Bytes(), nil
}

// RecordAddress derives the escrow PDA for a record, keyed (owner, heir) for
// single-heir kinds, (owner, heir, mint) for tokens and (owner) for
// multi-heir wallets.
func RecordAddress(programID solana.PublicKey, kind models.AssetKind, owner, heir solana.PublicKey, mint *solana.PublicKey) (solana.PublicKey, error) {
	var seeds [][]byte
	switch kind {
	case models.AssetNativeCoin:
		seeds = [][]byte{[]byte(seedNativeHeir), owner.Bytes(), heir.Bytes()}
	case models.AssetFungibleToken:
		if mint == nil {
			return solana.PublicKey{}, fmt.Errorf("token record address requires a mint")
		}
		seeds = [][]byte{[]byte(seedTokenHeir), owner.Bytes(), heir.Bytes(), mint.Bytes()}
	case models.AssetMultiHeirWallet:
		seeds = [][]byte{[]byte(seedMultiWallet), owner.Bytes()}
	default:
		return solana.PublicKey{}, fmt.Errorf("unknown asset kind %q", kind)
	}

	addr, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive %s record address: %w", kind, err)
	}
	return addr, nil
}
