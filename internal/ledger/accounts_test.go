package ledger

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solheir/heirkeeper/pkg/models"
)

func TestDecodeNativeRecord(t *testing.T) {
	original := &models.InheritanceRecord{
		Address:             solana.NewWallet().PublicKey(),
		Kind:                models.AssetNativeCoin,
		Owner:               solana.NewWallet().PublicKey(),
		Heirs:               []models.Heir{{Address: solana.NewWallet().PublicKey(), AllocationPercent: 100}},
		Amount:              100_000_000,
		InactivityThreshold: 172800 * time.Second,
		LastActivity:        time.Unix(1756600000, 0).UTC(),
	}

	data, err := EncodeRecord(original)
	require.NoError(t, err)

	decoded, err := DecodeRecord(models.AssetNativeCoin, original.Address, data, 0)
	require.NoError(t, err)

	assert.Equal(t, original.Owner, decoded.Owner)
	assert.Equal(t, original.Heirs, decoded.Heirs)
	assert.Equal(t, original.Amount, decoded.Amount)
	assert.Equal(t, original.InactivityThreshold, decoded.InactivityThreshold)
	assert.Equal(t, original.LastActivity, decoded.LastActivity)
	assert.False(t, decoded.Claimed)
}

func TestDecodeMultiHeirWalletUsesLamportsAsAmount(t *testing.T) {
	original := &models.InheritanceRecord{
		Address: solana.NewWallet().PublicKey(),
		Kind:    models.AssetMultiHeirWallet,
		Owner:   solana.NewWallet().PublicKey(),
		Heirs: []models.Heir{
			{Address: solana.NewWallet().PublicKey(), AllocationPercent: 60},
			{Address: solana.NewWallet().PublicKey(), AllocationPercent: 40},
		},
		InactivityThreshold: time.Hour,
		LastActivity:        time.Unix(1756600000, 0).UTC(),
	}

	data, err := EncodeRecord(original)
	require.NoError(t, err)

	// The stored layout carries no amount; the account balance at read
	// time is authoritative.
	decoded, err := DecodeRecord(models.AssetMultiHeirWallet, original.Address, data, 2_000_000_000)
	require.NoError(t, err)

	assert.Equal(t, uint64(2_000_000_000), decoded.Amount)
	assert.Equal(t, original.Heirs, decoded.Heirs)
}

func TestDecodeRejectsWrongDiscriminator(t *testing.T) {
	record := &models.InheritanceRecord{
		Address:             solana.NewWallet().PublicKey(),
		Kind:                models.AssetNativeCoin,
		Owner:               solana.NewWallet().PublicKey(),
		Heirs:               []models.Heir{{Address: solana.NewWallet().PublicKey(), AllocationPercent: 100}},
		Amount:              1,
		InactivityThreshold: time.Hour,
		LastActivity:        time.Unix(1756600000, 0),
	}
	data, err := EncodeRecord(record)
	require.NoError(t, err)

	_, err = DecodeRecord(models.AssetFungibleToken, record.Address, data, 0)
	assert.Error(t, err, "native data must not decode as a token record")
}

func TestDecodeRejectsShortData(t *testing.T) {
	_, err := DecodeRecord(models.AssetNativeCoin, solana.NewWallet().PublicKey(), []byte{1, 2, 3}, 0)
	assert.Error(t, err)
}

func TestRecordAddressKindSeeds(t *testing.T) {
	program := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	heir := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	native, err := RecordAddress(program, models.AssetNativeCoin, owner, heir, nil)
	require.NoError(t, err)

	token, err := RecordAddress(program, models.AssetFungibleToken, owner, heir, &mint)
	require.NoError(t, err)

	multi, err := RecordAddress(program, models.AssetMultiHeirWallet, owner, heir, nil)
	require.NoError(t, err)

	assert.NotEqual(t, native, token)
	assert.NotEqual(t, native, multi)
	assert.NotEqual(t, token, multi)

	// Token records require a mint in the seed tuple.
	_, err = RecordAddress(program, models.AssetFungibleToken, owner, heir, nil)
	assert.Error(t, err)

	// Derivation is deterministic.
	again, err := RecordAddress(program, models.AssetNativeCoin, owner, heir, nil)
	require.NoError(t, err)
	assert.Equal(t, native, again)
}
