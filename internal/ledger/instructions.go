package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solheir/heirkeeper/pkg/models"
)

// Instruction discriminators of the external program. The keeper only ever
// calls the claim/execute surface; record creation and activity refresh are
// owner-driven and outside this process.
var (
	claimNativeDiscriminator  = [8]byte{0x99, 0xae, 0xbf, 0x9a, 0x48, 0x32, 0xc5, 0xee}
	claimTokenDiscriminator   = [8]byte{0x6d, 0x9c, 0x8d, 0x8b, 0x0e, 0xe3, 0xd7, 0xfb}
	executeMultiDiscriminator = [8]byte{0x71, 0xdb, 0x33, 0x23, 0x98, 0x64, 0x60, 0x98}
)

// ClaimNativeInstruction builds the claim_native_inheritance call for a
// single-heir native-coin record. heirSigns marks the heir account as a
// required signer; whether the program demands that depends on its
// deployment-configured custody rule.
func ClaimNativeInstruction(programID solana.PublicKey, record *models.InheritanceRecord, heirSigns bool) (solana.Instruction, error) {
	if record.Kind != models.AssetNativeCoin {
		return nil, fmt.Errorf("record %s is %s, not native", record.ID(), record.Kind)
	}
	heir := record.PrimaryHeir().Address

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(record.Address, true, false),
		solana.NewAccountMeta(record.Owner, true, false),
		solana.NewAccountMeta(heir, true, heirSigns),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(programID, accounts, claimNativeDiscriminator[:]), nil
}

// ClaimTokenInstruction builds the claim_token_inheritance call for a
// single-heir fungible-token record.
func ClaimTokenInstruction(programID solana.PublicKey, record *models.InheritanceRecord, heirSigns bool) (solana.Instruction, error) {
	if record.Kind != models.AssetFungibleToken {
		return nil, fmt.Errorf("record %s is %s, not token", record.ID(), record.Kind)
	}
	if record.Mint == nil {
		return nil, fmt.Errorf("record %s has no mint", record.ID())
	}
	heir := record.PrimaryHeir().Address

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(record.Address, true, false),
		solana.NewAccountMeta(record.Owner, false, false),
		solana.NewAccountMeta(heir, true, heirSigns),
		solana.NewAccountMeta(*record.Mint, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(programID, accounts, claimTokenDiscriminator[:]), nil
}

// ExecuteMultiHeirInstruction builds the execute_multi_heir_inheritance call.
// The program fans the wallet balance out per allocation; each heir account
// is passed writable so the program can credit it. caller is the neutral
// keeper identity paying fees and signing.
func ExecuteMultiHeirInstruction(programID solana.PublicKey, record *models.InheritanceRecord, caller solana.PublicKey) (solana.Instruction, error) {
	if record.Kind != models.AssetMultiHeirWallet {
		return nil, fmt.Errorf("record %s is %s, not multi-heir", record.ID(), record.Kind)
	}
	if len(record.Heirs) == 0 {
		return nil, fmt.Errorf("record %s has no heirs", record.ID())
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(record.Address, true, false),
		solana.NewAccountMeta(caller, true, true),
	}
	for _, heir := range record.Heirs {
		accounts = append(accounts, solana.NewAccountMeta(heir.Address, true, false))
	}
	accounts = append(accounts, solana.NewAccountMeta(solana.SystemProgramID, false, false))

	return solana.NewInstruction(programID, accounts, executeMultiDiscriminator[:]), nil
}
