package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/solheir/heirkeeper/internal/ledger"
)

var checkBalance bool

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create or inspect the keeper operating keypair",
	Long: `Keygen loads the keeper keypair, generating and persisting one if the
file does not exist, and prints the operating account address with funding
instructions.

Example:
  heirkeeper keygen
  heirkeeper keygen --check-balance --network devnet`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().BoolVar(&checkBalance, "check-balance", false, "also query the account's current balance")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	keypair, err := loadKeypair()
	if err != nil {
		return err
	}
	fmt.Print(keypair.FundingPrompt(network))

	if checkBalance {
		// Balance reads need no program id; use a zero id client.
		client := ledger.NewRPCClient(endpoint(), solana.PublicKey{})
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		balance, err := client.GetBalance(ctx, keypair.PublicKey())
		if err != nil {
			return fmt.Errorf("failed to query balance: %w", err)
		}
		fmt.Printf("Current balance: %d lamports (%.4f SOL)\n",
			balance, float64(balance)/float64(solana.LAMPORTS_PER_SOL))
	}
	return nil
}
