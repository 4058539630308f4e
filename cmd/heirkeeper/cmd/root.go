package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/solheir/heirkeeper/internal/keystore"
	"github.com/solheir/heirkeeper/internal/ledger"
)

var (
	cfgFile      string
	network      string
	rpcURL       string
	programIDStr string
	keypairPath  string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "heirkeeper",
	Short: "Keeper daemon for on-chain inheritance records",
	Long: `heirkeeper monitors inheritance records held by the ledger program,
evaluates owner-inactivity eligibility, and submits the claim/execute
transactions that move escrowed assets to heirs.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.heirkeeper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&network, "network", "devnet", "network selector: devnet, testnet, mainnet-beta, or a custom RPC URL")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "explicit RPC endpoint (overrides --network)")
	rootCmd.PersistentFlags().StringVar(&programIDStr, "program-id", "", "ledger program id (base58)")
	rootCmd.PersistentFlags().StringVar(&keypairPath, "keypair", "", "keeper keypair file (default is $HOME/.heirkeeper/keeper-keypair.json)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".heirkeeper"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("heirkeeper")
	viper.AutomaticEnv()
	viper.BindEnv("rpc_url", "HEIRKEEPER_RPC_URL")
	viper.BindEnv("program_id", "HEIRKEEPER_PROGRAM_ID")
	viper.BindEnv("webhook_url", "HEIRKEEPER_WEBHOOK_URL")

	if err := viper.ReadInConfig(); err == nil {
		if network == "devnet" && viper.GetString("network") != "" {
			network = viper.GetString("network")
		}
		if rpcURL == "" {
			rpcURL = viper.GetString("rpc_url")
		}
		if programIDStr == "" {
			programIDStr = viper.GetString("program_id")
		}
		if keypairPath == "" {
			keypairPath = viper.GetString("keypair")
		}
	}
	if rpcURL == "" && viper.GetString("rpc_url") != "" {
		rpcURL = viper.GetString("rpc_url")
	}
	if programIDStr == "" && viper.GetString("program_id") != "" {
		programIDStr = viper.GetString("program_id")
	}
}

// endpoint resolves the RPC URL from --rpc-url or the network selector
func endpoint() string {
	if rpcURL != "" {
		return rpcURL
	}
	return ledger.EndpointFor(network)
}

// programID parses the configured ledger program id
func programID() (solana.PublicKey, error) {
	if programIDStr == "" {
		return solana.PublicKey{}, fmt.Errorf("program id is required (--program-id, config, or HEIRKEEPER_PROGRAM_ID)")
	}
	id, err := solana.PublicKeyFromBase58(programIDStr)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id %q: %w", programIDStr, err)
	}
	return id, nil
}

// loadKeypair loads or creates the keeper identity
func loadKeypair() (*keystore.Keypair, error) {
	return keystore.LoadOrCreate(keypairPath)
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
