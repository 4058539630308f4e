// Package keystore manages the keeper's operating identity: an ed25519
// keypair stored in the Solana CLI array-of-bytes JSON format. If the file
// is missing, a fresh keypair is generated and persisted, and the operator
// is told to fund it before the keeper can pay fees.
package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

// Keypair is the keeper identity loaded from or persisted to disk
type Keypair struct {
	PrivateKey solana.PrivateKey
	Path       string
	Generated  bool // true when this run created the file
}

// PublicKey returns the keeper's operating account address
func (k *Keypair) PublicKey() solana.PublicKey {
	return k.PrivateKey.PublicKey()
}

// DefaultPath returns $HOME/.heirkeeper/keeper-keypair.json
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "keeper-keypair.json"
	}
	return filepath.Join(home, ".heirkeeper", "keeper-keypair.json")
}

// LoadOrCreate loads the keypair at path, generating and persisting one if
// the file does not exist.
func LoadOrCreate(path string) (*Keypair, error) {
	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
		}
		return &Keypair{PrivateKey: key, Path: path}, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat keypair %s: %w", path, err)
	}

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	if err := write(path, key); err != nil {
		return nil, err
	}
	return &Keypair{PrivateKey: key, Path: path, Generated: true}, nil
}

// write persists the key in the Solana CLI format: a JSON array of the 64
// secret-key bytes, mode 0600.
func write(path string, key solana.PrivateKey) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create keypair directory %s: %w", dir, err)
	}

	raw := make([]int, len(key))
	for i, b := range key {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode keypair: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write keypair %s: %w", path, err)
	}
	return nil
}

// FundingPrompt returns the operator-facing message printed when a fresh
// keypair was generated and has no balance yet.
func (k *Keypair) FundingPrompt(network string) string {
	msg := fmt.Sprintf("Keeper operating account: %s\n", k.PublicKey())
	msg += fmt.Sprintf("Keypair file: %s\n", k.Path)
	if k.Generated {
		msg += "A new keypair was generated. Fund it before the keeper can execute:\n"
	} else {
		msg += "Fund this account if its balance is below the fee floor:\n"
	}
	if network == "devnet" || network == "testnet" {
		msg += fmt.Sprintf("  solana airdrop 1 %s --url %s\n", k.PublicKey(), network)
	} else {
		msg += fmt.Sprintf("  transfer SOL to %s\n", k.PublicKey())
	}
	return msg
}
