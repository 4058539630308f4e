package keystore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keeper-keypair.json")

	created, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if !created.Generated {
		t.Error("first load should generate a keypair")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("keypair file not persisted: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("keypair file should be 0600, got %v", info.Mode().Perm())
	}

	reloaded, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Generated {
		t.Error("second load must not regenerate")
	}
	if !reloaded.PublicKey().Equals(created.PublicKey()) {
		t.Error("reloaded keypair differs from the generated one")
	}
}

func TestKeygenFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keeper-keypair.json")
	if _, err := LoadOrCreate(path); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Solana CLI array-of-bytes format, not base64.
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "[") || !strings.HasSuffix(content, "]") {
		t.Errorf("expected a JSON byte array, got %q", content)
	}
}

func TestFundingPromptMentionsAirdropOnDevnet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keeper-keypair.json")
	keypair, err := LoadOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}

	prompt := keypair.FundingPrompt("devnet")
	if !strings.Contains(prompt, keypair.PublicKey().String()) {
		t.Error("prompt should name the operating account")
	}
	if !strings.Contains(prompt, "airdrop") {
		t.Error("devnet prompt should suggest an airdrop")
	}

	mainnet := keypair.FundingPrompt("mainnet-beta")
	if strings.Contains(mainnet, "airdrop") {
		t.Error("mainnet prompt must not suggest an airdrop")
	}
}
