package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Multicall3Address().Hex() != DefaultMulticall3 {
		t.Errorf("Multicall3 = %s, want %s", cfg.Multicall3Address().Hex(), DefaultMulticall3)
	}
	if cfg.BatchMode != BatchModeMulticall {
		t.Errorf("BatchMode = %q, want multicall", cfg.BatchMode)
	}
	if len(cfg.Chains) != 12 {
		t.Errorf("len(Chains) = %d, want 12", len(cfg.Chains))
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
batch_mode: direct
rpc_timeout: 5s
directory:
  base_url: http://localhost:8080/
chains:
  mainnet:
    rpc_url: http://localhost:8545
  anvil:
    id: 31337
    rpc_url: http://127.0.0.1:8545
feeds:
  anvil:
    - base: eth
      quote: usd
      proxy: "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
      decimals: 8
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BatchMode != BatchModeDirect {
		t.Errorf("BatchMode = %q, want direct", cfg.BatchMode)
	}
	if cfg.RPCTimeout != 5*time.Second {
		t.Errorf("RPCTimeout = %s, want 5s", cfg.RPCTimeout)
	}
	if cfg.Directory.BaseURL != "http://localhost:8080" {
		t.Errorf("Directory.BaseURL = %q", cfg.Directory.BaseURL)
	}
	if mainnet := cfg.Chains["mainnet"]; mainnet.ID != 1 || mainnet.RPCURL != "http://localhost:8545" || mainnet.Directory != "mainnet" {
		t.Errorf("mainnet = %+v, want id and directory kept, rpc_url overridden", mainnet)
	}
	if cfg.Chains["anvil"].ID != 31337 {
		t.Errorf("anvil = %+v", cfg.Chains["anvil"])
	}

	feeds, err := cfg.StaticFeeds("anvil")
	if err != nil {
		t.Fatalf("StaticFeeds() error = %v", err)
	}
	if len(feeds) != 1 || feeds[0].Name != "ETH / USD" || feeds[0].Decimals != 8 {
		t.Errorf("StaticFeeds() = %+v", feeds)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad batch mode", "batch_mode: sideways\n"},
		{"bad multicall address", "multicall3: not-an-address\n"},
		{"chain without id", "chains:\n  newchain:\n    rpc_url: http://x\n"},
		{"feed without proxy", "feeds:\n  mainnet:\n    - base: ETH\n      quote: USD\n"},
		{"not yaml", "chains: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Errorf("Load() error = %v, want *config.Error", err)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		var cfgErr *Error
		if !errors.As(err, &cfgErr) {
			t.Errorf("Load() error = %v, want *config.Error", err)
		}
	})
}

func TestConfig_Chain(t *testing.T) {
	cfg := Default()

	tests := []struct {
		input    string
		wantName string
		wantID   uint64
		wantErr  bool
	}{
		{input: "mainnet", wantName: "mainnet", wantID: 1},
		{input: "Polygon", wantName: "polygon", wantID: 137},
		{input: "42161", wantName: "arbitrum", wantID: 42161},
		{input: "solana", wantErr: true},
		{input: "999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			chain, _, err := cfg.Chain(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Chain(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				var cfgErr *Error
				if !errors.As(err, &cfgErr) {
					t.Errorf("error %T is not *config.Error", err)
				}
				return
			}
			if chain.Name != tt.wantName || chain.ID != tt.wantID {
				t.Errorf("Chain(%q) = %+v", tt.input, chain)
			}
		})
	}
}

func TestConfig_Chain_Selector(t *testing.T) {
	chain, _, err := Default().Chain("mainnet")
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	if chain.Selector == 0 || chain.DisplayName == "" {
		t.Errorf("mainnet = %+v, want selector and display name from the chain registry", chain)
	}
}

func TestConfig_RPCURL(t *testing.T) {
	cfg := Default()

	got, err := cfg.RPCURL("mainnet", "abc123")
	if err != nil {
		t.Fatalf("RPCURL() error = %v", err)
	}
	if got != "https://mainnet.infura.io/v3/abc123" {
		t.Errorf("RPCURL() = %q", got)
	}

	if _, err := cfg.RPCURL("mainnet", ""); err == nil || !strings.Contains(err.Error(), "RPC_URL_ID") {
		t.Errorf("RPCURL() without credential error = %v", err)
	}

	got, err = cfg.RPCURL("bsc-testnet", "")
	if err != nil {
		t.Fatalf("RPCURL(bsc-testnet) error = %v", err)
	}
	if strings.Contains(got, RPCURLIDPlaceholder) {
		t.Errorf("RPCURL(bsc-testnet) = %q", got)
	}
}
