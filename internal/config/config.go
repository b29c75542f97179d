// Package config holds the chain table and query settings. Built-in defaults
// cover the networks the tool knows; an optional YAML file overrides or extends
// them.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	chain_selectors "github.com/smartcontractkit/chain-selectors"

	"github.com/archon-research/feedquery/internal/domain/entity"
)

// RPCURLIDPlaceholder is replaced by the RPC_URL_ID credential in rpc_url templates.
const RPCURLIDPlaceholder = "{RPC_URL_ID}"

// DefaultMulticall3 is the canonical Multicall3 deployment address.
const DefaultMulticall3 = "0xcA11bde05977b3631167028862bE2a173976CA11"

const (
	BatchModeMulticall = "multicall"
	BatchModeDirect    = "direct"
)

// Config is the complete runtime configuration.
type Config struct {
	Multicall3 string                 `yaml:"multicall3" validate:"required,eth_addr"`
	BatchMode  string                 `yaml:"batch_mode" validate:"required,oneof=multicall direct"`
	RPCTimeout time.Duration          `yaml:"rpc_timeout" validate:"gte=0"`
	Directory  DirectoryConfig        `yaml:"directory"`
	Chains     map[string]ChainConfig `yaml:"chains" validate:"required,min=1,dive"`
	// Feeds are static registry entries per chain name. They take precedence
	// over the downloaded directory.
	Feeds     map[string][]FeedConfig `yaml:"feeds" validate:"dive,dive"`
	Telemetry TelemetryConfig         `yaml:"telemetry"`
}

// DirectoryConfig locates the Chainlink reference data directory.
type DirectoryConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	// Offline disables the download; only static feeds are used.
	Offline bool `yaml:"offline"`
}

// ChainConfig describes one network.
type ChainConfig struct {
	ID     uint64 `yaml:"id" validate:"required"`
	RPCURL string `yaml:"rpc_url" validate:"required"`
	// Directory is the slug of feeds-{directory}.json. Empty means the chain has
	// no published feed directory.
	Directory string `yaml:"directory"`
}

// FeedConfig is one static feed.
type FeedConfig struct {
	Base     string `yaml:"base" validate:"required"`
	Quote    string `yaml:"quote" validate:"required"`
	Proxy    string `yaml:"proxy" validate:"required,eth_addr"`
	Decimals uint8  `yaml:"decimals"`
}

// TelemetryConfig configures OpenTelemetry export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	// Console writes spans to stderr when no endpoint is set.
	Console bool `yaml:"console"`
}

// Default returns the built-in configuration.
func Default() *Config {
	chains := make(map[string]ChainConfig, len(defaultChains))
	for name, c := range defaultChains {
		chains[name] = c
	}
	return &Config{
		Multicall3: DefaultMulticall3,
		BatchMode:  BatchModeMulticall,
		RPCTimeout: 30 * time.Second,
		Directory: DirectoryConfig{
			BaseURL: "https://reference-data-directory.vercel.app",
			Timeout: 20 * time.Second,
		},
		Chains: chains,
		Feeds:  map[string][]FeedConfig{},
	}
}

// Multicall3Address returns the configured Multicall3 address.
func (c *Config) Multicall3Address() common.Address {
	return common.HexToAddress(c.Multicall3)
}

// ChainNames returns the configured chain names, sorted.
func (c *Config) ChainNames() []string {
	names := make([]string, 0, len(c.Chains))
	for name := range c.Chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain resolves a chain by name (case-insensitive) or decimal chain id.
func (c *Config) Chain(nameOrID string) (*entity.Chain, ChainConfig, error) {
	key := strings.ToLower(strings.TrimSpace(nameOrID))
	if cc, ok := c.Chains[key]; ok {
		chain, err := newChain(cc.ID, key)
		return chain, cc, err
	}
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		for _, name := range c.ChainNames() {
			if cc := c.Chains[name]; cc.ID == id {
				chain, err := newChain(cc.ID, name)
				return chain, cc, err
			}
		}
	}
	return nil, ChainConfig{}, &Error{Field: "chain", Err: fmt.Errorf("unknown chain %q (known: %s)", nameOrID, strings.Join(c.ChainNames(), ", "))}
}

// RPCURL builds the endpoint of chainName, substituting rpcURLID into the template.
func (c *Config) RPCURL(chainName, rpcURLID string) (string, error) {
	_, cc, err := c.Chain(chainName)
	if err != nil {
		return "", err
	}
	if !strings.Contains(cc.RPCURL, RPCURLIDPlaceholder) {
		return cc.RPCURL, nil
	}
	if rpcURLID == "" {
		return "", &Error{Field: "RPC_URL_ID", Err: fmt.Errorf("required for chain %s", chainName)}
	}
	return strings.ReplaceAll(cc.RPCURL, RPCURLIDPlaceholder, rpcURLID), nil
}

// StaticFeeds returns the configured feeds of chainName as descriptors.
func (c *Config) StaticFeeds(chainName string) ([]*entity.OracleDescriptor, error) {
	feeds := c.Feeds[strings.ToLower(chainName)]
	out := make([]*entity.OracleDescriptor, 0, len(feeds))
	for i, f := range feeds {
		o, err := entity.NewOracleDescriptor(f.Base, f.Quote, common.HexToAddress(f.Proxy), f.Decimals)
		if err != nil {
			return nil, &Error{Field: fmt.Sprintf("feeds.%s[%d]", chainName, i), Err: err}
		}
		out = append(out, o)
	}
	return out, nil
}

// newChain builds the chain entity and fills in the canonical name and CCIP
// selector when the chain registry knows the id.
func newChain(id uint64, name string) (*entity.Chain, error) {
	chain, err := entity.NewChain(id, name)
	if err != nil {
		return nil, &Error{Field: "chains." + name, Err: err}
	}
	details, err := chain_selectors.GetChainDetailsByChainIDAndFamily(strconv.FormatUint(id, 10), chain_selectors.FamilyEVM)
	if err == nil {
		chain.DisplayName = details.ChainName
		chain.Selector = details.ChainSelector
	}
	return chain, nil
}
