// Package feedsdir loads Chainlink's reference data directory, the published
// list of price feeds per network, into a FeedRegistry.
package feedsdir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/archon-research/feedquery/internal/adapters/outbound/memory"
	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/pkg/httpclient"
)

// ClientConfig holds configuration for the directory client.
type ClientConfig struct {
	// BaseURL serves feeds-{directory}.json documents.
	BaseURL string

	// Timeout is the maximum time to wait for a single HTTP request.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for transient failures.
	MaxRetries int

	// InitialBackoff is the initial delay before the first retry.
	InitialBackoff time.Duration

	Logger *slog.Logger
}

// ClientConfigDefaults returns a config with default values.
func ClientConfigDefaults() ClientConfig {
	return ClientConfig{
		BaseURL:        "https://reference-data-directory.vercel.app",
		Timeout:        20 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		Logger:         slog.Default(),
	}
}

// Client downloads directory documents.
type Client struct {
	config ClientConfig
	http   *httpclient.Client
	logger *slog.Logger
}

// NewClient creates a directory client.
func NewClient(config ClientConfig) (*Client, error) {
	defaults := ClientConfigDefaults()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxRetries < 0 {
		return nil, errors.New("MaxRetries must not be negative")
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	logger := config.Logger.With("component", "feeds-directory")
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = config.Timeout
	httpCfg.MaxRetries = config.MaxRetries
	httpCfg.InitialBackoff = config.InitialBackoff
	httpCfg.RateLimit = rate.Inf

	return &Client{
		config: config,
		http:   httpclient.NewClient(httpCfg, logger),
		logger: logger,
	}, nil
}

// entry is one element of a feeds-*.json document.
type entry struct {
	Name            string `json:"name"`
	Path            string `json:"path"`
	ProxyAddress    string `json:"proxyAddress"`
	ContractAddress string `json:"contractAddress"`
	Decimals        int    `json:"decimals"`
	Docs            struct {
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"docs"`
}

// URL returns the document location of directory.
func (c *Client) URL(directory string) string {
	return fmt.Sprintf("%s/feeds-%s.json", c.config.BaseURL, directory)
}

// Load fetches the document of directory and builds a registry from it.
// Entries without a proxy or a resolvable pair are skipped.
func (c *Client) Load(ctx context.Context, directory string) (*memory.FeedRegistry, error) {
	if directory == "" {
		return nil, errors.New("directory name is required")
	}

	url := c.URL(directory)
	var entries []entry
	if err := c.http.GetJSON(ctx, url, &entries); err != nil {
		return nil, fmt.Errorf("loading feed directory %s: %w", directory, err)
	}

	registry := memory.NewFeedRegistry()
	skipped := 0
	for _, e := range entries {
		o, err := e.descriptor()
		if err != nil {
			skipped++
			c.logger.Debug("skipping directory entry", "name", e.Name, "error", err)
			continue
		}
		registry.Add(o)
	}

	c.logger.Debug("feed directory loaded",
		"directory", directory,
		"feeds", registry.Len(),
		"skipped", skipped,
	)
	return registry, nil
}

func (e entry) descriptor() (*entity.OracleDescriptor, error) {
	if !common.IsHexAddress(e.ProxyAddress) {
		return nil, fmt.Errorf("invalid proxy address %q", e.ProxyAddress)
	}
	if e.Decimals < 0 || e.Decimals > 255 {
		return nil, fmt.Errorf("decimals %d out of range", e.Decimals)
	}

	base, quote := e.Docs.BaseAsset, e.Docs.QuoteAsset
	if base == "" || quote == "" {
		var ok bool
		base, quote, ok = strings.Cut(e.Name, "/")
		if !ok {
			return nil, fmt.Errorf("cannot derive pair from name %q", e.Name)
		}
		base, quote = strings.TrimSpace(base), strings.TrimSpace(quote)
	}

	o, err := entity.NewOracleDescriptor(base, quote, common.HexToAddress(e.ProxyAddress), uint8(e.Decimals))
	if err != nil {
		return nil, err
	}
	if common.IsHexAddress(e.ContractAddress) {
		o.Aggregator = common.HexToAddress(e.ContractAddress)
	}
	o.Path = e.Path
	return o, nil
}
