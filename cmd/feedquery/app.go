package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/archon-research/feedquery/internal/adapters/outbound/feedsdir"
	"github.com/archon-research/feedquery/internal/adapters/outbound/memory"
	"github.com/archon-research/feedquery/internal/adapters/outbound/telemetry"
	"github.com/archon-research/feedquery/internal/config"
	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/pkg/blockchain/multicall"
	"github.com/archon-research/feedquery/internal/ports/outbound"
	"github.com/archon-research/feedquery/internal/services/feeds"
)

// app carries what the commands share for one invocation.
type app struct {
	ctx     context.Context
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	metrics outbound.QueryMetrics

	rpcURL   string
	rpcURLID string
	closers  []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, rpcURL, rpcURLID string) (*app, error) {
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}
	return &app{
		ctx:      ctx,
		cfg:      cfg,
		logger:   logger,
		out:      out,
		metrics:  metrics,
		rpcURL:   rpcURL,
		rpcURLID: rpcURLID,
	}, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// registry builds the feed table of a chain: the published directory, then
// the static feeds of the config on top.
func (a *app) registry(chainName string) (*entity.Chain, *memory.FeedRegistry, error) {
	chain, cc, err := a.cfg.Chain(chainName)
	if err != nil {
		return nil, nil, err
	}

	registry := memory.NewFeedRegistry()
	if cc.Directory != "" && !a.cfg.Directory.Offline {
		client, err := feedsdir.NewClient(feedsdir.ClientConfig{
			BaseURL: a.cfg.Directory.BaseURL,
			Timeout: a.cfg.Directory.Timeout,
			Logger:  a.logger,
		})
		if err != nil {
			return nil, nil, err
		}
		registry, err = client.Load(a.ctx, cc.Directory)
		if err != nil {
			return nil, nil, err
		}
	}

	static, err := a.cfg.StaticFeeds(chain.Name)
	if err != nil {
		return nil, nil, err
	}
	for _, o := range static {
		registry.Add(o)
	}

	a.logger.Debug("feed registry ready", "chain", chain.String(), "feeds", registry.Len())
	return chain, registry, nil
}

// endpoint resolves the RPC URL of chain. It touches no network, so a missing
// credential surfaces before the directory download.
func (a *app) endpoint(chain *entity.Chain) (string, error) {
	if a.rpcURL != "" {
		return a.rpcURL, nil
	}
	return a.cfg.RPCURL(chain.Name, a.rpcURLID)
}

// service connects to url and builds the query service for chain.
func (a *app) service(chain *entity.Chain, url string) (*feeds.Service, error) {
	rpcClient, err := rpc.DialContext(a.ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s node: %w", chain, err)
	}
	a.closers = append(a.closers, rpcClient.Close)

	caller := multicall.NewEthCaller(ethclient.NewClient(rpcClient))

	var mc outbound.Multicaller
	switch a.cfg.BatchMode {
	case config.BatchModeDirect:
		mc = multicall.NewDirectCaller(rpcClient)
	default:
		mc, err = multicall.NewClient(caller, a.cfg.Multicall3Address())
		if err != nil {
			return nil, fmt.Errorf("creating multicall client: %w", err)
		}
	}

	return feeds.NewService(feeds.Config{Logger: a.logger, Metrics: a.metrics}, caller, mc)
}

// session resolves the chain and its RPC URL, then loads the registry and
// connects the service.
func (a *app) session(chainName string) (*entity.Chain, *memory.FeedRegistry, *feeds.Service, error) {
	chain, _, err := a.cfg.Chain(chainName)
	if err != nil {
		return nil, nil, nil, err
	}
	url, err := a.endpoint(chain)
	if err != nil {
		return nil, nil, nil, err
	}
	chain, registry, err := a.registry(chainName)
	if err != nil {
		return nil, nil, nil, err
	}
	svc, err := a.service(chain, url)
	if err != nil {
		return nil, nil, nil, err
	}
	return chain, registry, svc, nil
}
