package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/archon-research/feedquery/internal/config"
	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/pkg/hexutil"
	"github.com/archon-research/feedquery/internal/ports/outbound"
	"github.com/archon-research/feedquery/internal/services/feeds"
)

// PairFlags select one pair on one chain.
type PairFlags struct {
	Chain string `help:"Chain name or id." short:"c" required:""`
	Base  string `help:"Base asset symbol." short:"b" required:""`
	Quote string `help:"Quote asset symbol." short:"q" required:""`
}

// PairsFlags select one or more pairs on one chain. A single quote is reused
// for every base.
type PairsFlags struct {
	Chain string   `help:"Chain name or id." short:"c" required:""`
	Base  []string `help:"Comma-separated base symbols." short:"b" required:"" sep:","`
	Quote []string `help:"Comma-separated quote symbols." short:"q" required:"" sep:","`
}

func (f PairFlags) lookup(registry outbound.FeedRegistry) (*entity.OracleDescriptor, error) {
	o, ok := registry.Lookup(f.Base, f.Quote)
	if !ok {
		return nil, fmt.Errorf("%s: %w", entity.PairKey(f.Base, f.Quote), outbound.ErrFeedNotFound)
	}
	return o, nil
}

// OracleCmd prints the registry entry of a pair.
type OracleCmd struct {
	PairFlags `embed:""`
	Onchain   bool `help:"Compare the registry decimals with decimals() on chain."`
}

func (c *OracleCmd) Run(a *app) error {
	var url string
	if c.Onchain {
		chain, _, err := a.cfg.Chain(c.Chain)
		if err != nil {
			return err
		}
		if url, err = a.endpoint(chain); err != nil {
			return err
		}
	}
	chain, registry, err := a.registry(c.Chain)
	if err != nil {
		return err
	}
	o, ok := registry.Lookup(c.Base, c.Quote)
	if !ok {
		fmt.Fprintf(a.out, "No oracle found for %s in %s\n", entity.PairKey(c.Base, c.Quote), chain)
		return nil
	}
	printOracle(a.out, chain, o)

	if !c.Onchain {
		return nil
	}
	svc, err := a.service(chain, url)
	if err != nil {
		return err
	}
	decimals, err := svc.OnchainDecimals(a.ctx, o.Proxy)
	if err != nil {
		return err
	}
	if decimals != o.Decimals {
		a.logger.Warn("registry decimals differ from chain", "pair", o.Name, "registry", o.Decimals, "onchain", decimals)
	}
	fmt.Fprintf(a.out, "  onchain decimals: %d\n", decimals)
	return nil
}

// LatestAnswerCmd reads latestAnswer() of every pair.
type LatestAnswerCmd struct {
	PairsFlags `embed:""`
}

func (c *LatestAnswerCmd) Run(a *app) error {
	chain, registry, svc, err := a.session(c.Chain)
	if err != nil {
		return err
	}
	pairs, err := feeds.ResolvePairs(registry, c.Base, c.Quote)
	if err != nil {
		return err
	}
	outcomes, err := svc.LatestAnswers(a.ctx, pairs)
	if err != nil {
		return err
	}
	printLatestAnswers(a.out, chain, outcomes)
	return nil
}

// LatestRoundDataCmd reads latestRoundData() of every pair.
type LatestRoundDataCmd struct {
	PairsFlags `embed:""`
}

func (c *LatestRoundDataCmd) Run(a *app) error {
	chain, registry, svc, err := a.session(c.Chain)
	if err != nil {
		return err
	}
	pairs, err := feeds.ResolvePairs(registry, c.Base, c.Quote)
	if err != nil {
		return err
	}
	outcomes, err := svc.LatestRoundData(a.ctx, pairs)
	if err != nil {
		return err
	}
	printLatestRoundData(a.out, chain, outcomes)
	return nil
}

// RoundDataCmd reads getRoundData() for each round id on one pair.
type RoundDataCmd struct {
	PairFlags `embed:""`
	RoundID   []string `help:"Comma-separated round ids, decimal or 0x hex." name:"round-id" short:"r" required:"" sep:","`
}

func (c *RoundDataCmd) Run(a *app) error {
	ids, err := hexutil.ParseRoundIDs(c.RoundID)
	if err != nil {
		return err
	}
	chain, registry, svc, err := a.session(c.Chain)
	if err != nil {
		return err
	}
	o, err := c.lookup(registry)
	if err != nil {
		return err
	}
	outcomes, err := svc.RoundData(a.ctx, o.Proxy, ids)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Round data for %s [%s]\n", o.Name, chain)
	printRounds(a.out, outcomes, o.Decimals)
	return nil
}

// DescriptionCmd reads description() of every pair.
type DescriptionCmd struct {
	PairsFlags `embed:""`
}

func (c *DescriptionCmd) Run(a *app) error {
	chain, registry, svc, err := a.session(c.Chain)
	if err != nil {
		return err
	}
	pairs, err := feeds.ResolvePairs(registry, c.Base, c.Quote)
	if err != nil {
		return err
	}
	outcomes, err := svc.Description(a.ctx, pairs)
	if err != nil {
		return err
	}
	printDescriptions(a.out, chain, outcomes)
	return nil
}

// PhasesCmd lists the aggregator generations behind a pair's proxy.
type PhasesCmd struct {
	PairFlags `embed:""`
}

func (c *PhasesCmd) Run(a *app) error {
	chain, registry, svc, err := a.session(c.Chain)
	if err != nil {
		return err
	}
	o, err := c.lookup(registry)
	if err != nil {
		return err
	}
	report, err := svc.Phases(a.ctx, o.Proxy)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Phases of %s [%s]\n", o.Name, chain)
	printPhases(a.out, report)
	return nil
}

// HistoryCmd reads the last N rounds of a pair through its proxy.
type HistoryCmd struct {
	PairFlags `embed:""`
	Rounds    int `help:"Number of rounds to read." short:"n" default:"10"`
}

func (c *HistoryCmd) Run(a *app) error {
	chain, registry, svc, err := a.session(c.Chain)
	if err != nil {
		return err
	}
	o, err := c.lookup(registry)
	if err != nil {
		return err
	}
	report, err := svc.History(a.ctx, o.Proxy, c.Rounds)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "History of %s [%s]\n", o.Name, chain)
	printHistory(a.out, report, o.Decimals)
	return nil
}

// FeedsCmd lists every registry entry of a chain.
type FeedsCmd struct {
	Chain string `help:"Chain name or id." short:"c" required:""`
}

func (c *FeedsCmd) Run(a *app) error {
	chain, registry, err := a.registry(c.Chain)
	if err != nil {
		return err
	}
	printFeeds(a.out, chain, registry.All())
	return nil
}

// ChainsCmd lists the configured chains.
type ChainsCmd struct{}

func (c *ChainsCmd) Run(a *app) error {
	chains := make([]*entity.Chain, 0, len(a.cfg.Chains))
	for _, name := range a.cfg.ChainNames() {
		chain, _, err := a.cfg.Chain(name)
		if err != nil {
			return err
		}
		chains = append(chains, chain)
	}
	printChains(a.out, chains, lo.MapValues(a.cfg.Chains, func(cc config.ChainConfig, _ string) string {
		return strings.TrimSpace(cc.Directory)
	}))
	return nil
}
