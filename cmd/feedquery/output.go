package main

import (
	"fmt"
	"io"
	"math/big"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/services/feeds"
)

func pairLabel(qc entity.QueryContext) (string, uint8) {
	if p, ok := qc.(entity.PairContext); ok {
		return p.Base + "/" + p.Quote, p.Decimals
	}
	return qc.String(), 0
}

func printFailure(w io.Writer, label string, chain *entity.Chain, status feeds.Status, err error) {
	fmt.Fprintf(w, "%s in [%s] %s: %v\n", label, chain, status, err)
}

func printOracle(w io.Writer, chain *entity.Chain, o *entity.OracleDescriptor) {
	fmt.Fprintf(w, "%s [%s]\n", o.Name, chain)
	fmt.Fprintf(w, "  proxy:      %s\n", o.Proxy.Hex())
	if o.Aggregator != (common.Address{}) {
		fmt.Fprintf(w, "  aggregator: %s\n", o.Aggregator.Hex())
	}
	fmt.Fprintf(w, "  decimals:   %d\n", o.Decimals)
	if o.Path != "" {
		fmt.Fprintf(w, "  path:       %s\n", o.Path)
	}
}

func printLatestAnswers(w io.Writer, chain *entity.Chain, outcomes []feeds.Outcome[*big.Int]) {
	for _, out := range outcomes {
		label, decimals := pairLabel(out.Context)
		if !out.OK() {
			printFailure(w, label, chain, out.Status, out.Err)
			continue
		}
		fmt.Fprintf(w, "%s in [%s] is %s [%s]\n", label, chain, out.Value, feeds.FormatAnswer(out.Value, decimals))
	}
}

func printLatestRoundData(w io.Writer, chain *entity.Chain, outcomes []feeds.Outcome[entity.RoundData]) {
	for _, out := range outcomes {
		label, decimals := pairLabel(out.Context)
		if !out.OK() {
			printFailure(w, label, chain, out.Status, out.Err)
			continue
		}
		fmt.Fprintf(w, "%s in [%s]\n", label, chain)
		printRound(w, out.Value, decimals)
	}
}

func printRounds(w io.Writer, outcomes []feeds.Outcome[entity.RoundData], decimals uint8) {
	for _, out := range outcomes {
		if !out.OK() {
			fmt.Fprintf(w, "%s %s: %v\n", out.Context, out.Status, out.Err)
			continue
		}
		printRound(w, out.Value, decimals)
	}
}

func printRound(w io.Writer, r entity.RoundData, decimals uint8) {
	if !r.Complete() {
		fmt.Fprintf(w, "  round %s (phase %d, round %d): not answered\n",
			r.RoundID, entity.RoundPhase(r.RoundID), entity.AggregatorRound(r.RoundID))
		return
	}
	fmt.Fprintf(w, "  round %s (phase %d, round %d): %s [%s] updated %s\n",
		r.RoundID, entity.RoundPhase(r.RoundID), entity.AggregatorRound(r.RoundID),
		r.Answer, feeds.FormatAnswer(r.Answer, decimals), formatTimestamp(r.UpdatedAt))
}

func formatTimestamp(ts *big.Int) string {
	if ts == nil || ts.Sign() == 0 {
		return "never"
	}
	if !ts.IsInt64() {
		return ts.String()
	}
	return time.Unix(ts.Int64(), 0).UTC().Format(time.RFC3339)
}

func printDescriptions(w io.Writer, chain *entity.Chain, outcomes []feeds.Outcome[string]) {
	for _, out := range outcomes {
		label, _ := pairLabel(out.Context)
		if !out.OK() {
			printFailure(w, label, chain, out.Status, out.Err)
			continue
		}
		fmt.Fprintf(w, "%s in [%s]: %q\n", label, chain, out.Value)
	}
}

func printPhases(w io.Writer, report *feeds.PhaseReport) {
	fmt.Fprintf(w, "  proxy %s, current phase %d\n", report.Proxy.Hex(), report.PhaseID)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  PHASE\tAGGREGATOR\tVERSION\t")
	for _, rec := range report.Records {
		version := "?"
		if rec.Version != nil {
			version = rec.Version.String()
		}
		current := ""
		if rec.Current {
			current = "current"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", rec.PhaseID, rec.Aggregator.Hex(), version, current)
	}
	_ = tw.Flush()

	for _, f := range report.Failures {
		fmt.Fprintf(w, "  phase %d failed: %v\n", f.Phase, f.Err)
	}
}

func printHistory(w io.Writer, report *feeds.HistoryReport, decimals uint8) {
	fmt.Fprintf(w, "  aggregator %s (phase %d, version %s)\n",
		report.Aggregator.Aggregator.Hex(), report.Aggregator.PhaseID, report.Aggregator.Version)
	fmt.Fprintf(w, "  proxy latest round %s, aggregator latest round %s, offset %s\n",
		report.ProxyLatest.RoundID, report.AggregatorLatest.RoundID, report.Offset)
	if len(report.Rounds) == 0 {
		fmt.Fprintln(w, "  no rounds in range")
		return
	}
	printRounds(w, report.Rounds, decimals)
}

func printFeeds(w io.Writer, chain *entity.Chain, list []*entity.OracleDescriptor) {
	fmt.Fprintf(w, "%d feeds in [%s]\n", len(list), chain)
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  PAIR\tPROXY\tDECIMALS\t")
	for _, o := range list {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t\n", o.Name, o.Proxy.Hex(), o.Decimals)
	}
	_ = tw.Flush()
}

func printChains(w io.Writer, chains []*entity.Chain, directories map[string]string) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tSELECTOR\tDISPLAY NAME\tDIRECTORY\t")
	for _, c := range chains {
		selector := "-"
		if c.Selector != 0 {
			selector = fmt.Sprint(c.Selector)
		}
		directory := directories[c.Name]
		if directory == "" {
			directory = "-"
		}
		display := c.DisplayName
		if display == "" {
			display = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t\n", c.Name, c.ID, selector, display, directory)
	}
	_ = tw.Flush()
}
