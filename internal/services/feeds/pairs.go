package feeds

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/ports/outbound"
)

// ResolvePairs looks up the oracle of every bases[i]/quotes[i] pair. A single
// quote is reused for all bases. Any unknown pair fails the whole resolution,
// before a query is sent.
func ResolvePairs(registry outbound.FeedRegistry, bases, quotes []string) ([]entity.PairContext, error) {
	if len(bases) == 0 {
		return nil, fmt.Errorf("at least one base is required")
	}
	if len(quotes) == 1 && len(bases) > 1 {
		reused := make([]string, len(bases))
		for i := range reused {
			reused[i] = quotes[0]
		}
		quotes = reused
	}
	if len(bases) != len(quotes) {
		return nil, fmt.Errorf("got %d bases and %d quotes, want equal counts or a single quote", len(bases), len(quotes))
	}

	pairs := make([]entity.PairContext, 0, len(bases))
	for i, base := range bases {
		o, ok := registry.Lookup(base, quotes[i])
		if !ok {
			return nil, fmt.Errorf("%s: %w", entity.PairKey(base, quotes[i]), outbound.ErrFeedNotFound)
		}
		pairs = append(pairs, o.Pair())
	}
	return pairs, nil
}

// ScaleAnswer converts a raw feed answer into its decimal value.
func ScaleAnswer(answer *big.Int, decimals uint8) decimal.Decimal {
	if answer == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(answer, -int32(decimals))
}

// FormatAnswer renders answer with exactly decimals fractional digits, trailing
// zeros removed.
func FormatAnswer(answer *big.Int, decimals uint8) string {
	s := ScaleAnswer(answer, decimals).StringFixed(int32(decimals))
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
