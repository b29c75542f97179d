package feeds

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/feedquery/internal/adapters/outbound/memory"
	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/ports/outbound"
)

func testRegistry(t *testing.T) *memory.FeedRegistry {
	t.Helper()
	r := memory.NewFeedRegistry()
	for i, pair := range [][2]string{{"ETH", "USD"}, {"BTC", "USD"}, {"LINK", "ETH"}} {
		o, err := entity.NewOracleDescriptor(pair[0], pair[1], common.BigToAddress(big.NewInt(int64(i+1))), 8)
		if err != nil {
			t.Fatalf("NewOracleDescriptor() error = %v", err)
		}
		r.Add(o)
	}
	return r
}

func TestResolvePairs(t *testing.T) {
	registry := testRegistry(t)

	tests := []struct {
		name      string
		bases     []string
		quotes    []string
		wantBases []string
		wantErr   error
	}{
		{name: "single", bases: []string{"eth"}, quotes: []string{"usd"}, wantBases: []string{"ETH"}},
		{name: "paired", bases: []string{"eth", "link"}, quotes: []string{"usd", "eth"}, wantBases: []string{"ETH", "LINK"}},
		{name: "quote reused", bases: []string{"eth", "btc"}, quotes: []string{"usd"}, wantBases: []string{"ETH", "BTC"}},
		{name: "unknown pair", bases: []string{"eth", "doge"}, quotes: []string{"usd"}, wantErr: outbound.ErrFeedNotFound},
		{name: "count mismatch", bases: []string{"eth"}, quotes: []string{"usd", "eth"}},
		{name: "no bases", bases: nil, quotes: []string{"usd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := ResolvePairs(registry, tt.bases, tt.quotes)
			if tt.wantBases == nil {
				if err == nil {
					t.Fatal("ResolvePairs() expected error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePairs() error = %v", err)
			}
			if len(pairs) != len(tt.wantBases) {
				t.Fatalf("got %d pairs, want %d", len(pairs), len(tt.wantBases))
			}
			for i, p := range pairs {
				if p.Base != tt.wantBases[i] {
					t.Errorf("pairs[%d].Base = %s, want %s", i, p.Base, tt.wantBases[i])
				}
				if p.Oracle == (common.Address{}) || p.Decimals != 8 {
					t.Errorf("pairs[%d] = %+v", i, p)
				}
			}
		})
	}
}

func TestFormatAnswer(t *testing.T) {
	tests := []struct {
		answer   string
		decimals uint8
		want     string
	}{
		{"345678000000", 8, "3456.78"},
		{"100000000", 8, "1"},
		{"-250000000", 8, "-2.5"},
		{"1", 18, "0.000000000000000001"},
		{"42", 0, "42"},
		{"0", 8, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			answer, _ := new(big.Int).SetString(tt.answer, 10)
			if got := FormatAnswer(answer, tt.decimals); got != tt.want {
				t.Errorf("FormatAnswer(%s, %d) = %q, want %q", tt.answer, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestScaleAnswer_Nil(t *testing.T) {
	if !ScaleAnswer(nil, 8).IsZero() {
		t.Error("ScaleAnswer(nil) should be zero")
	}
}
