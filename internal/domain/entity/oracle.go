package entity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// OracleDescriptor describes one price feed as published by the feed registry.
// The core never mutates it.
type OracleDescriptor struct {
	Name       string
	Base       string
	Quote      string
	Proxy      common.Address
	Aggregator common.Address // zero when the registry does not publish it
	Decimals   uint8
	Path       string
}

// NewOracleDescriptor creates an OracleDescriptor with normalised symbols.
func NewOracleDescriptor(base, quote string, proxy common.Address, decimals uint8) (*OracleDescriptor, error) {
	o := &OracleDescriptor{
		Name:     fmt.Sprintf("%s / %s", strings.ToUpper(base), strings.ToUpper(quote)),
		Base:     strings.ToUpper(base),
		Quote:    strings.ToUpper(quote),
		Proxy:    proxy,
		Decimals: decimals,
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *OracleDescriptor) validate() error {
	if o.Base == "" || o.Quote == "" {
		return fmt.Errorf("base and quote must not be empty")
	}
	if o.Proxy == (common.Address{}) {
		return fmt.Errorf("proxy address must not be zero for %s", o.Name)
	}
	return nil
}

// Pair returns the pair context used to query this oracle.
func (o *OracleDescriptor) Pair() PairContext {
	return PairContext{
		Base:     o.Base,
		Quote:    o.Quote,
		Oracle:   o.Proxy,
		Decimals: o.Decimals,
	}
}

// PairKey is the registry key for a base/quote pair.
func PairKey(base, quote string) string {
	return strings.ToUpper(strings.TrimSpace(base)) + "/" + strings.ToUpper(strings.TrimSpace(quote))
}
