// Package hexutil parses numeric command-line values that may be written in
// decimal or 0x-prefixed hex.
package hexutil

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
)

// maxRoundIDBits bounds composite round ids (uint80).
const maxRoundIDBits = 80

// ParseBig parses s as a non-negative 256-bit integer, decimal or 0x hex.
func ParseBig(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty number")
	}
	v, ok := math.ParseBig256(s)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// ParseRoundID parses a composite round id and checks it fits in uint80.
func ParseRoundID(s string) (*big.Int, error) {
	v, err := ParseBig(s)
	if err != nil {
		return nil, err
	}
	if v.BitLen() > maxRoundIDBits {
		return nil, fmt.Errorf("round id %s does not fit in uint80", s)
	}
	return v, nil
}

// ParseRoundIDs parses every element with ParseRoundID.
func ParseRoundIDs(values []string) ([]*big.Int, error) {
	ids := make([]*big.Int, 0, len(values))
	for _, s := range values {
		id, err := ParseRoundID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
