// Package codec encodes calls to Chainlink price feed contracts and decodes their
// return data against a fixed schema per method.
package codec

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/pkg/blockchain/abis"
)

const wordSize = 32

// maxRoundIDBits bounds composite round ids (uint80).
const maxRoundIDBits = 80

// Codec packs and unpacks feed calls. It is safe for concurrent use.
type Codec struct {
	abi *abi.ABI
}

// New loads the feed ABI.
func New() (*Codec, error) {
	feedABI, err := abis.GetAggregatorV3ABI()
	if err != nil {
		return nil, fmt.Errorf("loading AggregatorV3 ABI: %w", err)
	}
	return &Codec{abi: feedABI}, nil
}

// Selector returns the 4-byte function selector of m.
func (c *Codec) Selector(m Method) []byte {
	method, ok := c.abi.Methods[m.String()]
	if !ok {
		return nil
	}
	return method.ID
}

// Encode packs the selector of m followed by its word-aligned arguments.
func (c *Codec) Encode(m Method, args ...any) ([]byte, error) {
	if m.staticWords() < 0 {
		return nil, fmt.Errorf("unknown method %s", m)
	}
	data, err := c.abi.Pack(m.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", m, err)
	}
	return data, nil
}

// EncodeGetRoundData packs getRoundData(roundID). roundID must fit in uint80.
func (c *Codec) EncodeGetRoundData(roundID *big.Int) ([]byte, error) {
	if roundID == nil || roundID.Sign() < 0 || roundID.BitLen() > maxRoundIDBits {
		return nil, fmt.Errorf("round id %v does not fit in uint80", roundID)
	}
	return c.Encode(GetRoundData, roundID)
}

// EncodePhaseAggregators packs phaseAggregators(phase).
func (c *Codec) EncodePhaseAggregators(phase uint16) ([]byte, error) {
	return c.Encode(PhaseAggregators, phase)
}

// DecodeLatestAnswer decodes latestAnswer() as int256.
func (c *Codec) DecodeLatestAnswer(data []byte) (*big.Int, error) {
	values, err := c.unpack(LatestAnswer, data)
	if err != nil {
		return nil, err
	}
	return asBig(LatestAnswer, data, values[0])
}

// DecodeRoundData decodes the 5-word (uint80,int256,uint256,uint256,uint80) tuple
// returned by both getRoundData and latestRoundData.
func (c *Codec) DecodeRoundData(data []byte) (entity.RoundData, error) {
	values, err := c.unpack(LatestRoundData, data)
	if err != nil {
		return entity.RoundData{}, err
	}

	fields := make([]*big.Int, len(values))
	for i, v := range values {
		b, err := asBig(LatestRoundData, data, v)
		if err != nil {
			return entity.RoundData{}, err
		}
		fields[i] = b
	}

	if fields[0].BitLen() > maxRoundIDBits || fields[4].BitLen() > maxRoundIDBits {
		return entity.RoundData{}, decodeErr(LatestRoundData, data, "round id exceeds uint80", nil)
	}

	return entity.RoundData{
		RoundID:         fields[0],
		Answer:          fields[1],
		StartedAt:       fields[2],
		UpdatedAt:       fields[3],
		AnsweredInRound: fields[4],
	}, nil
}

// DecodeDescription decodes description() as a string.
func (c *Codec) DecodeDescription(data []byte) (string, error) {
	values, err := c.unpack(Description, data)
	if err != nil {
		return "", err
	}
	s, ok := values[0].(string)
	if !ok {
		return "", decodeErr(Description, data, fmt.Sprintf("unexpected type %T", values[0]), nil)
	}
	return s, nil
}

// DecodeVersion decodes version() as uint256.
func (c *Codec) DecodeVersion(data []byte) (*big.Int, error) {
	values, err := c.unpack(Version, data)
	if err != nil {
		return nil, err
	}
	return asBig(Version, data, values[0])
}

// DecodePhaseID decodes phaseId() as uint16.
func (c *Codec) DecodePhaseID(data []byte) (uint16, error) {
	if err := requireZeroPrefix(PhaseID, data, wordSize-2); err != nil {
		return 0, err
	}
	values, err := c.unpack(PhaseID, data)
	if err != nil {
		return 0, err
	}
	v, ok := values[0].(uint16)
	if !ok {
		return 0, decodeErr(PhaseID, data, fmt.Sprintf("unexpected type %T", values[0]), nil)
	}
	return v, nil
}

// DecodeDecimals decodes decimals() as uint8.
func (c *Codec) DecodeDecimals(data []byte) (uint8, error) {
	if err := requireZeroPrefix(Decimals, data, wordSize-1); err != nil {
		return 0, err
	}
	values, err := c.unpack(Decimals, data)
	if err != nil {
		return 0, err
	}
	v, ok := values[0].(uint8)
	if !ok {
		return 0, decodeErr(Decimals, data, fmt.Sprintf("unexpected type %T", values[0]), nil)
	}
	return v, nil
}

// DecodeAddress decodes the address returned by phaseAggregators(uint16) or aggregator().
func (c *Codec) DecodeAddress(data []byte) (common.Address, error) {
	if err := requireZeroPrefix(PhaseAggregators, data, wordSize-common.AddressLength); err != nil {
		return common.Address{}, err
	}
	values, err := c.unpack(PhaseAggregators, data)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, decodeErr(PhaseAggregators, data, fmt.Sprintf("unexpected type %T", values[0]), nil)
	}
	return addr, nil
}

// unpack checks the payload size against the method schema before handing it to
// the ABI decoder, so truncated or oversized payloads never reach it.
func (c *Codec) unpack(m Method, data []byte) ([]any, error) {
	words := m.staticWords()
	switch {
	case words < 0:
		return nil, decodeErr(m, data, "unknown method", nil)
	case words > 0 && len(data) != words*wordSize:
		return nil, decodeErr(m, data, fmt.Sprintf("want exactly %d bytes", words*wordSize), nil)
	case words == 0 && (len(data) < 2*wordSize || len(data)%wordSize != 0):
		return nil, decodeErr(m, data, "dynamic payload is not word aligned", nil)
	}

	method, ok := c.abi.Methods[m.String()]
	if !ok {
		return nil, decodeErr(m, data, "method missing from ABI", nil)
	}
	values, err := method.Outputs.Unpack(data)
	if err != nil {
		return nil, decodeErr(m, data, "abi unpack failed", err)
	}
	if len(values) != len(method.Outputs) {
		return nil, decodeErr(m, data, fmt.Sprintf("got %d values, want %d", len(values), len(method.Outputs)), nil)
	}
	return values, nil
}

func requireZeroPrefix(m Method, data []byte, n int) error {
	if len(data) != wordSize {
		return decodeErr(m, data, fmt.Sprintf("want exactly %d bytes", wordSize), nil)
	}
	if !bytes.Equal(data[:n], make([]byte, n)) {
		return decodeErr(m, data, "value overflows its type", nil)
	}
	return nil
}

func asBig(m Method, data []byte, v any) (*big.Int, error) {
	b, ok := v.(*big.Int)
	if !ok || b == nil {
		return nil, decodeErr(m, data, fmt.Sprintf("unexpected type %T", v), nil)
	}
	return b, nil
}
