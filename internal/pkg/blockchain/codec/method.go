package codec

import "fmt"

// Method is one of the remote functions the engine knows how to call. Each
// method has exactly one return schema; call sites pin the matching decoder.
type Method int

const (
	LatestAnswer Method = iota + 1
	GetRoundData
	LatestRoundData
	Description
	Version
	PhaseID
	PhaseAggregators
	Decimals
	Aggregator
)

// String returns the ABI function name.
func (m Method) String() string {
	switch m {
	case LatestAnswer:
		return "latestAnswer"
	case GetRoundData:
		return "getRoundData"
	case LatestRoundData:
		return "latestRoundData"
	case Description:
		return "description"
	case Version:
		return "version"
	case PhaseID:
		return "phaseId"
	case PhaseAggregators:
		return "phaseAggregators"
	case Decimals:
		return "decimals"
	case Aggregator:
		return "aggregator"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// staticWords is the exact number of 32-byte words in the return data, or 0 for
// methods with a dynamic return type.
func (m Method) staticWords() int {
	switch m {
	case GetRoundData, LatestRoundData:
		return 5
	case LatestAnswer, Version, PhaseID, PhaseAggregators, Decimals, Aggregator:
		return 1
	case Description:
		return 0
	default:
		return -1
	}
}
