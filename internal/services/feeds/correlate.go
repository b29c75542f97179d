package feeds

import (
	"fmt"

	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/ports/outbound"
)

// Status classifies one correlated result.
type Status int

const (
	StatusDecoded Status = iota
	StatusCallFailed
	StatusDecodeFailed
)

func (s Status) String() string {
	switch s {
	case StatusDecoded:
		return "decoded"
	case StatusCallFailed:
		return "call_failed"
	case StatusDecodeFailed:
		return "decode_failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of one call, reported against the context it was made for.
// Value is only meaningful when Status is StatusDecoded.
type Outcome[T any] struct {
	Context entity.QueryContext
	Value   T
	Status  Status
	Err     error
}

// OK reports whether the value was decoded.
func (o Outcome[T]) OK() bool {
	return o.Status == StatusDecoded
}

// CorrelationError means the batch returned a different number of results than
// contexts were sent. It is a programming error and never truncated away.
type CorrelationError struct {
	Contexts int
	Results  int
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("correlation mismatch: %d contexts, %d results", e.Contexts, e.Results)
}

// Correlate pairs results[i] with contexts[i] and decodes each successful entry
// with decode. Every entry is processed; a failure of one never affects another.
func Correlate[T any](contexts []entity.QueryContext, results []outbound.Result, decode func([]byte) (T, error)) ([]Outcome[T], error) {
	if len(contexts) != len(results) {
		return nil, &CorrelationError{Contexts: len(contexts), Results: len(results)}
	}

	outcomes := make([]Outcome[T], len(results))
	for i, r := range results {
		if !r.Success {
			outcomes[i] = callFailed[T](contexts[i], fmt.Errorf("%s: %w", contexts[i], outbound.ErrCallReverted))
			continue
		}
		outcomes[i] = decodeOutcome(contexts[i], r.ReturnData, decode)
	}
	return outcomes, nil
}

func decodeOutcome[T any](qc entity.QueryContext, data []byte, decode func([]byte) (T, error)) Outcome[T] {
	// eth_call against an address without code succeeds with empty return data.
	if len(data) == 0 {
		return callFailed[T](qc, fmt.Errorf("%s: no return data, target has no code: %w", qc, outbound.ErrCallReverted))
	}

	v, err := decode(data)
	if err != nil {
		return Outcome[T]{Context: qc, Status: StatusDecodeFailed, Err: fmt.Errorf("%s: %w", qc, err)}
	}
	return Outcome[T]{Context: qc, Value: v, Status: StatusDecoded}
}

func callFailed[T any](qc entity.QueryContext, err error) Outcome[T] {
	return Outcome[T]{Context: qc, Status: StatusCallFailed, Err: err}
}
