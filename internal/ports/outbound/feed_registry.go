package outbound

import (
	"errors"

	"github.com/archon-research/feedquery/internal/domain/entity"
)

// ErrFeedNotFound is returned when a requested pair has no oracle on the chain.
var ErrFeedNotFound = errors.New("feed not found")

// FeedRegistry resolves a base/quote pair to its oracle descriptor on one chain.
// Lookups are case-insensitive and side-effect free.
type FeedRegistry interface {
	Lookup(base, quote string) (*entity.OracleDescriptor, bool)
	Len() int
}
