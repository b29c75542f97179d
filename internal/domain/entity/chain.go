// Package entity contains the core domain entities of the feed query engine.
// These entities are built fresh for every invocation and have no external dependencies
// beyond go-ethereum primitives.
package entity

import "fmt"

// Chain represents an EVM network the engine can query.
type Chain struct {
	ID   uint64
	Name string

	// DisplayName and Selector come from the canonical chain registry and are
	// empty/zero for chains it does not know.
	DisplayName string
	Selector    uint64
}

// NewChain creates a new Chain entity with validation.
func NewChain(id uint64, name string) (*Chain, error) {
	c := &Chain{ID: id, Name: name}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chain) validate() error {
	if c.ID == 0 {
		return fmt.Errorf("chain id must be positive")
	}
	if c.Name == "" {
		return fmt.Errorf("chain name must not be empty")
	}
	return nil
}

// String returns the display name when known, otherwise the configured name.
func (c *Chain) String() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}
