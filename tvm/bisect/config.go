package bisect

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid bisection config")

// Config fixes the shape of the search tree and of every state commitment.
// Both parties must use the same values.
type Config struct {
	// Branching is the number of sub-ranges each round splits into.
	Branching uint64
	// Width is the fixed number of values in a state commitment.
	Width int
}

var DefaultConfig = Config{
	Branching: 10,
	Width:     64,
}

func (c *Config) Check() error {
	if c.Branching < 2 {
		return fmt.Errorf("%w: branching factor %d, need at least 2", ErrInvalidConfig, c.Branching)
	}
	if c.Width < 1 {
		return fmt.Errorf("%w: commitment width %d", ErrInvalidConfig, c.Width)
	}
	return nil
}

type Option func(b *Bisector)

func WithConfig(cfg Config) Option {
	return func(b *Bisector) {
		b.cfg = cfg
	}
}

// WithStore persists computed commitments and reuses them across runs.
func WithStore(s CommitmentStore) Option {
	return func(b *Bisector) {
		b.store = s
	}
}
