package ratchet

import "fmt"

// Default policy bounds. They trade tolerance for reordering and loss against
// the number of secrets a session may hold.
const (
	DefaultMaxSkip           = 1000
	DefaultMaxSkippedKeys    = 2000
	DefaultMaxArchivedChains = 5
)

// Limits are the bounds an Engine enforces on every session it touches.
type Limits struct {
	// MaxSkip is the most message keys a single Decrypt may derive on one chain.
	MaxSkip int
	// MaxSkippedKeys caps the skipped-message-key cache; the oldest entries are
	// evicted first.
	MaxSkippedKeys int
	// MaxArchivedChains is how many previous receiving chains are kept next to
	// the active one.
	MaxArchivedChains int
}

// DefaultLimits returns the default bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxSkip:           DefaultMaxSkip,
		MaxSkippedKeys:    DefaultMaxSkippedKeys,
		MaxArchivedChains: DefaultMaxArchivedChains,
	}
}

// Option is an Engine option.
type Option func(*Limits) error

// WithMaxSkip sets Limits.MaxSkip.
func WithMaxSkip(n int) Option {
	return func(l *Limits) error {
		if n <= 0 {
			return fmt.Errorf("ratchet: max skip must be positive, got %d", n)
		}
		l.MaxSkip = n
		return nil
	}
}

// WithMaxSkippedKeys sets Limits.MaxSkippedKeys.
func WithMaxSkippedKeys(n int) Option {
	return func(l *Limits) error {
		if n <= 0 {
			return fmt.Errorf("ratchet: max skipped keys must be positive, got %d", n)
		}
		l.MaxSkippedKeys = n
		return nil
	}
}

// WithMaxArchivedChains sets Limits.MaxArchivedChains.
func WithMaxArchivedChains(n int) Option {
	return func(l *Limits) error {
		if n <= 0 {
			return fmt.Errorf("ratchet: max archived chains must be positive, got %d", n)
		}
		l.MaxArchivedChains = n
		return nil
	}
}

// WithLimits replaces all bounds at once; each must be positive.
func WithLimits(l Limits) Option {
	return func(dst *Limits) error {
		for _, opt := range []Option{
			WithMaxSkip(l.MaxSkip),
			WithMaxSkippedKeys(l.MaxSkippedKeys),
			WithMaxArchivedChains(l.MaxArchivedChains),
		} {
			if err := opt(dst); err != nil {
				return err
			}
		}
		return nil
	}
}
