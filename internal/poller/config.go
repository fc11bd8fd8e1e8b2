package poller

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/specialistvlad/simgridgo/internal/job"
)

const (
	DefaultInitialInterval = time.Second
	DefaultMaxInterval     = 30 * time.Second
	DefaultGrowthFactor    = 1.25
	DefaultMaxConcurrent   = 8
)

// Config tunes a poller.
type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	GrowthFactor    float64
	// Timeout is an optional wall-clock budget per session. Zero disables it.
	Timeout time.Duration
	// Statuses partitions the job type's status vocabulary.
	Statuses job.StatusSet
	// MaxConcurrent bounds how many sessions Watch runs at once.
	MaxConcurrent int
}

// DefaultConfig returns the standard backoff policy with no timeout.
func DefaultConfig() Config {
	return Config{
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		GrowthFactor:    DefaultGrowthFactor,
		Statuses:        job.DefaultStatusSet(),
		MaxConcurrent:   DefaultMaxConcurrent,
	}
}

// Validate checks the configuration for values that would break the
// non-decreasing, bounded interval guarantee.
func (c Config) Validate() error {
	if c.InitialInterval <= 0 {
		return errors.New("poller: initial interval must be positive")
	}
	if c.MaxInterval < c.InitialInterval {
		return errors.New("poller: max interval must not be below the initial interval")
	}
	if c.GrowthFactor < 1 {
		return errors.New("poller: growth factor must be at least 1")
	}
	if c.Timeout < 0 {
		return errors.New("poller: timeout must not be negative")
	}
	return nil
}

// newBackOff returns the interval sequence of one session. The first value is
// InitialInterval, every later one is min(MaxInterval, previous*GrowthFactor).
// There is no jitter and no elapsed-time limit: Timeout is enforced by the
// session against its own clock.
func (c Config) newBackOff(clock backoff.Clock) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.InitialInterval,
		RandomizationFactor: 0,
		Multiplier:          c.GrowthFactor,
		MaxInterval:         c.MaxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               clock,
	}
	b.Reset()
	return b
}
