package dropout

import (
	"fmt"
	"time"
)

// DefaultBatchSize is the number of enrollments read per page.
const DefaultBatchSize = 5000

// DefaultJobName identifies the job in logs, spans and audit events.
const DefaultJobName = "enrollments:dropout"

// Policy decides what the unit of work does after a run returns without
// error. A failed run is always rolled back.
type Policy string

const (
	// PolicyCommit commits on success and rolls back on failure.
	PolicyCommit Policy = "commit"
	// PolicyRollback rolls back even on success. Counters are still
	// computed, nothing is persisted.
	PolicyRollback Policy = "rollback"
)

// IsValid reports whether p is a known policy.
func (p Policy) IsValid() bool {
	switch p {
	case PolicyCommit, PolicyRollback:
		return true
	}
	return false
}

// ParsePolicy converts a string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	return p, nil
}

// Config holds configuration for a dropout run.
type Config struct {
	// Name identifies the job in logs and audit events.
	Name string

	// BatchSize is the maximum number of enrollments per page.
	BatchSize int

	// Policy decides whether a successful run is committed.
	Policy Policy

	// PageRate limits how many pages are processed per second.
	// Zero disables throttling.
	PageRate float64

	// RunTimeout bounds a whole run. Zero means no deadline.
	RunTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:      DefaultJobName,
		BatchSize: DefaultBatchSize,
		Policy:    PolicyCommit,
	}
}

// Validate checks the configuration before a run starts.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, c.BatchSize)
	}
	if !c.Policy.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, c.Policy)
	}
	if c.PageRate < 0 {
		return fmt.Errorf("%w: page rate must not be negative", ErrConfiguration)
	}
	return nil
}
