package code

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the configuration for a StarlarkEngine.
type Config struct {
	// DefaultTimeout is the evaluation timeout when EvalParams.Timeout is
	// zero. If zero, no default timeout is applied.
	DefaultTimeout time.Duration

	// MaxExecutionSteps bounds the interpreter steps of each task.
	// Zero means unlimited.
	MaxExecutionSteps uint64

	// DisableRecursion rejects recursive function calls.
	DisableRecursion bool

	// Logger receives ctx.info calls and evaluation summaries.
	// Optional.
	Logger Logger
}

// Validate checks that all fields hold usable values.
// Returns ErrConfiguration if any field is invalid.
func (c *Config) Validate() error {
	var invalid []string

	if c.DefaultTimeout < 0 {
		invalid = append(invalid, "DefaultTimeout")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("%w: invalid fields: %s",
			ErrConfiguration, strings.Join(invalid, ", "))
	}
	return nil
}

// applyDefaults sets default values for optional fields.
func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
}
