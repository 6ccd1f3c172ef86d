package testcasegenerator

import (
	"fmt"

	"github.com/c360studio/casegen/llm"
)

// Policy decides what happens to generated test cases whose requirement id
// is not in the supplied requirement list.
type Policy string

const (
	// PolicyReject fails the whole call with *workflow.TraceabilityError.
	PolicyReject Policy = "reject"
	// PolicyFlag keeps orphans, reports them in Result.Orphans and logs a
	// warning.
	PolicyFlag Policy = "flag"
)

// Config holds configuration for the test case generator.
type Config struct {
	llm.CallConfig `yaml:",inline"`

	// Policy handles orphaned test cases.
	Policy Policy `json:"policy" yaml:"policy"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Policy: PolicyReject}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Policy {
	case PolicyReject, PolicyFlag:
	default:
		return fmt.Errorf("unknown traceability policy %q", c.Policy)
	}
	return c.CallConfig.Validate()
}
