package suiteanalyzer

import (
	"fmt"

	"github.com/c360studio/casegen/llm"
)

// Config holds configuration for the suite analyzer.
type Config struct {
	Duplicates llm.CallConfig `json:"duplicates" yaml:"duplicates"`
	Impact     llm.CallConfig `json:"impact" yaml:"impact"`

	// HealConcurrency bounds concurrent heal calls in HealImpacted.
	HealConcurrency int `json:"heal_concurrency" yaml:"heal_concurrency"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{HealConcurrency: 4}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.HealConcurrency < 1 {
		return fmt.Errorf("heal_concurrency must be at least 1, got %d", c.HealConcurrency)
	}
	if err := c.Duplicates.Validate(); err != nil {
		return fmt.Errorf("duplicates: %w", err)
	}
	if err := c.Impact.Validate(); err != nil {
		return fmt.Errorf("impact: %w", err)
	}
	return nil
}
