package requirementextractor

import (
	"fmt"

	"github.com/c360studio/casegen/llm"
)

// Config holds configuration for the requirement extractor.
type Config struct {
	// Extraction routes requirement extraction calls.
	Extraction llm.CallConfig `json:"extraction" yaml:"extraction"`

	// Analysis routes the pre-generation review call.
	Analysis llm.CallConfig `json:"analysis" yaml:"analysis"`
}

// DefaultConfig returns the default configuration. Extraction runs cold
// so ids and descriptions track the document closely.
func DefaultConfig() Config {
	cold := 0.2
	return Config{
		Extraction: llm.CallConfig{Temperature: &cold},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	return nil
}
