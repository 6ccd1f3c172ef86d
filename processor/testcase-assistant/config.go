package testcaseassistant

import (
	"fmt"

	"github.com/c360studio/casegen/llm"
)

// Config holds per-operation routing for the assistant.
type Config struct {
	Improve  llm.CallConfig `json:"improve" yaml:"improve"`
	Automate llm.CallConfig `json:"automate" yaml:"automate"`
	Heal     llm.CallConfig `json:"heal" yaml:"heal"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for name, call := range map[string]llm.CallConfig{"improve": c.Improve, "automate": c.Automate, "heal": c.Heal} {
		if err := call.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
