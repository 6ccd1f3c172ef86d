// Package config provides configuration loading and management for casegen.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	requirementextractor "github.com/c360studio/casegen/processor/requirement-extractor"
	suiteanalyzer "github.com/c360studio/casegen/processor/suite-analyzer"
	testcaseassistant "github.com/c360studio/casegen/processor/testcase-assistant"
	testcasegenerator "github.com/c360studio/casegen/processor/testcase-generator"
	"github.com/c360studio/casegen/source"
	"github.com/c360studio/casegen/source/parser"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config represents the complete casegen configuration.
type Config struct {
	// Workspace is the directory holding the local store (auto-detected
	// from git if empty).
	Workspace  string           `yaml:"workspace"`
	Model      ModelConfig      `yaml:"model"`
	Generation GenerationConfig `yaml:"generation"`
	Storage    StorageConfig    `yaml:"storage"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ModelConfig configures completion backends.
type ModelConfig struct {
	// Registry is a JSON model registry file. Empty uses the built-in
	// registry.
	Registry string `yaml:"registry"`
	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	// Timeout bounds a single HTTP request to a backend.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	// MaxAttempts is the number of tries per endpoint.
	MaxAttempts int `yaml:"max_attempts" validate:"gte=1,lte=10"`
	// Fallback enables capability fallback chains.
	Fallback bool `yaml:"fallback"`
}

// GenerationConfig configures the pipeline services.
type GenerationConfig struct {
	// Pacing is the pause between orchestrator steps.
	Pacing time.Duration `yaml:"pacing" validate:"gte=0"`
	// RateLimit caps gateway calls per second; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	// Burst is the rate limiter burst size.
	Burst int `yaml:"burst" validate:"gte=0"`

	Extractor requirementextractor.Config `yaml:"extractor"`
	Generator testcasegenerator.Config    `yaml:"generator"`
	Assistant testcaseassistant.Config    `yaml:"assistant"`
	Analyzer  suiteanalyzer.Config        `yaml:"analyzer"`
}

// StorageConfig selects the workspace backend.
type StorageConfig struct {
	// Backend is "sqlite" or "nats".
	Backend string `yaml:"backend" validate:"oneof=sqlite nats"`
	// Path is the SQLite file, relative to the workspace unless absolute.
	Path string `yaml:"path" validate:"required_if=Backend sqlite"`
	// NATSURL is the server for the nats backend.
	NATSURL string `yaml:"nats_url" validate:"required_if=Backend nats"`
	// Bucket is the KV bucket for the nats backend.
	Bucket string `yaml:"bucket"`
}

// IngestConfig configures document discovery and watching.
type IngestConfig struct {
	// Include lists glob patterns selecting input documents.
	Include []string `yaml:"include"`
	// Extensions limits directory expansion to these file types.
	Extensions []string `yaml:"extensions" validate:"dive,startswith=."`
	// ExcludeDirs lists directory names the watcher skips.
	ExcludeDirs []string `yaml:"exclude_dirs"`
	// Debounce is how long the watcher waits for changes to settle.
	Debounce time.Duration `yaml:"debounce" validate:"gt=0"`
}

// MetricsConfig configures the Prometheus endpoint served by watch.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Temperature: 0.4,
			Timeout:     3 * time.Minute,
			MaxAttempts: 1,
		},
		Generation: GenerationConfig{
			Extractor: requirementextractor.DefaultConfig(),
			Generator: testcasegenerator.DefaultConfig(),
			Assistant: testcaseassistant.DefaultConfig(),
			Analyzer:  suiteanalyzer.DefaultConfig(),
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    filepath.Join(".casegen", "workspace.db"),
		},
		Ingest: IngestConfig{
			Extensions:  parser.SupportedExtensions(),
			ExcludeDirs: []string{".git", "node_modules", "vendor"},
			Debounce:    500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fieldPath(fe.Namespace()), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := source.ValidatePatterns(c.Ingest.Include); err != nil {
		return fmt.Errorf("ingest.include: %w", err)
	}
	if err := c.Generation.Extractor.Validate(); err != nil {
		return fmt.Errorf("generation.extractor: %w", err)
	}
	if err := c.Generation.Generator.Validate(); err != nil {
		return fmt.Errorf("generation.generator: %w", err)
	}
	if err := c.Generation.Assistant.Validate(); err != nil {
		return fmt.Errorf("generation.assistant: %w", err)
	}
	if err := c.Generation.Analyzer.Validate(); err != nil {
		return fmt.Errorf("generation.analyzer: %w", err)
	}
	return nil
}

// fieldPath turns "Config.Storage.NATSURL" into "Storage.NATSURL".
func fieldPath(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return rest
}

// StoragePath returns the SQLite path resolved against the workspace.
func (c *Config) StoragePath() string {
	if filepath.IsAbs(c.Storage.Path) || c.Workspace == "" {
		return c.Storage.Path
	}
	return filepath.Join(c.Workspace, c.Storage.Path)
}

// LoadFromFile loads defaults overlaid with a YAML file.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.MergeFile(path); err != nil {
		return nil, err
	}
	return config, nil
}

// MergeFile overlays a YAML file onto c. Keys absent from the file keep
// their current values. ${VAR} references are expanded from the
// environment before parsing.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := c.MergeYAML(data); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// MergeYAML overlays YAML data onto c. Unknown keys are rejected.
func (c *Config) MergeYAML(data []byte) error {
	expanded := os.ExpandEnv(string(data))
	if strings.TrimSpace(expanded) == "" {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
