package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/casegen/llm/schema"
	"golang.org/x/time/rate"
)

// StructuredCompleter returns shape-validated JSON values. *Gateway is the
// production implementation.
type StructuredCompleter interface {
	Complete(ctx context.Context, prompt string, shape *schema.Schema, opts ...CompleteOption) (any, error)
}

// Gateway is the single point through which pipeline services obtain
// structured completions. It never retries and holds no per-call state.
type Gateway struct {
	completer   Completer
	limiter     *rate.Limiter
	temperature *float64
	logger      *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithRateLimit caps calls per second across every caller of the gateway.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) GatewayOption {
	return func(g *Gateway) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithDefaultTemperature sets the temperature used when a call does not
// specify one.
func WithDefaultTemperature(t float64) GatewayOption {
	return func(g *Gateway) {
		g.temperature = &t
	}
}

// NewGateway creates a gateway over completer.
func NewGateway(completer Completer, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		completer: completer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type completeOptions struct {
	intent      string
	capability  string
	temperature *float64
}

// CompleteOption configures a single gateway call.
type CompleteOption func(*completeOptions)

// WithIntent names the prompt for routing, logs and metrics.
func WithIntent(intent string) CompleteOption {
	return func(o *completeOptions) {
		o.intent = intent
	}
}

// WithCapability routes the call to a specific capability.
func WithCapability(capability string) CompleteOption {
	return func(o *completeOptions) {
		o.capability = capability
	}
}

// WithTemperature overrides the temperature for one call.
func WithTemperature(t float64) CompleteOption {
	return func(o *completeOptions) {
		o.temperature = &t
	}
}

// Complete sends prompt to the backend and returns the parsed JSON value,
// validated against shape when shape is non-nil. Errors are always one of
// *ServiceError, *MalformedResponseError or *InvalidShapeError.
func (g *Gateway) Complete(ctx context.Context, prompt string, shape *schema.Schema, opts ...CompleteOption) (any, error) {
	o := completeOptions{intent: "unspecified", temperature: g.temperature}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	value, outcome, err := g.complete(ctx, prompt, shape, o)
	elapsed := time.Since(start)

	gatewayCalls.WithLabelValues(o.intent, outcome).Inc()
	gatewayLatency.WithLabelValues(o.intent).Observe(elapsed.Seconds())

	if err != nil {
		g.logger.Debug("Structured completion failed",
			"intent", o.intent,
			"outcome", outcome,
			"duration", elapsed,
			"error", err)
		return nil, err
	}

	g.logger.Debug("Structured completion succeeded",
		"intent", o.intent,
		"duration", elapsed)
	return value, nil
}

func (g *Gateway) complete(ctx context.Context, prompt string, shape *schema.Schema, o completeOptions) (any, string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, outcomeService, &ServiceError{Intent: o.intent, Err: err}
		}
	}

	resp, err := g.completer.Complete(ctx, Request{
		Intent:      o.intent,
		Capability:  o.capability,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: o.temperature,
		Shape:       shape,
	})
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, outcomeService, &ServiceError{Intent: o.intent, Err: err}
	}

	wantArray := shape != nil && shape.Type == schema.TypeArray
	raw := ExtractValue(resp.Content, wantArray)
	if raw == "" {
		return nil, outcomeMalformed, &MalformedResponseError{
			Intent:  o.intent,
			Content: truncate(resp.Content, 500),
			Err:     errors.New("no JSON value in completion"),
		}
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, outcomeMalformed, &MalformedResponseError{
			Intent:  o.intent,
			Content: truncate(resp.Content, 500),
			Err:     err,
		}
	}

	if shape != nil {
		if err := shape.Validate(value); err != nil {
			return nil, outcomeInvalidShape, &InvalidShapeError{Intent: o.intent, Err: err}
		}
	}
	return value, outcomeOK, nil
}

// CompleteInto runs Complete and decodes the validated value into out,
// which must be a pointer.
func (g *Gateway) CompleteInto(ctx context.Context, prompt string, shape *schema.Schema, out any, opts ...CompleteOption) error {
	return CompleteInto(ctx, g, prompt, shape, out, opts...)
}

// CompleteInto is CompleteInto for any StructuredCompleter.
func CompleteInto(ctx context.Context, c StructuredCompleter, prompt string, shape *schema.Schema, out any, opts ...CompleteOption) error {
	value, err := c.Complete(ctx, prompt, shape, opts...)
	if err != nil {
		return err
	}
	return Decode(value, out)
}

// Decode converts a value returned by Complete into out. A mismatch is
// reported as *InvalidShapeError.
func Decode(value any, out any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &InvalidShapeError{Err: fmt.Errorf("re-encode response: %w", err)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &InvalidShapeError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// CallConfig is the per-service routing applied to every gateway call a
// processor makes. Zero values defer to the gateway defaults.
type CallConfig struct {
	// Capability overrides intent-based routing.
	Capability string `json:"capability,omitempty" yaml:"capability,omitempty"`
	// Temperature overrides the gateway default.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
}

// Options returns the call options for intent.
func (c CallConfig) Options(intent string) []CompleteOption {
	opts := []CompleteOption{WithIntent(intent)}
	if c.Capability != "" {
		opts = append(opts, WithCapability(c.Capability))
	}
	if c.Temperature != nil {
		opts = append(opts, WithTemperature(*c.Temperature))
	}
	return opts
}

// Validate checks the temperature range.
func (c CallConfig) Validate() error {
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", *c.Temperature)
	}
	return nil
}
