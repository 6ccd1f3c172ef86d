package llm

import (
	"net/http"
	"sort"
	"sync"

	"github.com/c360studio/casegen/llm/schema"
)

// Provider adapts the client to one backend wire format.
type Provider interface {
	// Name returns the provider identifier (e.g., "anthropic", "gemini").
	Name() string

	// BuildURL constructs the full API endpoint URL for model.
	BuildURL(baseURL, model string) string

	// SetHeaders adds provider-specific headers, including credentials read
	// from apiKeyEnv (or the provider default when empty).
	SetHeaders(req *http.Request, apiKeyEnv string)

	// BuildRequestBody creates the JSON request body. temperature is nil to
	// use the provider default. shape, when non-nil, is either forwarded as
	// a native response schema or described in the prompt.
	BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int,
		shape *schema.Schema) ([]byte, error)

	// ParseResponse extracts the completion from provider-specific JSON.
	ParseResponse(body []byte, model string) (*Response, error)
}

var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names, sorted.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ShapeInstruction renders the prompt suffix used by providers without
// native schema support.
func ShapeInstruction(shape *schema.Schema) string {
	return "\n\nRespond with JSON only, no prose and no markdown. The JSON value must have this structure:\n" +
		shape.Describe()
}
