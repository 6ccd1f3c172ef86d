package providers

import (
	"net/http"
	"os"

	"github.com/c360studio/casegen/llm"
)

// OpenAIProvider targets the hosted OpenAI API or OpenRouter. It shares the
// request and response format with OllamaProvider.
type OpenAIProvider struct {
	OllamaProvider
}

func init() {
	llm.RegisterProvider(&OpenAIProvider{})
}

// Name returns the provider identifier.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// BuildURL constructs the OpenAI chat completions endpoint.
func (o *OpenAIProvider) BuildURL(baseURL, _ string) string {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return chatCompletionsURL(baseURL)
}

// SetHeaders adds OpenAI authentication and optional OpenRouter headers.
func (o *OpenAIProvider) SetHeaders(req *http.Request, apiKeyEnv string) {
	o.OllamaProvider.SetHeaders(req, apiKeyEnv)

	if siteURL := os.Getenv("OPENROUTER_SITE_URL"); siteURL != "" {
		req.Header.Set("HTTP-Referer", siteURL)
	}
	if siteName := os.Getenv("OPENROUTER_SITE_NAME"); siteName != "" {
		req.Header.Set("X-Title", siteName)
	}
}
