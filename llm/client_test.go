package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c360studio/casegen/llm"
	_ "github.com/c360studio/casegen/llm/providers" // Register providers
	"github.com/c360studio/casegen/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatHandler answers in OpenAI-compatible format with content.
func chatHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": "test-model",
			"choices": []map[string]any{{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 8, "total_tokens": 18},
		})
	}
}

// singleEndpointRegistry routes the generation capability to url.
func singleEndpointRegistry(url string) *model.Registry {
	return model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityGeneration: {Preferred: []string{"local"}},
		},
		map[string]*model.EndpointConfig{
			"local": {Provider: "ollama", URL: url, Model: "test-model"},
		},
	)
}

func fastRetry(attempts int) llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:       attempts,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        10 * time.Millisecond,
	}
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []*llm.CallRecord
}

func (m *memoryRecorder) RecordCall(_ context.Context, r *llm.CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func userMessage(content string) []llm.Message {
	return []llm.Message{{Role: "user", Content: content}}
}

func TestClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		chatHandler(`[]`)(w, r)
	}))
	defer server.Close()

	recorder := &memoryRecorder{}
	client := llm.NewClient(singleEndpointRegistry(server.URL), llm.WithCallRecorder(recorder))

	resp, err := client.Complete(context.Background(), llm.Request{
		Intent:   "generate-test-cases",
		Messages: userMessage("Generate"),
	})

	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Content)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.RequestID)

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.Equal(t, resp.RequestID, rec.RequestID)
	assert.Equal(t, "generate-test-cases", rec.Intent)
	assert.Equal(t, "generation", rec.Capability)
	assert.Equal(t, "ollama", rec.Provider)
	assert.Empty(t, rec.Error)
}

func TestClient_Complete_SingleAttemptByDefault(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := llm.NewClient(singleEndpointRegistry(server.URL))
	_, err := client.Complete(context.Background(), llm.Request{Intent: "generate-test-cases", Messages: userMessage("x")})

	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_Complete_RetryWhenConfigured(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		chatHandler("after retries")(w, r)
	}))
	defer server.Close()

	client := llm.NewClient(singleEndpointRegistry(server.URL), llm.WithRetryConfig(fastRetry(3)))
	resp, err := client.Complete(context.Background(), llm.Request{Intent: "generate-test-cases", Messages: userMessage("x")})

	require.NoError(t, err)
	assert.Equal(t, "after retries", resp.Content)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_Complete_NoRetryOnFatalError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid API key"))
	}))
	defer server.Close()

	client := llm.NewClient(singleEndpointRegistry(server.URL), llm.WithRetryConfig(fastRetry(3)))
	_, err := client.Complete(context.Background(), llm.Request{Intent: "generate-test-cases", Messages: userMessage("x")})

	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_Complete_Fallback(t *testing.T) {
	var primaryAttempts, fallbackAttempts atomic.Int32

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		primaryAttempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackAttempts.Add(1)
		chatHandler("from fallback")(w, r)
	}))
	defer fallback.Close()

	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityAnalysis: {Preferred: []string{"primary"}, Fallback: []string{"secondary"}},
		},
		map[string]*model.EndpointConfig{
			"primary":   {Provider: "ollama", URL: primary.URL, Model: "primary-model"},
			"secondary": {Provider: "ollama", URL: fallback.URL, Model: "fallback-model"},
		},
	)

	t.Run("disabled by default", func(t *testing.T) {
		client := llm.NewClient(registry)
		_, err := client.Complete(context.Background(), llm.Request{Intent: "detect-duplicates", Messages: userMessage("x")})
		require.Error(t, err)
		assert.Equal(t, int32(0), fallbackAttempts.Load())
	})

	t.Run("enabled", func(t *testing.T) {
		registry.ResetEndpointHealth("primary")
		primaryAttempts.Store(0)

		client := llm.NewClient(registry, llm.WithFallback(true), llm.WithRetryConfig(fastRetry(2)))
		resp, err := client.Complete(context.Background(), llm.Request{Capability: "analysis", Messages: userMessage("x")})

		require.NoError(t, err)
		assert.Equal(t, "from fallback", resp.Content)
		assert.Equal(t, int32(2), primaryAttempts.Load())
		assert.Equal(t, int32(1), fallbackAttempts.Load())
	})
}

func TestClient_Complete_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := llm.NewClient(singleEndpointRegistry(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, llm.Request{Intent: "generate-test-cases", Messages: userMessage("x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Complete_ForwardsShapeAndMaxTokens(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		chatHandler(`{"script":"x"}`)(w, r)
	}))
	defer server.Close()

	registry := singleEndpointRegistry(server.URL)
	registry.GetEndpoint("local").MaxTokens = 777

	client := llm.NewClient(registry)
	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "generation",
		Messages:   userMessage("x"),
		Shape:      automationShape(),
	})
	require.NoError(t, err)
	assert.Equal(t, float64(777), body["max_tokens"])
	assert.NotNil(t, body["response_format"])
}

func TestClient_Complete_NoMessages(t *testing.T) {
	client := llm.NewClient(model.NewDefaultRegistry())
	_, err := client.Complete(context.Background(), llm.Request{Intent: "generate-test-cases"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one message is required")
}

func TestClient_Complete_UnknownProvider(t *testing.T) {
	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{model.CapabilityFast: {Preferred: []string{"x"}}},
		map[string]*model.EndpointConfig{"x": {Provider: "carrier-pigeon", Model: "x"}},
	)
	client := llm.NewClient(registry)
	_, err := client.Complete(context.Background(), llm.Request{Capability: "fast", Messages: userMessage("x")})
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
}
