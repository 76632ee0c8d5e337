package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) *Config {
	return &Config{
		APIKey:      "test-key",
		APIURL:      url,
		Model:       "test-model",
		MaxTokens:   1000,
		Temperature: 0.3,
		Timeout:     30,
	}
}

const okResponse = `{
	"id": "test-id",
	"object": "chat.completion",
	"created": 1234567890,
	"model": "test-model",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "[#1]\nHallo"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30}
}`

func TestNewClient(t *testing.T) {
	config := testConfig("https://api.example.com")

	client, err := NewClient(config)
	require.NoError(t, err)
	assert.Equal(t, config, client.config)
	assert.Equal(t, "test-model", client.Model())
	assert.NotNil(t, client.httpClient)

	_, err = NewClient(&Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "API key is required")
	assert.Contains(t, err.Error(), "model is required")
}

func TestConfig_Headers(t *testing.T) {
	config := testConfig("https://api.example.com")
	config.SiteURL = "https://example.org"
	config.AppName = "doc-translator"

	headers := http.Header{}
	config.setHeaders(headers)
	assert.Equal(t, "Bearer test-key", headers.Get("Authorization"))
	assert.Equal(t, "https://example.org", headers.Get("HTTP-Referer"))
	assert.Equal(t, "doc-translator", headers.Get("X-Title"))
	assert.Equal(t, "https://api.example.com/chat/completions", config.endpoint("/chat/completions"))

	config.APIURL = "https://api.example.com/v1/"
	assert.Equal(t, "https://api.example.com/v1/chat/completions", config.endpoint("/chat/completions"))
}

func TestClientWithMockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 1000, req.MaxTokens)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "translate", req.Messages[0].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	response, err := client.ChatCompletion(
		context.Background(),
		[]Message{{Role: "user", Content: "[#1]\nHello"}},
		NewChatCompletionOptions().WithSystemPrompt("translate"),
	)
	require.NoError(t, err)
	assert.Equal(t, "test-id", response.ID)
	assert.Equal(t, 30, response.Usage.TotalTokens)

	content, err := FirstChoiceContent(response)
	require.NoError(t, err)
	assert.Equal(t, "[#1]\nHallo", content)
}

func TestClientErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid API key", "type": "authentication_error", "code": "401"}}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid API key")

	var apiErr *Error
	assert.ErrorAs(t, err, &apiErr)
}

func TestInvalidJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.SimpleChat(context.Background(), "Hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestGatewayErrorWithHTMLBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.SimpleChat(context.Background(), "Hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestSimpleChat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.SimpleChat(context.Background(), "Hello", "system")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices in response")
}

func TestClientConcurrentRequests(t *testing.T) {
	var mu sync.Mutex
	count := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content, err := client.SimpleChat(context.Background(), "Hello", "")
			assert.NoError(t, err)
			assert.True(t, strings.HasPrefix(content, "[#1]"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, count)
}

func TestLiveChatCompletion(t *testing.T) {
	_ = godotenv.Load("../../.env")

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" || os.Getenv("LIVE_LLM_TESTS") == "" {
		t.Skip("set OPENAI_API_KEY and LIVE_LLM_TESTS to run against a live endpoint")
	}

	config := testConfig("https://api.openai.com/v1")
	config.APIKey = apiKey
	config.Model = "gpt-4o-mini"

	client, err := NewClient(config)
	require.NoError(t, err)

	content, err := client.SimpleChat(context.Background(), "[#1]\nGood morning", "Translate to German. Keep the [#n] tag.")
	require.NoError(t, err)
	assert.Contains(t, content, "[#1]")
}
