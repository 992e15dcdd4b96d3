package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = "/v1beta/models/gemini-2.0-flash:generateContent"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-key")
	client.apiURL = server.URL + testPath
	return client
}

func TestComplete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, testPath, r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 1)
		assert.Equal(t, "the prompt", req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello there."},{"text":"ignored"}]}}]}`))
	})

	assert.Equal(t, "Hello there.", client.Complete(context.Background(), "the prompt"))
}

func TestComplete_RequestBodyShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, map[string]any{
			"contents": []any{
				map[string]any{"parts": []any{map[string]any{"text": "p"}}},
			},
		}, raw)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	assert.Equal(t, "ok", client.Complete(context.Background(), "p"))
}

func TestComplete_MissingText(t *testing.T) {
	bodies := map[string]string{
		"Empty candidates": `{"candidates":[]}`,
		"No candidates":    `{}`,
		"No content":       `{"candidates":[{"finishReason":"SAFETY"}]}`,
		"No parts":         `{"candidates":[{"content":{"parts":[]}}]}`,
		"Empty text":       `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			assert.Equal(t, NoResponse, client.Complete(context.Background(), "p"))

			_, err := client.Generate(context.Background(), "p")
			assert.ErrorIs(t, err, ErrNoResponse)
		})
	}
}

func TestComplete_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota"}}`))
	})

	assert.Equal(t, ErrorResponse, client.Complete(context.Background(), "p"))

	_, err := client.Generate(context.Background(), "p")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "quota")
}

func TestComplete_InvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	assert.Equal(t, ErrorResponse, client.Complete(context.Background(), "p"))
}

func TestComplete_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient("test-key")
	client.apiURL = server.URL + testPath
	server.Close()

	assert.Equal(t, ErrorResponse, client.Complete(context.Background(), "p"))
}

func TestComplete_Cancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"late"}]}}]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, ErrorResponse, client.Complete(ctx, "p"))
}

func TestGenerate_MissingKey(t *testing.T) {
	_, err := NewClient("").Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not configured")
}

func TestFallbacksDistinct(t *testing.T) {
	assert.NotEqual(t, NoResponse, ErrorResponse)
}

func TestWithModel(t *testing.T) {
	client := NewClient("k", WithModel("gemini-1.5-pro"))
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:generateContent", client.apiURL)

	client = NewClient("k", WithModel(""))
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent", client.apiURL)
}
