package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
)

const (
	defaultGeminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel         = "gemini-2.0-flash"
)

// Fallback answers returned by Complete. They must stay distinct.
const (
	ErrorResponse = "Error contacting Gemini API."
	NoResponse    = "No response."
)

// ErrNoResponse is returned by Generate when the answer has no candidate text.
var ErrNoResponse = errors.New("no candidate text in response")

// APIError captures non-2xx responses to allow inspection of the status code.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error (status %d): %s", e.StatusCode, e.Body)
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey string
	client *http.Client
	apiURL string
}

// Option configures a Client.
type Option func(*Client)

// WithModel selects the model used in the endpoint path.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.apiURL = modelURL(defaultGeminiAPIBase, model)
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func modelURL(base, model string) string {
	return fmt.Sprintf("%s/%s:generateContent", base, model)
}

// NewClient creates a new Gemini client. No request timeout is set; callers
// bound a request through its context.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey: apiKey,
		client: &http.Client{},
		apiURL: modelURL(defaultGeminiAPIBase, defaultModel),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Request types for Gemini API
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// text follows candidates[0].content.parts[0].text.
func (r *geminiResponse) text() (string, bool) {
	if len(r.Candidates) == 0 {
		return "", false
	}
	content := r.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", false
	}
	text := content.Parts[0].Text
	return text, text != ""
}

// Generate sends prompt and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini API key not configured")
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s?key=%s", c.apiURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyStr := string(bodyBytes)
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "...(truncated)"
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(bodyBytes, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	text, ok := geminiResp.text()
	if !ok {
		return "", ErrNoResponse
	}
	return text, nil
}

// Complete is Generate for the chat surface: it always returns something to show.
func (c *Client) Complete(ctx context.Context, prompt string) string {
	text, err := c.Generate(ctx, prompt)
	switch {
	case err == nil:
		return text
	case errors.Is(err, ErrNoResponse):
		return NoResponse
	default:
		log.Printf("Gemini API error: %v", err)
		return ErrorResponse
	}
}
