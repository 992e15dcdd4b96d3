// Package compat is a completion client for OpenAI-compatible chat endpoints.
package compat

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	ErrorResponse = "Error contacting completion API."
	NoResponse    = "No response."
)

var ErrNoResponse = errors.New("empty response")

type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a client. An empty baseURL keeps the library default.
// Retries are disabled: one best-effort call per prompt.
func NewClient(apiKey, baseURL, model string, opts ...option.RequestOption) *Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &Client{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}
}

// Generate sends prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrNoResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) string {
	text, err := c.Generate(ctx, prompt)
	switch {
	case err == nil:
		return text
	case errors.Is(err, ErrNoResponse):
		return NoResponse
	default:
		log.Printf("Completion API error: %v", err)
		return ErrorResponse
	}
}
