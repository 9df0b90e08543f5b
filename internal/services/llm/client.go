package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer returns the assistant text for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// ChatClient talks to an OpenAI compatible /chat/completions endpoint.
type ChatClient struct {
	base        *HTTPServiceBase
	model       string
	temperature float64
	maxTokens   int
}

type ChatOption func(*ChatClient)

func WithTemperature(t float64) ChatOption {
	return func(c *ChatClient) { c.temperature = t }
}

func WithMaxTokens(n int) ChatOption {
	return func(c *ChatClient) { c.maxTokens = n }
}

func NewChatClient(baseURL, apiKey, model string, timeout time.Duration, opts ...ChatOption) *ChatClient {
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	c := &ChatClient{
		base:  NewHTTPServiceBase("llm", strings.TrimRight(baseURL, "/"), timeout, headers),
		model: model,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends one non-streaming completion request.
func (c *ChatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	var resp chatResponse
	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if err := c.base.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Completer = (*ChatClient)(nil)
