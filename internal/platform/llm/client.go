package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/pkg/config"
)

// Client talks to an OpenAI-compatible chat completion gateway.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
	log     *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: cfg.LLM.BaseURL,
		apiKey:  cfg.LLM.APIKey,
		model:   cfg.LLM.Model,
		httpc:   &http.Client{Timeout: 90 * time.Second},
		log:     log,
	}
}

// Message is one chat turn in the gateway's wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete runs one system+user exchange and returns the assistant
// text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	return c.Chat(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
}

// Chat sends a full conversation and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	payload := struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}{
		Model:    c.model,
		Messages: messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm request: status %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("llm response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm response: no choices")
	}
	return out.Choices[0].Message.Content, nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
