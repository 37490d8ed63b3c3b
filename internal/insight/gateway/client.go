// Package gateway implements the insight generator against an OpenAI-style
// chat completions endpoint.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"interview-backend/internal/insight"
	"interview-backend/internal/logger"
)

const defaultTimeout = 60 * time.Second

// Client calls a chat completions API and parses the JSON feedback out of
// the first choice.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetry   time.Duration
	log        *logrus.Entry
}

// NewClient constructs a gateway client. baseURL is the full completions
// endpoint, for example https://api.openai.com/v1/chat/completions.
func NewClient(baseURL, apiKey, model string, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("insight gateway URL is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("insight gateway model is required")
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetry:   90 * time.Second,
		log:        log.Component("insight-gateway"),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate builds the prompt, calls the gateway with retries, and parses
// the structured feedback. Client errors (4xx) are not retried.
func (c *Client) Generate(ctx context.Context, input insight.Input) (*insight.Insight, error) {
	temp := float32(0.4)
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You respond with strict JSON only."},
			{Role: "user", Content: buildPrompt(input)},
		},
		Temperature: &temp,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	var out *insight.Insight
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			return lastErr
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = err
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("insight gateway status %d: %s", resp.StatusCode, truncate(body, 300))
			if resp.StatusCode < 500 {
				return backoff.Permanent(lastErr)
			}
			return lastErr
		}

		parsed, err := parseChatBody(body, input.SessionID)
		if err != nil {
			lastErr = err
			return lastErr
		}
		out = parsed
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetry
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("insight generation failed: %w", lastErr)
	}

	c.log.WithField("session_id", input.SessionID).
		WithField("total_tokens", out.Usage.TotalTokens).
		Info("insight generated")
	return out, nil
}

func parseChatBody(body []byte, sessionID string) (*insight.Insight, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("insight gateway response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("insight gateway error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("insight gateway response missing choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("insight gateway response empty content")
	}

	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON found in insight gateway output for session %s", sessionID)
	}

	var result insight.Insight
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("insight JSON parse: %w", err)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, fmt.Errorf("insight missing summary")
	}
	if parsed.Usage != nil {
		result.Usage = insight.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return &result, nil
}

// extractJSON pulls the first balanced top-level JSON object out of model
// output, tolerating markdown fences and prose around it.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ insight.Generator = (*Client)(nil)
