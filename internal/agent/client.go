// Package agent implements the natural-language query agents: an
// OpenAI-compatible chat client, a guarded NL-to-SQL agent, and an
// analytics endpoint planner with a rule-based fallback.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/tollgate-data/gantryflow/internal/httputil"
)

const (
	maxRetries   = 3
	initialDelay = 1 * time.Second
)

// Client speaks the OpenAI-compatible chat-completions protocol over raw
// HTTP. A nil key means no model is configured; callers check Enabled and
// use their fallbacks.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
	client  httputil.HTTPClient
}

// NewClient returns a chat client. httpClient may be nil, in which case the
// default client is used.
func NewClient(baseURL, model, apiKey string, timeout time.Duration, httpClient httputil.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(&http.Client{Timeout: timeout})
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		timeout: timeout,
		client:  httpClient,
	}
}

// Enabled reports whether a model key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the messages and returns the assistant's reply text.
// Retries with exponential backoff on rate limits, server errors, and
// network failures.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("no agent API key configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr chatError
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
				lastErr = fmt.Errorf("model API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
			} else {
				lastErr = fmt.Errorf("model API error (%d): %s", resp.StatusCode, string(respBody))
			}

			// Retry on rate limit or server errors only.
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return "", lastErr
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return "", fmt.Errorf("model returned no choices")
		}
		return parsed.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag, from model output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json", "sql").
		first := strings.TrimSpace(s[:idx])
		if first == "json" || first == "sql" || first == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
