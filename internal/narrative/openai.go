package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cordonhq/cordon/internal/circuit"
	gerrors "github.com/cordonhq/cordon/internal/errors"
	"github.com/cordonhq/cordon/internal/models"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o-mini"

	requestTimeout = 15 * time.Second
	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
	maxRetryDelay  = 5 * time.Second
)

const systemPrompt = "You are a change-governance reviewer. In at most three sentences, " +
	"explain the risk assessment below to an on-call operator. Do not restate numbers " +
	"already present; add operational context only."

// OpenAIClient is an OpenAI-compatible chat client used purely for reason
// enrichment. Latency is bounded by a request timeout and a capped retry
// schedule; a shared circuit breaker stops calls to a degraded upstream.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	breaker *circuit.Breaker
}

// NewOpenAIClient creates a narrative client. Empty model or baseURL fall
// back to defaults.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
		breaker: circuit.NewBreaker("narrative", circuit.DefaultConfig()),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Augment implements Augmenter.
func (c *OpenAIClient) Augment(ctx context.Context, verdict *models.Verdict) (string, error) {
	if !c.breaker.Allow() {
		return "", gerrors.NewEvalError(gerrors.ErrorTypeNarrative, "augment", verdict.ActionID, fmt.Errorf("circuit open"))
	}

	prose, err := c.chatWithRetry(ctx, c.buildPrompt(verdict))
	if err != nil {
		c.breaker.RecordFailure(err)
		return "", gerrors.NewEvalError(gerrors.ErrorTypeNarrative, "augment", verdict.ActionID, err)
	}
	c.breaker.RecordSuccess()
	return prose, nil
}

func (c *OpenAIClient) buildPrompt(verdict *models.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Decision: %s\n", verdict.Decision)
	fmt.Fprintf(&b, "Action: %s by agent %s on %s (%s)\n",
		verdict.Action.ActionType, verdict.Action.AgentID,
		verdict.Action.Target.ResourceID, verdict.Action.Target.ResourceType)
	fmt.Fprintf(&b, "Composite risk: %.2f (infrastructure %.2f, policy %.2f, historical %.2f, cost %.2f)\n",
		verdict.Breakdown.Composite, verdict.Breakdown.Infrastructure,
		verdict.Breakdown.Policy, verdict.Breakdown.Historical, verdict.Breakdown.Cost)
	fmt.Fprintf(&b, "Reason: %s\n", verdict.Reason)
	return b.String()
}

// chatWithRetry performs up to maxAttempts requests with exponential delay,
// honoring Retry-After on rate-limit responses.
func (c *OpenAIClient) chatWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	delay := retryBaseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prose, retryAfter, err := c.chat(ctx, prompt)
		if err == nil {
			return prose, nil
		}
		lastErr = err
		if !gerrors.IsRetryableError(err) {
			return "", err
		}
		if attempt == maxAttempts {
			break
		}

		wait := delay
		if retryAfter > wait {
			wait = retryAfter
		}
		if wait > maxRetryDelay {
			wait = maxRetryDelay
		}
		log.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("Narrative request retrying")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}
	return "", lastErr
}

func (c *OpenAIClient) chat(ctx context.Context, prompt string) (prose string, retryAfter time.Duration, err error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 256,
	})
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, gerrors.NewEvalError(gerrors.ErrorTypeTimeout, "chat", c.model, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, parseErr := strconv.Atoi(resp.Header.Get("Retry-After")); parseErr == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
		return "", retryAfter, gerrors.NewEvalError(gerrors.ErrorTypeNarrative, "chat", c.model, gerrors.ErrRateLimited)
	case resp.StatusCode >= 500:
		return "", 0, gerrors.NewEvalError(gerrors.ErrorTypeTimeout, "chat", c.model,
			fmt.Errorf("upstream status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", 0, fmt.Errorf("narrative provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", 0, fmt.Errorf("decode narrative response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", 0, fmt.Errorf("narrative response had no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), 0, nil
}
