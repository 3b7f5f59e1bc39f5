package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/microcosm-cc/bluemonday"

	"WeeklyTop/internal/config"
	"WeeklyTop/internal/domain"
	"WeeklyTop/internal/metrics"
	"WeeklyTop/internal/ports"
)

var (
	// ErrMissingCredential is returned before any network call when no API key is set.
	ErrMissingCredential = ports.ErrMissingCredential
	// ErrRateLimited reports that every attempt hit a rate or quota limit.
	ErrRateLimited = ports.ErrRateLimited
	// ErrMalformedResponse means the completion could not be parsed as an item list.
	ErrMalformedResponse = ports.ErrMalformedResponse
)

// ChatGPTClient implements ports.Enricher backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint      string
	model         string
	apiKey        string
	language      string
	systemPrompt  string
	maxAttempts   int
	initialDelay  time.Duration
	maxRetryDelay time.Duration
	httpClient    *http.Client
	policy        *bluemonday.Policy
	logger        *slog.Logger
	metrics       *metrics.Manager
}

var _ ports.Enricher = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.EnrichmentConfig, logger *slog.Logger, m *metrics.Manager) *ChatGPTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger != nil {
		logger = logger.With("component", "enrichment")
	}
	return &ChatGPTClient{
		endpoint:      cfg.Endpoint,
		model:         cfg.Model,
		apiKey:        strings.TrimSpace(cfg.APIKey),
		language:      cfg.Language,
		systemPrompt:  cfg.SystemPrompt,
		maxAttempts:   max(cfg.MaxAttempts, 1),
		initialDelay:  cfg.InitialDelay,
		maxRetryDelay: cfg.MaxRetryDelay,
		httpClient:    &http.Client{Timeout: timeout},
		policy:        bluemonday.StrictPolicy(),
		logger:        logger,
		metrics:       m,
	}
}

// Enrich asks the model for an artist summary and a short review of every
// ranked item in one batch. Results carry the rank they answer.
func (c *ChatGPTClient) Enrich(ctx context.Context, items []domain.EnrichmentRequest) ([]domain.Enrichment, error) {
	if c == nil {
		return nil, fmt.Errorf("chatgpt client is nil")
	}
	if len(items) == 0 {
		return []domain.Enrichment{}, nil
	}
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}
	if c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("chatgpt client misconfigured")
	}

	userPayload, err := json.Marshal(map[string]any{"items": items})
	if err != nil {
		return nil, fmt.Errorf("marshal enrichment items: %w", err)
	}
	body, err := json.Marshal(map[string]any{
		"model":           c.model,
		"temperature":     0.7,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": c.prompt()},
			{"role": "user", "content": string(userPayload)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	var content string
	attempt := 0
	operation := func() error {
		attempt++
		c.metrics.RecordEnrichmentAttempt()
		out, err := c.complete(ctx, body)
		if err != nil {
			c.debug("enrichment attempt failed", "attempt", attempt, "error", err)
			return err
		}
		content = out
		return nil
	}

	if err := backoff.Retry(operation, c.retryPolicy(ctx)); err != nil {
		return nil, err
	}

	enrichments, err := parseItems(content)
	if err != nil {
		return nil, err
	}
	for i := range enrichments {
		enrichments[i].ArtistName = c.clean(enrichments[i].ArtistName)
		enrichments[i].ArtistSummary = c.clean(enrichments[i].ArtistSummary)
		enrichments[i].EditorialReview = c.clean(enrichments[i].EditorialReview)
	}
	return enrichments, nil
}

func (c *ChatGPTClient) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if c.initialDelay > 0 {
		exp.InitialInterval = c.initialDelay
	}
	if c.maxRetryDelay > 0 {
		exp.MaxInterval = c.maxRetryDelay
	}
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxAttempts-1)), ctx)
}

// complete performs one HTTP round trip. Errors that should not be retried are
// wrapped in backoff.Permanent.
func (c *ChatGPTClient) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(fmt.Errorf("send enrichment request: %w", err))
		}
		return "", fmt.Errorf("send enrichment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		text := strings.TrimSpace(string(payload))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || mentionsRateLimit(text):
			return "", fmt.Errorf("%w: %s: %s", ErrRateLimited, resp.Status, text)
		case resp.StatusCode >= http.StatusInternalServerError:
			return "", fmt.Errorf("chatgpt error %s: %s", resp.Status, text)
		default:
			return "", backoff.Permanent(fmt.Errorf("chatgpt error %s: %s", resp.Status, text))
		}
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", backoff.Permanent(fmt.Errorf("%w: decode completion: %v", ErrMalformedResponse, err))
	}
	if len(completion.Choices) == 0 {
		return "", backoff.Permanent(fmt.Errorf("%w: no choices", ErrMalformedResponse))
	}
	return completion.Choices[0].Message.Content, nil
}

// parseItems accepts {"items":[...]} or a bare array. Anything else fails the
// whole batch.
func parseItems(content string) ([]domain.Enrichment, error) {
	content = strings.TrimSpace(stripFence(content))
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}

	var items []enrichmentItem
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return toEnrichments(items), nil
	}

	var wrapped struct {
		Items *[]enrichmentItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if wrapped.Items == nil {
		return nil, fmt.Errorf("%w: missing items", ErrMalformedResponse)
	}
	return toEnrichments(*wrapped.Items), nil
}

// enrichmentItem is the wire shape of one generated entry.
type enrichmentItem struct {
	Rank            looseRank `json:"rank"`
	ArtistName      string    `json:"artistName"`
	ArtistSummary   string    `json:"artistSummary"`
	EditorialReview string    `json:"editorialReview"`
}

// looseRank decodes 3, 3.0 and "3" alike. Fractional or non-numeric values
// are rejected.
type looseRank int

// UnmarshalJSON implements json.Unmarshaler.
func (r *looseRank) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*r = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("rank %s is not an integer", string(data))
	}
	*r = looseRank(f)
	return nil
}

func toEnrichments(items []enrichmentItem) []domain.Enrichment {
	out := make([]domain.Enrichment, 0, len(items))
	for _, it := range items {
		out = append(out, domain.Enrichment{
			Rank:            int(it.Rank),
			ArtistName:      it.ArtistName,
			ArtistSummary:   it.ArtistSummary,
			EditorialReview: it.EditorialReview,
		})
	}
	return out
}

// stripFence removes a ```json fence some models add despite JSON mode.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func mentionsRateLimit(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit")
}

func (c *ChatGPTClient) clean(s string) string {
	s = html.UnescapeString(c.policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

func (c *ChatGPTClient) prompt() string {
	if p := strings.TrimSpace(c.systemPrompt); p != "" {
		return p
	}
	language := strings.TrimSpace(c.language)
	if language == "" {
		language = "English"
	}
	return fmt.Sprintf(`You are a music editor writing a weekly album chart. Write in %s.
For every input item return an object with the same "rank", the "artistName" (correct it only if the input is "%s"), an "artistSummary" of two or three sentences about the artist, and an "editorialReview" of three to four sentences about the album.
Respond with JSON only: {"items":[{"rank":1,"artistName":"","artistSummary":"","editorialReview":""}]}`, language, domain.UnknownArtist)
}

func (c *ChatGPTClient) debug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}
