package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/candidate-matcher/internal/ai"
	"github.com/spigell/candidate-matcher/internal/ranking"
	"github.com/spigell/candidate-matcher/internal/utils"
)

const (
	ProviderName = "openai"

	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "text-embedding-3-small"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	baseRetryDelay    = 200 * time.Millisecond
	maxRetryDelay     = 5 * time.Second

	// Longer Retry-After hints are not waited out.
	maxAcceptedRetryAfter = 30 * time.Second
)

var waitFor = utils.WaitFor

// Config configures the OpenAI-compatible embeddings client. Mistral, Ollama
// and other servers exposing /embeddings work as well. LegacyPrompt sends the
// text as "prompt" instead of "input", for Ollama's /api/embeddings.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Dimension    int
	Timeout      time.Duration
	MaxRetries   int
	LegacyPrompt bool
}

// Client is an OpenAI-compatible embeddings client implementing ai.Embedder.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	timeout    time.Duration
	maxRetries int
	legacy     bool
	http       *http.Client
	logger     *zap.Logger
}

var _ ai.Embedder = (*Client)(nil)

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Dimension <= 0 {
		return nil, errors.New("embedding dimension must be positive")
	}
	if cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		legacy:     cfg.LegacyPrompt,
		http:       &http.Client{},
		logger:     logger,
	}, nil
}

func (c *Client) Model() string { return c.model }

func (c *Client) Dimension() int { return c.dimension }

type embedRequest struct {
	Input      string `json:"input,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type statusError struct {
	code       int
	status     string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return "embeddings request failed: " + e.status
}

func (e *statusError) temporary() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ai.EmbeddingError{Model: c.model, Err: errors.New("text must not be empty")}
	}

	body, err := json.Marshal(c.request(text))
	if err != nil {
		return nil, &ai.EmbeddingError{Model: c.model, Err: err}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		vec, err := c.do(ctx, body)
		if err == nil {
			if len(vec) != c.dimension {
				return nil, &ranking.DimensionMismatchError{Expected: c.dimension, Got: len(vec), Source: c.model}
			}
			return vec, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, &ai.EmbeddingError{Model: c.model, Err: ctx.Err()}
		}

		delay := utils.Backoff(baseRetryDelay, maxRetryDelay, attempt)
		var se *statusError
		if errors.As(err, &se) {
			if !se.temporary() {
				break
			}
			if se.retryAfter > maxAcceptedRetryAfter {
				c.logger.Warn("not retrying embeddings request",
					zap.Duration("retry_after", se.retryAfter),
					zap.Error(err),
				)
				break
			}
			if se.retryAfter > 0 {
				delay = se.retryAfter
			}
		}
		if attempt == c.maxRetries-1 {
			break
		}

		c.logger.Warn("retrying embeddings request",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := waitFor(ctx, delay); err != nil {
			return nil, &ai.EmbeddingError{Model: c.model, Err: err}
		}
	}

	return nil, &ai.EmbeddingError{Model: c.model, Err: lastErr}
}

func (c *Client) request(text string) embedRequest {
	if c.legacy {
		return embedRequest{Prompt: text, Model: c.model}
	}
	return embedRequest{Input: text, Model: c.model, Dimensions: c.dimension}
}

func (c *Client) do(ctx context.Context, body []byte) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		se := &statusError{code: resp.StatusCode, status: resp.Status}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			se.retryAfter = time.Duration(secs) * time.Second
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, se
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embeddings response: %w", err)
	}

	return decodeEmbedding(payload)
}

// decodeEmbedding accepts the OpenAI shape {"data":[{"embedding":[...]}]} and
// the Ollama shape {"embedding":[...]}.
func decodeEmbedding(payload []byte) ([]float32, error) {
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(out.Data) > 0 && len(out.Data[0].Embedding) > 0 {
		return out.Data[0].Embedding, nil
	}
	if len(out.Embedding) > 0 {
		return out.Embedding, nil
	}
	return nil, errors.New("no embedding returned")
}
