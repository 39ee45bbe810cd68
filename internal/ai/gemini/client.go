package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/candidate-matcher/internal/utils"
)

const (
	ProviderName = "gemini"

	defaultModel          = "gemini-2.5-flash"
	defaultMaxRetries     = 3
	defaultTimeout        = 60 * time.Second
	baseRetryDelay        = time.Second
	maxRetryDelay         = 30 * time.Second
	maxAcceptedQuotaDelay = 30 * time.Second
)

var waitFor = utils.WaitFor

// ModelService is the subset of genai.Models used here.
type ModelService interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// NewClient creates a genai client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return client, nil
}

// CallOptions bound every call made to the API.
type CallOptions struct {
	// MaxRetries is the total number of attempts per call.
	MaxRetries int
	// Timeout applies to each attempt separately.
	Timeout time.Duration
}

func (o CallOptions) withDefaults() CallOptions {
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

// Generator sends prompts to a Gemini model and returns its JSON answer.
type Generator struct {
	models ModelService
	model  string
	opts   CallOptions
	logger *zap.Logger
}

func NewGenerator(models ModelService, model string, opts CallOptions, logger *zap.Logger) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models: models,
		model:  model,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// GenerateJSON asks the model for a JSON document. The system instruction is
// sent separately from the prompt.
func (g *Generator) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.1),
	}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	var output string
	err := withRetry(ctx, g.opts, g.logger, "generate content", func(ctx context.Context) error {
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
		if err != nil {
			return err
		}
		output = responseText(resp)
		if output == "" {
			return errors.New("gemini api returned empty response")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return output, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func withRetry(ctx context.Context, opts CallOptions, logger *zap.Logger, op string, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		err := call(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == opts.MaxRetries-1 {
			break
		}

		logger.Warn("retrying gemini call",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := waitFor(ctx, delay); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return fmt.Errorf("%s: %w", op, lastErr)
}

var retryAfterPattern = regexp.MustCompile(`(?i)retry(?:\s+after|\s+in|delay"?:?\s*"?)\s*([0-9]+(?:\.[0-9]+)?)\s*s`)

// retryDelay decides whether err is temporary and how long to wait before the
// next attempt. Quota errors announcing a long delay are not retried.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	delay := utils.Backoff(baseRetryDelay, maxRetryDelay, attempt)

	if errors.Is(err, context.DeadlineExceeded) {
		return delay, true
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) || apiErrPtr == nil {
			return 0, false
		}
		apiErr = *apiErrPtr
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		if announced, ok := announcedDelay(apiErr.Message); ok {
			if announced > maxAcceptedQuotaDelay {
				return 0, false
			}
			return announced, true
		}
		return delay, true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return delay, true
	default:
		return 0, false
	}
}

func announcedDelay(message string) (time.Duration, bool) {
	match := retryAfterPattern.FindStringSubmatch(message)
	if len(match) < 2 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
