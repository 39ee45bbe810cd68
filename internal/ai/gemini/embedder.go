package gemini

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/candidate-matcher/internal/ai"
	"github.com/spigell/candidate-matcher/internal/ranking"
)

const (
	defaultEmbeddingModel     = "text-embedding-004"
	defaultEmbeddingDimension = 768
	embeddingTaskType         = "SEMANTIC_SIMILARITY"
)

// Embedder produces embeddings through the Gemini embedContent API.
type Embedder struct {
	models    ModelService
	model     string
	dimension int
	opts      CallOptions
	logger    *zap.Logger
}

func NewEmbedder(models ModelService, model string, dimension int, opts CallOptions, logger *zap.Logger) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	if dimension <= 0 {
		dimension = defaultEmbeddingDimension
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		models:    models,
		model:     model,
		dimension: dimension,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

func (e *Embedder) Model() string { return e.model }

func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns the embedding of text. A vector of the wrong length is a
// *ranking.DimensionMismatchError, every other failure an *ai.EmbeddingError.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ai.EmbeddingError{Model: e.model, Err: errors.New("text must not be empty")}
	}

	dim := int32(e.dimension)
	config := &genai.EmbedContentConfig{
		TaskType:             embeddingTaskType,
		OutputDimensionality: &dim,
	}

	var values []float32
	err := withRetry(ctx, e.opts, e.logger, "embed content", func(ctx context.Context) error {
		resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), config)
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
			return errors.New("gemini api returned no embedding")
		}
		values = resp.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, &ai.EmbeddingError{Model: e.model, Err: err}
	}

	if len(values) != e.dimension {
		return nil, &ranking.DimensionMismatchError{Expected: e.dimension, Got: len(values), Source: e.model}
	}

	return values, nil
}
