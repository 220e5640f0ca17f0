// Package llm implements the embedding and generation collaborators on the
// OpenAI API. Failures are returned to callers and absorbed there; this
// layer adds per-call timeouts but deliberately no retries.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/pkg/logger"
)

// EmbeddingCache keeps embeddings of previously seen texts. Implemented by
// the redis cache; nil disables caching.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

type Client struct {
	client         *openai.Client
	model          string
	fallbackModel  string
	embeddingModel string
	temperature    float32
	maxTokens      int
	timeout        time.Duration
	cache          EmbeddingCache
	cacheTTL       time.Duration
}

type Options struct {
	APIKey         string
	Model          string
	FallbackModel  string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
	Cache          EmbeddingCache
	CacheTTL       time.Duration
}

func NewClient(opts Options) *Client {
	timeout := time.Duration(opts.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	logger.Info("LLM client initialized",
		zap.String("model", opts.Model),
		zap.String("embedding_model", opts.EmbeddingModel),
	)

	return &Client{
		client:         openai.NewClient(opts.APIKey),
		model:          opts.Model,
		fallbackModel:  opts.FallbackModel,
		embeddingModel: opts.EmbeddingModel,
		temperature:    opts.Temperature,
		maxTokens:      opts.MaxTokens,
		timeout:        timeout,
		cache:          opts.Cache,
		cacheTTL:       opts.CacheTTL,
	}
}

// Complete issues one chat completion with the primary model.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, c.model, systemPrompt, userPrompt, c.temperature, c.maxTokens)
}

// CompleteLight issues one chat completion with the cheaper fallback model,
// used for auxiliary calls such as classification and web-style lookups.
func (c *Client) CompleteLight(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := c.fallbackModel
	if model == "" {
		model = c.model
	}
	return c.complete(ctx, model, systemPrompt, userPrompt, c.temperature, c.maxTokens)
}

func (c *Client) complete(ctx context.Context, model, systemPrompt, userPrompt string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	logger.Debug("Completion generated",
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector of the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	textHash := hashText(text)

	if c.cache != nil {
		if embedding, ok, err := c.cache.GetEmbedding(ctx, textHash); err == nil && ok {
			return embedding, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(
		ctx,
		openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.embeddingModel),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	embedding := make([]float32, len(resp.Data[0].Embedding))
	copy(embedding, resp.Data[0].Embedding)

	if c.cache != nil {
		if err := c.cache.SetEmbedding(ctx, textHash, embedding, c.cacheTTL); err != nil {
			logger.Warn("Failed to cache embedding", zap.Error(err))
		}
	}

	return embedding, nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
