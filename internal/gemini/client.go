// Package gemini implements the language-model collaborator on top of
// Google's Gemini API: structured generation and text embeddings behind one
// retry and timeout policy.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/zmanimbot/internal/config"
)

// ErrEmptyResponse is returned when the model produced no usable text.
var ErrEmptyResponse = errors.New("gemini returned empty content")

// Request is one generation call. A non-nil Schema switches the call to JSON
// mode constrained by that schema.
type Request struct {
	SystemInstruction string
	Prompt            string
	Schema            *genai.Schema
}

// Client defines the language-model operations used throughout the bot.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type sdkClient struct {
	genaiClient    *genai.Client
	log            *slog.Logger
	temperature    float32
	modelName      string
	embeddingModel string
	policy         retryPolicy
}

// NewClient creates a Gemini client from configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName, "embedding_model", cfg.EmbeddingModel)
	return &sdkClient{
		genaiClient:    gi,
		log:            logger,
		temperature:    cfg.Temperature,
		modelName:      cfg.ModelName,
		embeddingModel: cfg.EmbeddingModel,
		policy: retryPolicy{
			maxRetries: cfg.MaxRetries,
			delay:      cfg.RetryDelay,
			timeout:    cfg.Timeout,
			log:        logger,
		},
	}, nil
}

func (c *sdkClient) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("gemini prompt is empty")
	}

	temperature := c.temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = req.Schema
	}
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	c.log.DebugContext(ctx, "Generating content", "model", c.modelName, "structured", req.Schema != nil, "prompt_length", len(req.Prompt))

	var resp *genai.GenerateContentResponse
	err := c.policy.do(ctx, "generate", func(ctx context.Context) error {
		var err error
		resp, err = c.genaiClient.Models.GenerateContent(ctx, c.modelName, contents, cfg)
		return err
	})
	if err != nil {
		return "", err
	}
	return c.extractText(ctx, resp)
}

func (c *sdkClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	var resp *genai.EmbedContentResponse
	err := c.policy.do(ctx, "embed", func(ctx context.Context) error {
		var err error
		resp, err = c.genaiClient.Models.EmbedContent(ctx, c.embeddingModel, contents, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini embedding %d is empty", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

func (c *sdkClient) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("gemini request blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("%w, finish reason: %s", ErrEmptyResponse, finishReason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateJSON runs a structured request and decodes the answer into out.
// Malformed JSON is an error.
func GenerateJSON(ctx context.Context, c Client, req Request, out any) error {
	if req.Schema == nil {
		return fmt.Errorf("structured request requires a schema")
	}
	text, err := c.Generate(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), out); err != nil {
		return fmt.Errorf("invalid JSON received from model: %w", err)
	}
	return nil
}

// stripCodeFence removes a markdown code fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// retryPolicy bounds every attempt by timeout and retries transient
// failures up to maxRetries times.
type retryPolicy struct {
	maxRetries int
	delay      time.Duration
	timeout    time.Duration
	log        *slog.Logger
}

func (p retryPolicy) do(ctx context.Context, op string, call func(ctx context.Context) error) error {
	var err error
	for i := 0; i <= p.maxRetries; i++ {
		err = p.attempt(ctx, call)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("gemini %s canceled: %w", op, ctx.Err())
		}

		p.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "operation", op, "attempt", i+1, "max_retries", p.maxRetries, "error", err)
		if !retriable(err) {
			return fmt.Errorf("gemini %s failed: %w", op, err)
		}
		if i < p.maxRetries {
			p.log.InfoContext(ctx, "Retrying Gemini API call", "operation", op, "delay", p.delay)
			select {
			case <-ctx.Done():
				return fmt.Errorf("gemini %s canceled: %w", op, ctx.Err())
			case <-time.After(p.delay):
			}
		}
	}
	p.log.ErrorContext(ctx, "Gemini API call failed after max retries", "operation", op, "error", err)
	return fmt.Errorf("gemini %s failed after %d retries: %w", op, p.maxRetries, err)
}

func (p retryPolicy) attempt(ctx context.Context, call func(ctx context.Context) error) error {
	if p.timeout <= 0 {
		return call(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return call(attemptCtx)
}

func retriable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 503:
			return true
		}
	}
	return false
}
