package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"
)

var (
	// ErrGeneration wraps every failure of the text-generation service.
	ErrGeneration = errors.New("generation service failed")

	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrTimeout       = errors.New("timed out")
	ErrEmptyResponse = errors.New("empty response")
)

type Request struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator turns a system prompt and a user message into generated text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// LangchainGenerator calls any OpenAI-compatible chat completion endpoint
// through langchaingo.
type LangchainGenerator struct {
	model  llms.Model
	logger *zap.Logger
}

func NewLangchainGenerator(cfg Config, logger *zap.Logger) (*LangchainGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing api key", ErrUnauthorized)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return NewGenerator(client, logger), nil
}

// NewGenerator wraps an existing langchaingo model
func NewGenerator(model llms.Model, logger *zap.Logger) *LangchainGenerator {
	return &LangchainGenerator{model: model, logger: logger}
}

func (g *LangchainGenerator) Generate(ctx context.Context, req Request) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.User),
	}

	opts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}

	resp, err := g.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		err = classify(ctx, err)
		g.logger.Error("generation failed", zap.String("model", req.Model), zap.Error(err))
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", ErrGeneration, ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	g.logger.Debug("generation completed",
		zap.String("model", req.Model),
		zap.String("stop_reason", choice.StopReason),
		zap.Int("chars", len(choice.Content)))

	return choice.Content, nil
}

// classify wraps err in ErrGeneration and, when recognisable, in the matching
// failure kind.
func classify(ctx context.Context, err error) error {
	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w: %w", ErrGeneration, ErrTimeout, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return fmt.Errorf("%w: %w: %w", ErrGeneration, ErrRateLimited, err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		return fmt.Errorf("%w: %w: %w", ErrGeneration, ErrUnauthorized, err)
	default:
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}
}
