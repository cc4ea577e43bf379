package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Ensure OpenAIGeneration implements GenerationBackend
var _ driven.GenerationBackend = (*OpenAIGeneration)(nil)

const (
	// DefaultChatModel is used when no model is configured
	DefaultChatModel = "gpt-4o"

	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1024
)

// OpenAIGeneration is the Hosted generation variant, using chat completions
type OpenAIGeneration struct {
	client      *openai.Client
	httpClient  *http.Client
	model       string
	temperature float32
	maxTokens   int
	limiter     *RateLimiter
}

// NewOpenAIGeneration creates a hosted generation backend
func NewOpenAIGeneration(settings domain.GenerationSettings) (*OpenAIGeneration, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidInput)
	}
	model := settings.Model
	if model == "" {
		model = DefaultChatModel
	}
	maxTokens := settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	httpClient := &http.Client{Timeout: 120 * time.Second}
	return &OpenAIGeneration{
		client:      openai.NewClientWithConfig(clientConfig(settings.APIKey, settings.BaseURL, httpClient)),
		httpClient:  httpClient,
		model:       model,
		temperature: settings.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Generate sends the prompt's system and user messages
func (g *OpenAIGeneration) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	var messages []openai.ChatCompletionMessage
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		g.limiter.Observe(err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return content, nil
}

// Name returns "openai"
func (g *OpenAIGeneration) Name() string {
	return string(domain.AIProviderOpenAI)
}

// Ping lists models to verify connectivity and credentials
func (g *OpenAIGeneration) Ping(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Model returns the chat model name
func (g *OpenAIGeneration) Model() string {
	return g.model
}

// Close releases idle connections
func (g *OpenAIGeneration) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}
