package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

func TestNewRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{})
	assert.Nil(t, limiter)

	// A nil limiter never blocks and ignores failures
	limiter.Observe(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests})
	assert.NoError(t, limiter.Wait(context.Background()))
}

func TestRateLimiter_TokenBucket(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	require.NotNil(t, limiter)

	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx), "second call within a second must not get a token")
}

func TestRateLimiter_BacksOffAfter429(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1000, Burst: 10, Backoff: time.Hour})

	limiter.Observe(errors.New("connection reset"))
	require.NoError(t, limiter.Wait(context.Background()))

	limiter.Observe(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}))
	assert.True(t, isRateLimited(&openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests}))
	assert.True(t, isRateLimited(&openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests, Err: &openai.APIError{}}))
	assert.False(t, isRateLimited(&openai.APIError{HTTPStatusCode: http.StatusInternalServerError}))
	assert.False(t, isRateLimited(context.DeadlineExceeded))
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"api 500", &openai.APIError{HTTPStatusCode: http.StatusInternalServerError}, true},
		{"api 401", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}, false},
		{"request 503 wrapping empty api error", &openai.RequestError{HTTPStatusCode: http.StatusServiceUnavailable, Err: &openai.APIError{}}, true},
		{"request 400 wrapping empty api error", &openai.RequestError{HTTPStatusCode: http.StatusBadRequest, Err: &openai.APIError{}}, false},
		{"wrapped request 429", fmt.Errorf("embed: %w", &openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests}), true},
		{"deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetriable(tt.err))
		})
	}
}

func TestFactory_SharesRateLimiter(t *testing.T) {
	f := NewFactoryWithRateLimit(RateLimitConfig{RequestsPerSecond: 5, Burst: 10})

	embedding, err := f.CreateEmbeddingService(domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test"})
	require.NoError(t, err)
	generation, err := f.CreateGenerationBackend(domain.GenerationSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test"})
	require.NoError(t, err)

	require.NotNil(t, f.limiter)
	assert.Same(t, f.limiter, embedding.(*OpenAIEmbedding).limiter)
	assert.Same(t, f.limiter, generation.(*OpenAIGeneration).limiter)
}
