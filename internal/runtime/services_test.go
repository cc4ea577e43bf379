package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// mockEmbeddingService is a mock implementation for testing
type mockEmbeddingService struct {
	healthCheckErr error
	closed         bool
}

func (m *mockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return 384
}

func (m *mockEmbeddingService) Model() string {
	return "test-model"
}

func (m *mockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.healthCheckErr
}

func (m *mockEmbeddingService) Close() error {
	m.closed = true
	return nil
}

// mockGenerationBackend is a mock implementation for testing
type mockGenerationBackend struct {
	name    string
	pingErr error
	closed  bool
}

func (m *mockGenerationBackend) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	return "", nil
}

func (m *mockGenerationBackend) Name() string {
	return m.name
}

func (m *mockGenerationBackend) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockGenerationBackend) Close() error {
	m.closed = true
	return nil
}

// mockFactory hands out preset services and records requested providers
type mockFactory struct {
	embedding    driven.EmbeddingService
	embeddingErr error
	backends     map[domain.AIProvider]driven.GenerationBackend
	requested    []domain.AIProvider
}

func (f *mockFactory) CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if f.embeddingErr != nil {
		return nil, f.embeddingErr
	}
	return f.embedding, nil
}

func (f *mockFactory) CreateGenerationBackend(settings domain.GenerationSettings) (driven.GenerationBackend, error) {
	f.requested = append(f.requested, settings.Provider)
	backend, ok := f.backends[settings.Provider]
	if !ok {
		return nil, domain.ErrInvalidProvider
	}
	return backend, nil
}

func newTestFactory() *mockFactory {
	return &mockFactory{
		embedding: &mockEmbeddingService{},
		backends: map[domain.AIProvider]driven.GenerationBackend{
			domain.AIProviderLocal:  &mockGenerationBackend{name: "local"},
			domain.AIProviderOpenAI: &mockGenerationBackend{name: "openai"},
		},
	}
}

func TestNewServices(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "postgres")
	services := NewServices(config)

	if services == nil {
		t.Fatal("expected non-nil services")
	}
	if services.Config() != config {
		t.Error("expected config to match")
	}
	if services.EmbeddingService() != nil || services.GenerationBackend() != nil {
		t.Error("expected no services initially")
	}
}

func TestServices_EmbeddingService(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "memory")
	services := NewServices(config)

	mock := &mockEmbeddingService{}
	services.SetEmbeddingService(mock)

	if services.EmbeddingService() == nil {
		t.Error("expected non-nil embedding service after set")
	}
	if config.EmbeddingModel() != "test-model" {
		t.Errorf("expected model test-model, got %q", config.EmbeddingModel())
	}

	services.SetEmbeddingService(nil)
	if services.EmbeddingService() != nil {
		t.Error("expected nil embedding service after clearing")
	}
	if config.EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable")
	}
	if !mock.closed {
		t.Error("expected old service to be closed")
	}
}

func TestServices_GenerationBackend(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "memory")
	services := NewServices(config)

	mock := &mockGenerationBackend{name: "local"}
	services.SetGenerationBackend(mock, true)

	if services.GenerationBackend() == nil {
		t.Error("expected non-nil generation backend after set")
	}
	if config.GenerationBackend() != "local" {
		t.Errorf("expected backend local, got %q", config.GenerationBackend())
	}
	if !config.FallbackActive() {
		t.Error("expected fallback flag to be recorded")
	}

	services.SetGenerationBackend(nil, false)
	if config.GenerationAvailable() || config.FallbackActive() {
		t.Error("expected generation to be unavailable")
	}
	if !mock.closed {
		t.Error("expected old backend to be closed")
	}
}

func TestServices_ValidateAndSetEmbedding(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("memory", "memory"))
	ctx := context.Background()

	t.Run("successful validation", func(t *testing.T) {
		mock := &mockEmbeddingService{}
		if err := services.ValidateAndSetEmbedding(ctx, mock); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if services.EmbeddingService() == nil {
			t.Error("expected embedding service to be set")
		}
	})

	t.Run("failed validation", func(t *testing.T) {
		mock := &mockEmbeddingService{healthCheckErr: errors.New("connection failed")}
		if err := services.ValidateAndSetEmbedding(ctx, mock); err == nil {
			t.Error("expected error")
		}
		if !mock.closed {
			t.Error("expected failed service to be closed")
		}
	})

	t.Run("nil service", func(t *testing.T) {
		if err := services.ValidateAndSetEmbedding(ctx, nil); err != nil {
			t.Errorf("unexpected error for nil service: %v", err)
		}
	})
}

func TestServices_ValidateAndSetGeneration(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("memory", "memory"))
	ctx := context.Background()

	t.Run("successful validation", func(t *testing.T) {
		mock := &mockGenerationBackend{name: "openai"}
		if err := services.ValidateAndSetGeneration(ctx, mock, false); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if services.GenerationBackend() == nil {
			t.Error("expected generation backend to be set")
		}
	})

	t.Run("failed validation", func(t *testing.T) {
		mock := &mockGenerationBackend{name: "openai", pingErr: errors.New("connection failed")}
		if err := services.ValidateAndSetGeneration(ctx, mock, false); err == nil {
			t.Error("expected error")
		}
		if !mock.closed {
			t.Error("expected failed backend to be closed")
		}
	})
}

func TestServices_Close(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "memory")
	services := NewServices(config)

	embMock := &mockEmbeddingService{}
	genMock := &mockGenerationBackend{name: "local"}

	services.SetEmbeddingService(embMock)
	services.SetGenerationBackend(genMock, false)

	if err := services.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !embMock.closed {
		t.Error("expected embedding service to be closed")
	}
	if !genMock.closed {
		t.Error("expected generation backend to be closed")
	}
	if config.EmbeddingAvailable() || config.GenerationAvailable() {
		t.Error("expected config flags to be cleared")
	}
}

func TestServices_ReplaceService_ClosesOld(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("memory", "memory"))

	old := &mockEmbeddingService{}
	replacement := &mockEmbeddingService{}

	services.SetEmbeddingService(old)
	services.SetEmbeddingService(replacement)

	if !old.closed {
		t.Error("expected old service to be closed when replaced")
	}
	if replacement.closed {
		t.Error("expected new service to remain open")
	}
}

func TestServices_Install(t *testing.T) {
	tests := []struct {
		name         string
		generation   domain.GenerationSettings
		fallback     domain.AIProvider
		wantErr      bool
		wantBackend  string
		wantFallback bool
	}{
		{
			name:        "local backend",
			generation:  domain.GenerationSettings{Provider: domain.AIProviderLocal},
			wantBackend: "local",
		},
		{
			name:        "hosted backend with key",
			generation:  domain.GenerationSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test"},
			wantBackend: "openai",
		},
		{
			name:       "hosted backend without key fails",
			generation: domain.GenerationSettings{Provider: domain.AIProviderOpenAI},
			wantErr:    true,
		},
		{
			name:         "hosted backend without key uses explicit fallback",
			generation:   domain.GenerationSettings{Provider: domain.AIProviderOpenAI},
			fallback:     domain.AIProviderLocal,
			wantBackend:  "local",
			wantFallback: true,
		},
		{
			name:       "unknown provider fails",
			generation: domain.GenerationSettings{Provider: "bard"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := domain.NewRuntimeConfig("memory", "memory")
			services := NewServices(config)

			err := services.Install(context.Background(), newTestFactory(), Selection{
				Embedding:  domain.EmbeddingSettings{Provider: domain.AIProviderLocal},
				Generation: tt.generation,
				Fallback:   tt.fallback,
			})

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := config.GenerationBackend(); got != tt.wantBackend {
				t.Errorf("expected backend %q, got %q", tt.wantBackend, got)
			}
			if got := config.FallbackActive(); got != tt.wantFallback {
				t.Errorf("expected fallback %v, got %v", tt.wantFallback, got)
			}
			if config.EmbeddingModel() != "test-model" {
				t.Errorf("expected embedding model test-model, got %q", config.EmbeddingModel())
			}
		})
	}
}

func TestServices_Install_EmbeddingError(t *testing.T) {
	factory := newTestFactory()
	factory.embeddingErr = domain.ErrInvalidProvider
	services := NewServices(domain.NewRuntimeConfig("memory", "memory"))

	err := services.Install(context.Background(), factory, Selection{
		Generation: domain.GenerationSettings{Provider: domain.AIProviderLocal},
	})

	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
	if len(factory.requested) != 0 {
		t.Error("expected no generation backend to be requested")
	}
}

// wrappedEmbedding decorates an embedding service under a different model name
type wrappedEmbedding struct {
	driven.EmbeddingService
}

func (w *wrappedEmbedding) Model() string {
	return "cached:" + w.EmbeddingService.Model()
}

func TestServices_Install_WrapEmbedding(t *testing.T) {
	factory := newTestFactory()
	config := domain.NewRuntimeConfig("memory", "memory")
	services := NewServices(config)

	err := services.Install(context.Background(), factory, Selection{
		Generation: domain.GenerationSettings{Provider: domain.AIProviderLocal},
		WrapEmbedding: func(inner driven.EmbeddingService) driven.EmbeddingService {
			return &wrappedEmbedding{EmbeddingService: inner}
		},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := services.EmbeddingService().(*wrappedEmbedding); !ok {
		t.Errorf("expected wrapped embedding service, got %T", services.EmbeddingService())
	}
	if config.EmbeddingModel() != "cached:test-model" {
		t.Errorf("expected cached:test-model, got %q", config.EmbeddingModel())
	}
	if factory.embedding.(*mockEmbeddingService).closed {
		t.Error("expected inner embedding service to stay open")
	}
}

func TestServices_Install_Verify(t *testing.T) {
	unreachable := errors.New("401 invalid api key")

	t.Run("failed generation check uses explicit fallback", func(t *testing.T) {
		factory := newTestFactory()
		hosted := &mockGenerationBackend{name: "openai", pingErr: unreachable}
		factory.backends[domain.AIProviderOpenAI] = hosted
		config := domain.NewRuntimeConfig("memory", "memory")
		services := NewServices(config)

		err := services.Install(context.Background(), factory, Selection{
			Generation: domain.GenerationSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-bad"},
			Fallback:   domain.AIProviderLocal,
			Verify:     true,
		})

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := config.GenerationBackend(); got != "local" {
			t.Errorf("expected local backend, got %q", got)
		}
		if !config.FallbackActive() {
			t.Error("expected fallback to be flagged")
		}
		if !hosted.closed {
			t.Error("expected the rejected backend to be closed")
		}
	})

	t.Run("failed generation check without fallback fails", func(t *testing.T) {
		factory := newTestFactory()
		factory.backends[domain.AIProviderOpenAI] = &mockGenerationBackend{name: "openai", pingErr: unreachable}
		services := NewServices(domain.NewRuntimeConfig("memory", "memory"))

		err := services.Install(context.Background(), factory, Selection{
			Generation: domain.GenerationSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-bad"},
			Verify:     true,
		})

		if !errors.Is(err, unreachable) {
			t.Errorf("expected the check error, got %v", err)
		}
	})

	t.Run("failed embedding check fails startup", func(t *testing.T) {
		factory := newTestFactory()
		factory.embedding = &mockEmbeddingService{healthCheckErr: unreachable}
		services := NewServices(domain.NewRuntimeConfig("memory", "memory"))

		err := services.Install(context.Background(), factory, Selection{
			Generation: domain.GenerationSettings{Provider: domain.AIProviderLocal},
			Fallback:   domain.AIProviderLocal,
			Verify:     true,
		})

		if !errors.Is(err, unreachable) {
			t.Errorf("expected the check error, got %v", err)
		}
		if services.EmbeddingService() != nil {
			t.Error("expected no embedding service to be installed")
		}
	})

	t.Run("checks are skipped without Verify", func(t *testing.T) {
		factory := newTestFactory()
		factory.backends[domain.AIProviderOpenAI] = &mockGenerationBackend{name: "openai", pingErr: unreachable}
		config := domain.NewRuntimeConfig("memory", "memory")
		services := NewServices(config)

		err := services.Install(context.Background(), factory, Selection{
			Generation: domain.GenerationSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test"},
		})

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := config.GenerationBackend(); got != "openai" {
			t.Errorf("expected openai backend, got %q", got)
		}
	})
}
