package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

var _ driven.GenerationBackend = (*MockGenerationBackend)(nil)

// MockGenerationBackend is a testify mock of GenerationBackend
type MockGenerationBackend struct {
	mock.Mock
}

func (m *MockGenerationBackend) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockGenerationBackend) Name() string {
	return "mock"
}

func (m *MockGenerationBackend) Ping(ctx context.Context) error {
	return nil
}

func (m *MockGenerationBackend) Close() error {
	return nil
}

// ForTask matches prompts of one generation task
func ForTask(task domain.GenerationTask) interface{} {
	return mock.MatchedBy(func(p domain.Prompt) bool { return p.Task == task })
}

// ForArea matches analysis prompts of one topic area
func ForArea(area domain.TopicArea) interface{} {
	return mock.MatchedBy(func(p domain.Prompt) bool {
		return p.Task == domain.TaskAnalyze && p.Area == area
	})
}
