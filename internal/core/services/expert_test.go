package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven/mocks"
)

func TestExpert_NoSnippets(t *testing.T) {
	backend := &mocks.MockGenerationBackend{}
	expert := NewExpert(domain.AreaIT, domain.RoleDescription{}, createTestServices(nil, backend))

	analysis, err := expert.Analyze(context.Background(), "How do I reset my password?", nil)

	require.NoError(t, err)
	assert.True(t, analysis.NoInfo)
	assert.Equal(t, domain.AreaIT, analysis.Area)
	assert.Contains(t, analysis.Text, "cannot find specific information")
	assert.Contains(t, analysis.Text, "IT department")
	backend.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestExpert_BuildsGroundedPrompt(t *testing.T) {
	backend := &mocks.MockGenerationBackend{}
	backend.On("Generate", mock.Anything, mocks.ForArea(domain.AreaHR)).Return("  HR analysis  ", nil)
	expert := NewExpert(domain.AreaHR, domain.RoleDescription{}, createTestServices(nil, backend))

	snippets := []string{"Employees receive 20 days paid vacation.", "Vacation accrues monthly."}
	analysis, err := expert.Analyze(context.Background(), "How much vacation do I get?", snippets)

	require.NoError(t, err)
	assert.Equal(t, "HR analysis", analysis.Text)
	assert.False(t, analysis.NoInfo)

	prompt := backend.Calls[0].Arguments.Get(1).(domain.Prompt)
	assert.Equal(t, domain.TaskAnalyze, prompt.Task)
	assert.Equal(t, "How much vacation do I get?", prompt.Question)
	assert.Contains(t, prompt.System, "You are a HR Policy Expert.")
	assert.Contains(t, prompt.User, "HR Policy Context:\nEmployees receive 20 days paid vacation.\n\nVacation accrues monthly.")
	assert.Contains(t, prompt.User, "Provide your analysis and answer based on the HR policy context.")
	require.Len(t, prompt.Sections, 1)
	assert.Equal(t, "HR Policy Context", prompt.Sections[0].Label)
	assert.Equal(t, snippets, prompt.Sections[0].Texts)
	backend.AssertExpectations(t)
}

func TestExpert_CustomRole(t *testing.T) {
	backend := &mocks.MockGenerationBackend{}
	backend.On("Generate", mock.Anything, mock.Anything).Return("ok", nil)
	role := domain.RoleDescription{Title: "Security Officer", Summary: "Answer security questions."}
	expert := NewExpert(domain.AreaIT, role, createTestServices(nil, backend))

	_, err := expert.Analyze(context.Background(), "q", []string{"context"})

	require.NoError(t, err)
	prompt := backend.Calls[0].Arguments.Get(1).(domain.Prompt)
	assert.Equal(t, "You are a Security Officer. Answer security questions.", prompt.System)
}

func TestExpert_BackendFailure(t *testing.T) {
	backend := &mocks.MockGenerationBackend{}
	backend.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))
	expert := NewExpert(domain.AreaIT, domain.RoleDescription{}, createTestServices(nil, backend))

	_, err := expert.Analyze(context.Background(), "q", []string{"context"})

	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "mock", genErr.Backend)
}

func TestExpert_NoBackend(t *testing.T) {
	expert := NewExpert(domain.AreaIT, domain.RoleDescription{}, createTestServices(nil, nil))

	_, err := expert.Analyze(context.Background(), "q", []string{"context"})

	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
