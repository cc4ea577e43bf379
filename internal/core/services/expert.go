package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/runtime"
)

// NoInfoAnalysis is the fixed analysis of an expert whose area contributed
// no context. It is produced without calling the generation backend.
func NoInfoAnalysis(area domain.TopicArea) domain.Analysis {
	return domain.Analysis{
		Area: area,
		Text: fmt.Sprintf("Based on the %s policy context provided, I cannot find specific information related to "+
			"this question in the %s policies. Please consult the %s department for clarification.", area, area, area),
		NoInfo: true,
	}
}

// Expert analyzes a question against the context of a single area.
// It keeps no state between calls.
type Expert struct {
	area     domain.TopicArea
	role     domain.RoleDescription
	services *runtime.Services
}

// NewExpert creates an expert for an area. A zero role uses the built-in
// role of the area.
func NewExpert(area domain.TopicArea, role domain.RoleDescription, services *runtime.Services) *Expert {
	if role.IsZero() {
		role = domain.DefaultExpertRole(area)
	}
	return &Expert{area: area, role: role, services: services}
}

// Area returns the area the expert is scoped to
func (e *Expert) Area() domain.TopicArea {
	return e.area
}

// Analyze produces the expert's analysis from its own area's snippets
func (e *Expert) Analyze(ctx context.Context, question string, snippets []string) (domain.Analysis, error) {
	if len(snippets) == 0 {
		return NoInfoAnalysis(e.area), nil
	}

	backend := e.services.GenerationBackend()
	if backend == nil {
		return domain.Analysis{}, fmt.Errorf("%w: no generation backend configured", domain.ErrServiceUnavailable)
	}

	text, err := backend.Generate(ctx, e.prompt(question, snippets))
	if err != nil {
		return domain.Analysis{}, &domain.GenerationError{Backend: backend.Name(), Err: err}
	}
	return domain.Analysis{Area: e.area, Text: strings.TrimSpace(text)}, nil
}

func (e *Expert) prompt(question string, snippets []string) domain.Prompt {
	label := fmt.Sprintf("%s Policy Context", e.area)
	user := fmt.Sprintf("Question: %s\n\n%s:\n%s\n\nProvide your analysis and answer based on the %s policy context.",
		question, label, strings.Join(snippets, "\n\n"), e.area)

	return domain.Prompt{
		Task:     domain.TaskAnalyze,
		Area:     e.area,
		Question: question,
		System:   e.role.SystemPrompt(),
		User:     user,
		Sections: []domain.PromptSection{
			{Label: label, Area: e.area, Texts: append([]string(nil), snippets...)},
		},
	}
}
