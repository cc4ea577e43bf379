package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/runtime"
)

// NoPolicyInformationAnswer is returned when neither expert found relevant context
const NoPolicyInformationAnswer = "No policy information is available for this question. " +
	"Neither the IT policies nor the HR policies contain relevant information. " +
	"Please contact the IT or HR department directly."

// Coordinator reconciles the IT and HR analyses into one answer
type Coordinator struct {
	role     domain.RoleDescription
	services *runtime.Services
}

// NewCoordinator creates a Coordinator. A zero role uses the built-in one.
func NewCoordinator(role domain.RoleDescription, services *runtime.Services) *Coordinator {
	if role.IsZero() {
		role = domain.DefaultCoordinatorRole()
	}
	return &Coordinator{role: role, services: services}
}

// Synthesize produces the final answer. When one analysis carries no
// information only the other is used and the gap is noted; when both carry
// none the fixed no-information answer is returned without generation.
func (c *Coordinator) Synthesize(ctx context.Context, question string, it, hr domain.Analysis) (string, error) {
	if it.NoInfo && hr.NoInfo {
		return NoPolicyInformationAnswer, nil
	}

	backend := c.services.GenerationBackend()
	if backend == nil {
		return "", fmt.Errorf("%w: no generation backend configured", domain.ErrServiceUnavailable)
	}

	text, err := backend.Generate(ctx, c.prompt(question, it, hr))
	if err != nil {
		return "", &domain.GenerationError{Backend: backend.Name(), Err: err}
	}
	return strings.TrimSpace(text), nil
}

func (c *Coordinator) prompt(question string, analyses ...domain.Analysis) domain.Prompt {
	var sections []domain.PromptSection
	var notes []string
	var covered, missing []string

	for _, a := range analyses {
		if a.NoInfo {
			missing = append(missing, string(a.Area))
			notes = append(notes, fmt.Sprintf("The %s Policy Expert found no relevant information in the %s policies, "+
				"so this answer does not cover %s policy.", a.Area, a.Area, a.Area))
			continue
		}
		covered = append(covered, string(a.Area))
		sections = append(sections, domain.PromptSection{
			Label: fmt.Sprintf("%s Policy Expert's Analysis", a.Area),
			Area:  a.Area,
			Texts: []string{a.Text},
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Original Question: %s", question)
	for _, s := range sections {
		fmt.Fprintf(&b, "\n\n%s:\n%s", s.Label, strings.Join(s.Texts, "\n\n"))
	}
	for _, n := range notes {
		fmt.Fprintf(&b, "\n\nNote: %s", n)
	}
	if len(missing) == 0 {
		b.WriteString("\n\nPlease synthesize these two expert perspectives into a comprehensive final answer that " +
			"addresses the user's question. Identify any agreement, complementary information, and conflicts between " +
			"the IT and HR perspectives.")
	} else {
		fmt.Fprintf(&b, "\n\nPlease answer the user's question using only the %s expert perspective. "+
			"State that no relevant %s policy information was found and do not make %s-specific claims.",
			strings.Join(covered, " and "), strings.Join(missing, " or "), strings.Join(missing, " or "))
	}

	return domain.Prompt{
		Task:     domain.TaskSynthesize,
		Question: question,
		System:   c.role.SystemPrompt(),
		User:     b.String(),
		Sections: sections,
		Notes:    notes,
	}
}
