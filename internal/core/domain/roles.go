package domain

import (
	"fmt"
	"strings"
)

// RoleDescription parameterizes an expert or the coordinator. It becomes
// the system prompt of hosted generation backends.
type RoleDescription struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Guidelines []string `json:"guidelines"`
}

// SystemPrompt renders the role as a system prompt
func (r RoleDescription) SystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s. %s", r.Title, r.Summary)
	if len(r.Guidelines) > 0 {
		b.WriteString("\n\nGuidelines:")
		for _, g := range r.Guidelines {
			b.WriteString("\n- ")
			b.WriteString(g)
		}
	}
	return b.String()
}

// IsZero reports whether no role text is configured
func (r RoleDescription) IsZero() bool {
	return r.Title == "" && r.Summary == "" && len(r.Guidelines) == 0
}

// DefaultExpertRole returns the built-in role of an area expert
func DefaultExpertRole(area TopicArea) RoleDescription {
	focus := "the policy topics of this area"
	switch area {
	case AreaIT:
		focus = "technical policies, security, devices, software, and IT procedures"
	case AreaHR:
		focus = "employee benefits, leave policies, workplace conduct, training, and HR procedures"
	}
	return RoleDescription{
		Title: fmt.Sprintf("%s Policy Expert", area),
		Summary: fmt.Sprintf("Your role is to analyze %s policy documents and provide clear, accurate answers "+
			"based solely on the %s policy information provided.", area, area),
		Guidelines: []string{
			fmt.Sprintf("Base your answer ONLY on the %s policy context provided", area),
			"Be specific and cite relevant policy details",
			fmt.Sprintf("If the question is not related to %s policies, state that clearly", area),
			"If the context doesn't contain enough information, say so",
			"Focus on " + focus,
		},
	}
}

// DefaultCoordinatorRole returns the built-in coordinator role
func DefaultCoordinatorRole() RoleDescription {
	return RoleDescription{
		Title: "Policy Coordinator",
		Summary: "Your role is to synthesize information from IT and HR policy experts to provide a " +
			"comprehensive, unified answer to the user's question.",
		Guidelines: []string{
			"Combine insights from both IT and HR experts",
			"Identify any overlaps, conflicts, or nuances between the two perspectives",
			"Provide a clear, comprehensive answer that addresses all aspects of the question",
			"If there are conflicts, acknowledge them and explain the different perspectives",
			"Structure your answer clearly and make it easy to understand",
			"Base the answer only on the expert analyses; do not add policy facts they do not contain",
		},
	}
}
