package domain

import (
	"fmt"
	"strings"
)

// TopicArea partitions the document corpus and scopes retrieval
type TopicArea string

const (
	AreaIT      TopicArea = "IT"
	AreaHR      TopicArea = "HR"
	AreaGeneral TopicArea = "General"
)

// TopicAreas lists every area accepted at ingestion, in display order
var TopicAreas = []TopicArea{AreaIT, AreaHR, AreaGeneral}

// ExpertAreas lists the areas consumed by the two-expert debate flow.
// General is indexed but not retrieved.
var ExpertAreas = []TopicArea{AreaIT, AreaHR}

// ParseTopicArea accepts an area name case-insensitively
func ParseTopicArea(s string) (TopicArea, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "it":
		return AreaIT, nil
	case "hr":
		return AreaHR, nil
	case "general":
		return AreaGeneral, nil
	}
	return "", fmt.Errorf("%w: %q (must be one of IT, HR, General)", ErrInvalidTopicArea, s)
}

// IsValid reports whether the area is one of the enumerated values
func (a TopicArea) IsValid() bool {
	switch a {
	case AreaIT, AreaHR, AreaGeneral:
		return true
	}
	return false
}

// AttributePolicyArea picks the display label for a query from the number of
// snippets each expert area contributed. Ties, including zero-zero, are General.
// The label is informational only.
func AttributePolicyArea(itCount, hrCount int) TopicArea {
	switch {
	case itCount > hrCount:
		return AreaIT
	case hrCount > itCount:
		return AreaHR
	default:
		return AreaGeneral
	}
}
