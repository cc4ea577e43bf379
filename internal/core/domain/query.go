package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// QueryRecord is one persisted question/answer interaction
type QueryRecord struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	Question   string             `json:"question"`
	Answer     string             `json:"answer"`
	PolicyArea TopicArea          `json:"policy_area"`
	Sources    []string           `json:"sources"`
	Debate     OptionalDebateFlow `json:"debate"`
	CreatedAt  time.Time          `json:"created_at"`
}

// DebateFlow holds the intermediate per-area artifacts of a query.
// The four fields are written and read as one group.
type DebateFlow struct {
	ITExpertResponse string   `json:"it_expert_response"`
	HRExpertResponse string   `json:"hr_expert_response"`
	ITContext        []string `json:"it_context"`
	HRContext        []string `json:"hr_context"`
}

// OptionalDebateFlow is a tagged optional: records written before the debate
// flow existed carry none, newer records carry the whole group.
type OptionalDebateFlow struct {
	ok   bool
	flow DebateFlow
}

// SomeDebateFlow wraps a populated debate flow
func SomeDebateFlow(flow DebateFlow) OptionalDebateFlow {
	if flow.ITContext == nil {
		flow.ITContext = []string{}
	}
	if flow.HRContext == nil {
		flow.HRContext = []string{}
	}
	return OptionalDebateFlow{ok: true, flow: flow}
}

// NoDebateFlow marks a legacy record
func NoDebateFlow() OptionalDebateFlow {
	return OptionalDebateFlow{}
}

// Get returns the debate flow and whether it is present
func (o OptionalDebateFlow) Get() (DebateFlow, bool) {
	return o.flow, o.ok
}

// Present reports whether the group is populated
func (o OptionalDebateFlow) Present() bool {
	return o.ok
}

// MarshalJSON encodes an absent group as null
func (o OptionalDebateFlow) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.flow)
}

// UnmarshalJSON decodes null as an absent group
func (o *OptionalDebateFlow) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = NoDebateFlow()
		return nil
	}
	var flow DebateFlow
	if err := json.Unmarshal(data, &flow); err != nil {
		return err
	}
	*o = SomeDebateFlow(flow)
	return nil
}
