package domain

// PipelineStage is the state of one question-answering invocation
type PipelineStage string

const (
	StageReceived     PipelineStage = "RECEIVED"
	StageRetrieving   PipelineStage = "RETRIEVING"
	StageAnalyzing    PipelineStage = "ANALYZING"
	StageSynthesizing PipelineStage = "SYNTHESIZING"
	StageComplete     PipelineStage = "COMPLETE"
	StageFailed       PipelineStage = "FAILED"
)

var stageOrder = map[PipelineStage]int{
	StageReceived:     0,
	StageRetrieving:   1,
	StageAnalyzing:    2,
	StageSynthesizing: 3,
	StageComplete:     4,
}

// IsTerminal reports whether no further transition is possible
func (s PipelineStage) IsTerminal() bool {
	return s == StageComplete || s == StageFailed
}

// CanTransition reports whether moving from s to next is allowed.
// Stages only move forward one step at a time; FAILED is reachable from any
// non-terminal stage.
func (s PipelineStage) CanTransition(next PipelineStage) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	from, ok := stageOrder[s]
	if !ok {
		return false
	}
	to, ok := stageOrder[next]
	return ok && to == from+1
}

// Retrieval is the context one area contributed to a question
type Retrieval struct {
	Area     TopicArea `json:"area"`
	Snippets []string  `json:"snippets"`
	Sources  []string  `json:"sources"` // Deduplicated filenames in rank order
}

// IsEmpty reports whether nothing relevant was found
func (r Retrieval) IsEmpty() bool {
	return len(r.Snippets) == 0
}

// Analysis is one expert's output
type Analysis struct {
	Area   TopicArea `json:"area"`
	Text   string    `json:"text"`
	NoInfo bool      `json:"no_info"` // True when the expert had no context to work from
}

// PipelineResult is the transient output of one invocation
type PipelineResult struct {
	QueryID          string    `json:"query_id"`
	Question         string    `json:"question"`
	Answer           string    `json:"answer"`
	PolicyArea       TopicArea `json:"policy_area"`
	ITExpertResponse string    `json:"it_expert_response"`
	HRExpertResponse string    `json:"hr_expert_response"`
	ITContext        []string  `json:"it_context"`
	HRContext        []string  `json:"hr_context"`
	Sources          []string  `json:"sources"`
}

// ToRecord converts a result into a history record with a populated debate flow
func (r *PipelineResult) ToRecord(userID string) *QueryRecord {
	sources := r.Sources
	if sources == nil {
		sources = []string{}
	}
	return &QueryRecord{
		ID:         r.QueryID,
		UserID:     userID,
		Question:   r.Question,
		Answer:     r.Answer,
		PolicyArea: r.PolicyArea,
		Sources:    sources,
		Debate: SomeDebateFlow(DebateFlow{
			ITExpertResponse: r.ITExpertResponse,
			HRExpertResponse: r.HRExpertResponse,
			ITContext:        r.ITContext,
			HRContext:        r.HRContext,
		}),
	}
}

// GenerationTask tells a backend which kind of text it is producing
type GenerationTask string

const (
	TaskAnalyze    GenerationTask = "analyze"
	TaskSynthesize GenerationTask = "synthesize"
)

// PromptSection is a labelled block of grounding material
type PromptSection struct {
	Label string   // e.g. "IT Policy Context" or "HR Policy Expert's Analysis"
	Area  TopicArea
	Texts []string
}

// Prompt is a backend-neutral generation request. Hosted backends send
// System and User verbatim; local backends work from the structured fields.
type Prompt struct {
	Task     GenerationTask
	Area     TopicArea // Set for TaskAnalyze
	Question string
	System   string
	User     string
	Sections []PromptSection
	Notes    []string // Extra instructions, e.g. a missing-analysis gap
}
