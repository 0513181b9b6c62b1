package model

// ToolExecutionRecord is the outcome of one tool invocation. Records
// accumulate across decide/act iterations and feed back into the next
// decision prompt.
type ToolExecutionRecord struct {
	Tool    string `json:"tool"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Summary string `json:"summary"`
}

// FinalAnswer is the terminal artifact of one decide/act iteration.
type FinalAnswer struct {
	Answer               string                 `json:"answer"`
	Sources              []string               `json:"sources"`
	Confidence           float64                `json:"confidence"`
	Strategy             Strategy               `json:"strategy"`
	NeedsAnotherDecision bool                   `json:"needs_another_decision"`
	Records              []*ToolExecutionRecord `json:"records,omitempty"`
	Reasoning            []string               `json:"reasoning"`
	Profile              *Profile               `json:"profile,omitempty"`
}

// Response is what the pipeline entry point returns to callers: the final
// answer plus the reasoning trace of every stage, keyed by stage name and
// iteration number for the decide/act loop.
type Response struct {
	Query          string              `json:"query"`
	Answer         string              `json:"answer"`
	Confidence     float64             `json:"confidence"`
	Sources        []string            `json:"sources"`
	Strategy       Strategy            `json:"strategy"`
	ReasoningFlow  map[string][]string `json:"reasoning_flow"`
	ProfileApplied bool                `json:"profile_applied"`
}
