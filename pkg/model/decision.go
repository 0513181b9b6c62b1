package model

// ToolDescriptor describes one operation of the tool-execution channel for
// the decision prompt.
type ToolDescriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
	WhenToUse   string            `json:"when_to_use"`
}

// ToolPlanItem is a single planned tool invocation. Priority 1 is highest
// and executes first; ties keep the order the model returned them in.
type ToolPlanItem struct {
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args"`
	Reason   string         `json:"reason"`
	Priority int            `json:"priority"`
}

// DecisionResult is the output of the decision stage: an ordered tool plan
// plus loop-control flags.
type DecisionResult struct {
	ShouldExecute    bool            `json:"should_execute"`
	Plan             []*ToolPlanItem `json:"plan"`
	Reasoning        []string        `json:"reasoning"`
	Confidence       float64         `json:"confidence"`
	NeedsMoreData    bool            `json:"needs_more_data"`
	FinalAnswerReady bool            `json:"final_answer_ready"`
	Profile          *Profile        `json:"profile,omitempty"`
}
