// Package decide implements the third pipeline stage: planning which
// tools to execute for the query, based on the recalled context and the
// outcomes of previous iterations.
package decide

import (
	"bytes"
	"context"
	_ "embed"
	"sort"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/adapter"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/tool"
	"github.com/m-mizutani/kotae/pkg/utils/jsonx"
	"github.com/m-mizutani/kotae/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/decide.md
var decidePromptRaw string

var decidePromptTmpl = template.Must(template.New("decide").Parse(decidePromptRaw))

// Decider plans tool executions against the model.
type Decider struct {
	gemini   adapter.Gemini
	registry *tool.Registry
}

func New(gemini adapter.Gemini, registry *tool.Registry) *Decider {
	return &Decider{gemini: gemini, registry: registry}
}

type promptTool struct {
	Index       int
	Name        string
	Description string
	Params      string
	WhenToUse   string
}

type promptAction struct {
	Index   int
	Tool    string
	Summary string
}

// Execute plans the next batch of tool calls. It never returns an
// error: a malformed model response degrades to a pattern-matched
// fallback plan, and a failed call degrades to an empty plan.
func (d *Decider) Execute(ctx context.Context, recall *model.RecallResult, previous []*model.ToolExecutionRecord) *model.DecisionResult {
	logger := logging.From(ctx)

	prompt, err := d.buildPrompt(recall, previous)
	if err != nil {
		logger.Warn("failed to build decision prompt", "error", err)
		return errorResult(recall, err)
	}

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := d.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		logger.Warn("decision model call failed", "error", err)
		return errorResult(recall, err)
	}

	var parsed struct {
		ShouldCallTool *bool `json:"should_call_tool"`
		ToolCalls      []struct {
			ToolName  string         `json:"tool_name"`
			Arguments map[string]any `json:"arguments"`
			Reasoning string         `json:"reasoning"`
			Priority  int            `json:"priority"`
		} `json:"tool_calls"`
		ReasoningSteps   []string `json:"reasoning_steps"`
		Confidence       *float64 `json:"confidence"`
		NeedsMoreData    bool     `json:"needs_more_data"`
		FinalAnswerReady *bool    `json:"final_answer_ready"`
	}
	if r := jsonx.Decode(adapter.ResponseText(resp), &parsed); !r.OK {
		logger.Warn("decision response was not valid JSON", "error", r.Err())
		return fallbackResult(recall)
	}

	plan := make([]*model.ToolPlanItem, 0, len(parsed.ToolCalls))
	for _, tc := range parsed.ToolCalls {
		item := &model.ToolPlanItem{
			Tool:     tc.ToolName,
			Args:     tc.Arguments,
			Reason:   tc.Reasoning,
			Priority: tc.Priority,
		}
		if item.Tool == "" {
			item.Tool = "unknown"
		}
		if item.Reason == "" {
			item.Reason = "No reasoning provided"
		}
		if item.Priority == 0 {
			item.Priority = 1
		}
		plan = append(plan, item)
	}
	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].Priority < plan[j].Priority
	})

	result := &model.DecisionResult{
		ShouldExecute:    len(plan) > 0,
		Plan:             plan,
		Reasoning:        parsed.ReasoningSteps,
		Confidence:       70,
		NeedsMoreData:    parsed.NeedsMoreData,
		FinalAnswerReady: true,
		Profile:          recall.Profile,
	}
	if parsed.ShouldCallTool != nil {
		result.ShouldExecute = *parsed.ShouldCallTool
	}
	if parsed.Confidence != nil {
		result.Confidence = *parsed.Confidence
	}
	if parsed.FinalAnswerReady != nil {
		result.FinalAnswerReady = *parsed.FinalAnswerReady
	}

	logger.Debug("decision complete",
		"tools", len(result.Plan),
		"should_execute", result.ShouldExecute,
		"confidence", result.Confidence)

	return result
}

func (d *Decider) buildPrompt(recall *model.RecallResult, previous []*model.ToolExecutionRecord) (string, error) {
	profile := recall.Profile
	if profile == nil {
		profile = model.DefaultProfile()
	}

	descriptors := d.registry.Descriptors()
	tools := make([]*promptTool, 0, len(descriptors))
	for i, desc := range descriptors {
		params := make([]string, 0, len(desc.Parameters))
		for name, kind := range desc.Parameters {
			params = append(params, name+"="+kind)
		}
		sort.Strings(params)

		tools = append(tools, &promptTool{
			Index:       i + 1,
			Name:        desc.Name,
			Description: desc.Description,
			Params:      strings.Join(params, ", "),
			WhenToUse:   desc.WhenToUse,
		})
	}

	actions := make([]*promptAction, 0, len(previous))
	for i, record := range previous {
		actions = append(actions, &promptAction{
			Index:   i + 1,
			Tool:    record.Tool,
			Summary: record.Summary,
		})
	}

	var buf bytes.Buffer
	if err := decidePromptTmpl.Execute(&buf, map[string]any{
		"Profile":         profile,
		"Recall":          recall,
		"Tools":           tools,
		"PreviousActions": actions,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute decision prompt template")
	}
	return buf.String(), nil
}

// fallbackResult synthesizes a plan from the recall stage's suggestion
// when the model answered but the payload could not be parsed.
func fallbackResult(recall *model.RecallResult) *model.DecisionResult {
	reasoning := []string{"[FALLBACK] Using recall-suggested strategy"}
	var plan []*model.ToolPlanItem

	if recall.SuggestedStrategy == model.StrategyRAG && recall.HasSufficientContext {
		plan = []*model.ToolPlanItem{
			{
				Tool: "retrieve_documents",
				Args: map[string]any{
					"keywords": recall.Keywords,
					"limit":    5,
				},
				Reason:   "[FALLBACK] Using RAG based on available documents",
				Priority: 1,
			},
			{
				Tool: "verify_answer",
				Args: map[string]any{
					"answer":  "to_be_generated",
					"sources": []string{},
				},
				Reason:   "[FALLBACK] Verify answer quality",
				Priority: 2,
			},
		}
		reasoning = append(reasoning, "[FALLBACK] Selected RAG pattern")
	} else {
		reasoning = append(reasoning, "[FALLBACK] Will use model knowledge directly")
	}

	return &model.DecisionResult{
		ShouldExecute:    len(plan) > 0,
		Plan:             plan,
		Reasoning:        reasoning,
		Confidence:       60,
		NeedsMoreData:    false,
		FinalAnswerReady: true,
		Profile:          recall.Profile,
	}
}

// errorResult is the empty plan returned when the model call itself
// failed.
func errorResult(recall *model.RecallResult, err error) *model.DecisionResult {
	return &model.DecisionResult{
		ShouldExecute:    false,
		Plan:             nil,
		Reasoning:        []string{"[ERROR] " + err.Error()},
		Confidence:       0,
		NeedsMoreData:    false,
		FinalAnswerReady: true,
		Profile:          recall.Profile,
	}
}
