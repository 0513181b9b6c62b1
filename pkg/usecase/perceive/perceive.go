// Package perceive implements the first pipeline stage: turning a raw
// user query into a structured analysis of intent, type, keywords and
// data requirements.
package perceive

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/adapter"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/utils/jsonx"
	"github.com/m-mizutani/kotae/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/perceive.md
var perceivePromptRaw string

var perceivePromptTmpl = template.Must(template.New("perceive").Parse(perceivePromptRaw))

// temporalMarkers force the live-data flag after parsing, regardless of
// what the model decided. Models are unreliable about time sensitivity.
var temporalMarkers = []string{
	"latest", "recent", "today", "yesterday", "now",
	"current", "breaking", "just", "this week", "this month",
}

// fallbackLiveMarkers is the reduced marker set applied when the model
// response cannot be parsed and the flag must come from the query alone.
var fallbackLiveMarkers = []string{"latest", "recent", "today", "now", "current"}

const (
	defaultKeywordCount  = 5
	historyWindow        = 3
	historyAnswerPreview = 100
)

// Perceiver runs query analysis against the model.
type Perceiver struct {
	gemini adapter.Gemini
}

func New(gemini adapter.Gemini) *Perceiver {
	return &Perceiver{gemini: gemini}
}

type historyLine struct {
	Index  int
	Query  string
	Answer string
}

// Execute analyzes the query. It never returns an error: a malformed
// model response degrades to heuristic analysis, and a failed call
// degrades to a zero-confidence result, so the pipeline always proceeds.
func (p *Perceiver) Execute(ctx context.Context, query string, history []*model.ConversationEntry, profile *model.Profile) *model.PerceptionResult {
	if profile == nil {
		profile = model.DefaultProfile()
	}
	logger := logging.From(ctx)

	prompt, err := buildPrompt(query, history, profile)
	if err != nil {
		logger.Warn("failed to build perception prompt", "error", err)
		return errorResult(query, profile, err)
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
	resp, err := p.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		logger.Warn("perception model call failed", "error", err)
		return errorResult(query, profile, err)
	}

	var parsed struct {
		AnalyzedIntent        string   `json:"analyzed_intent"`
		QueryType             string   `json:"query_type"`
		RequiresLiveData      bool     `json:"requires_live_data"`
		RequiresDeepReasoning bool     `json:"requires_deep_reasoning"`
		ExtractedKeywords     []string `json:"extracted_keywords"`
		ReasoningSteps        []string `json:"reasoning_steps"`
		Confidence            *float64 `json:"confidence"`
	}
	if r := jsonx.Decode(adapter.ResponseText(resp), &parsed); !r.OK {
		logger.Warn("perception response was not valid JSON", "error", r.Err())
		return fallbackResult(query, profile)
	}

	result := &model.PerceptionResult{
		Query:                 query,
		Intent:                parsed.AnalyzedIntent,
		QueryType:             model.QueryType(parsed.QueryType),
		RequiresLiveData:      parsed.RequiresLiveData,
		RequiresDeepReasoning: parsed.RequiresDeepReasoning,
		Keywords:              parsed.ExtractedKeywords,
		Reasoning:             parsed.ReasoningSteps,
		Confidence:            70,
		Profile:               profile,
	}

	if result.Intent == "" {
		result.Intent = "Unknown intent"
	}
	if result.QueryType.Validate() != nil {
		result.QueryType = model.QueryTypeFactual
	}
	if len(result.Keywords) == 0 {
		result.Keywords = firstWords(query, defaultKeywordCount)
	}
	if len(result.Keywords) > model.MaxKeywords {
		result.Keywords = result.Keywords[:model.MaxKeywords]
	}
	if parsed.Confidence != nil {
		result.Confidence = *parsed.Confidence
	}

	if containsAny(query, temporalMarkers) {
		result.RequiresLiveData = true
	}

	logger.Debug("perception complete",
		"intent", result.Intent,
		"type", result.QueryType,
		"live_data", result.RequiresLiveData,
		"confidence", result.Confidence)

	return result
}

func buildPrompt(query string, history []*model.ConversationEntry, profile *model.Profile) (string, error) {
	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	lines := make([]*historyLine, 0, len(recent))
	for i, entry := range recent {
		answer := entry.Answer
		if len(answer) > historyAnswerPreview {
			answer = answer[:historyAnswerPreview]
		}
		lines = append(lines, &historyLine{
			Index:  i + 1,
			Query:  entry.Query,
			Answer: answer,
		})
	}

	var buf bytes.Buffer
	if err := perceivePromptTmpl.Execute(&buf, map[string]any{
		"Query":   query,
		"Profile": profile,
		"History": lines,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute perception prompt template")
	}
	return buf.String(), nil
}

// fallbackResult is heuristic analysis used when the model answered but
// the payload could not be parsed.
func fallbackResult(query string, profile *model.Profile) *model.PerceptionResult {
	var keywords []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 3 {
			keywords = append(keywords, w)
		}
		if len(keywords) == defaultKeywordCount {
			break
		}
	}

	return &model.PerceptionResult{
		Query:                 query,
		Intent:                "Understand: " + query,
		QueryType:             model.QueryTypeFactual,
		RequiresLiveData:      containsAny(query, fallbackLiveMarkers),
		RequiresDeepReasoning: len(strings.Fields(query)) > 10,
		Keywords:              keywords,
		Reasoning: []string{
			"[FALLBACK] Using basic keyword extraction",
			"[FALLBACK] Performing simple temporal check",
			"[FALLBACK] Analysis completed with reduced confidence",
		},
		Confidence: 60,
		Profile:    profile,
	}
}

// errorResult is the zero-confidence result returned when the model call
// itself failed.
func errorResult(query string, profile *model.Profile, err error) *model.PerceptionResult {
	keywords := firstWords(query, 1)
	if len(keywords) == 0 {
		keywords = []string{"unknown"}
	}

	return &model.PerceptionResult{
		Query:      query,
		Intent:     "Error in analysis",
		QueryType:  model.QueryTypeFactual,
		Keywords:   keywords,
		Reasoning:  []string{"[ERROR] " + err.Error()},
		Confidence: 0,
		Profile:    profile,
	}
}

func firstWords(query string, n int) []string {
	words := strings.Fields(query)
	if len(words) > n {
		words = words[:n]
	}
	return words
}

func containsAny(query string, markers []string) bool {
	lowered := strings.ToLower(query)
	for _, marker := range markers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
