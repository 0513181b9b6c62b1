// Package act implements the fourth pipeline stage: executing the
// planned tools and synthesizing the final answer with the strategy
// derived from the recalled context.
package act

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/adapter"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/tool"
	"github.com/m-mizutani/kotae/pkg/utils/jsonx"
	"github.com/m-mizutani/kotae/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/rag.md
var ragPromptRaw string

//go:embed prompt/search.md
var searchPromptRaw string

//go:embed prompt/knowledge.md
var knowledgePromptRaw string

var (
	ragPromptTmpl       = template.Must(template.New("rag").Parse(ragPromptRaw))
	searchPromptTmpl    = template.Must(template.New("search").Parse(searchPromptRaw))
	knowledgePromptTmpl = template.Must(template.New("knowledge").Parse(knowledgePromptRaw))
)

const (
	// bodyPreviewLength bounds how much of each document body enters the
	// synthesis prompt.
	bodyPreviewLength = 500

	liveSearchSource      = "Google Search (Live Web Data)"
	knowledgeSource       = "Gemini AI Knowledge Base"
	ragConfidence         = 85.0
	liveSearchConfidence  = 85.0
	knowledgeConfidence   = 80.0
	rawFallbackConfidence = 75.0
)

// Actor runs planned tools and synthesizes the answer.
type Actor struct {
	gemini   adapter.Gemini
	registry *tool.Registry
}

func New(gemini adapter.Gemini, registry *tool.Registry) *Actor {
	return &Actor{gemini: gemini, registry: registry}
}

// Execute runs the decision's plan and produces the final answer. It
// never returns an error: tool failures become failed records and
// synthesis failures become a zero-confidence answer.
func (a *Actor) Execute(ctx context.Context, decision *model.DecisionResult, recall *model.RecallResult) *model.FinalAnswer {
	logger := logging.From(ctx)
	var reasoning []string

	// Upstream stages may disagree; the flags in the recalled context
	// decide the effective strategy.
	strategy := model.SelectStrategy(recall.RequiresLiveData, recall.HasSufficientContext)
	reasoning = append(reasoning, fmt.Sprintf("[METHOD_SELECT] Using %s approach", strategy))

	var records []*model.ToolExecutionRecord
	if decision.ShouldExecute && len(decision.Plan) > 0 {
		session := tool.NewSession(a.registry)
		records = session.Run(ctx, decision.Plan)
		for _, record := range records {
			reasoning = append(reasoning, "[TOOL_EXEC] "+record.Summary)
		}
	}

	reasoning = append(reasoning, "[ANSWER_GEN] Generating final answer with user preferences")

	answer, sources, confidence, err := a.synthesize(ctx, strategy, recall, records)
	if err != nil {
		logger.Warn("answer synthesis failed", "strategy", strategy, "error", err)
		answer = "Error generating answer: " + err.Error()
		sources = nil
		confidence = 0
	}

	for _, record := range records {
		if record.Tool == "verify_answer" && record.Success {
			var v struct {
				VerificationScore float64 `json:"verification_score"`
			}
			if decodeRecord(record.Result, &v) == nil {
				reasoning = append(reasoning, fmt.Sprintf("[VERIFICATION] Answer verified with score %.0f/100", v.VerificationScore))
			}
		}
	}

	reasoning = append(reasoning, fmt.Sprintf("[COMPLETE] Final answer generated with %.0f%% confidence", confidence))

	logger.Debug("action complete",
		"strategy", strategy,
		"confidence", confidence,
		"sources", len(sources))

	return &model.FinalAnswer{
		Answer:               answer,
		Sources:              sources,
		Confidence:           confidence,
		Strategy:             strategy,
		NeedsAnotherDecision: false,
		Records:              records,
		Reasoning:            reasoning,
		Profile:              decision.Profile,
	}
}

func (a *Actor) synthesize(ctx context.Context, strategy model.Strategy, recall *model.RecallResult, records []*model.ToolExecutionRecord) (string, []string, float64, error) {
	profile := recall.Profile
	if profile == nil {
		profile = model.DefaultProfile()
	}

	switch strategy {
	case model.StrategyLiveSearch:
		return a.synthesizeLiveSearch(ctx, recall.Query, profile)

	case model.StrategyRAG:
		docs := retrievedDocuments(records)
		if len(docs) == 0 {
			// Nothing came back from retrieval; model knowledge is the
			// only remaining source.
			return a.synthesizeKnowledge(ctx, recall.Query, profile)
		}
		return a.synthesizeRAG(ctx, recall.Query, profile, docs)

	default:
		return a.synthesizeKnowledge(ctx, recall.Query, profile)
	}
}

type promptDocument struct {
	Index int
	Title string
	Body  string
	URL   string
}

func (a *Actor) synthesizeRAG(ctx context.Context, query string, profile *model.Profile, docs []*model.Document) (string, []string, float64, error) {
	promptDocs := make([]*promptDocument, 0, len(docs))
	sources := make([]string, 0, len(docs))
	for i, doc := range docs {
		body := doc.Body
		if len(body) > bodyPreviewLength {
			body = body[:bodyPreviewLength]
		}
		url := doc.URL
		if url == "" {
			url = "N/A"
		}
		promptDocs = append(promptDocs, &promptDocument{
			Index: i + 1,
			Title: doc.Title,
			Body:  body,
			URL:   url,
		})
		sources = append(sources, doc.Title)
	}

	var buf bytes.Buffer
	if err := ragPromptTmpl.Execute(&buf, map[string]any{
		"Query":     query,
		"Profile":   profile,
		"Documents": promptDocs,
	}); err != nil {
		return "", nil, 0, goerr.Wrap(err, "failed to execute RAG prompt template")
	}

	raw, err := a.generate(ctx, buf.String(), nil)
	if err != nil {
		return "", nil, 0, err
	}

	var parsed struct {
		Answer     string   `json:"answer"`
		Confidence *float64 `json:"confidence"`
	}
	confidence := ragConfidence
	if r := jsonx.Decode(raw, &parsed); !r.OK || parsed.Answer == "" {
		return jsonx.Extract(raw), sources, confidence, nil
	}
	if parsed.Confidence != nil {
		confidence = *parsed.Confidence
	}
	return parsed.Answer, sources, confidence, nil
}

func (a *Actor) synthesizeLiveSearch(ctx context.Context, query string, profile *model.Profile) (string, []string, float64, error) {
	var buf bytes.Buffer
	if err := searchPromptTmpl.Execute(&buf, map[string]any{
		"Query":   query,
		"Profile": profile,
	}); err != nil {
		return "", nil, 0, goerr.Wrap(err, "failed to execute search prompt template")
	}

	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	answer, err := a.generate(ctx, buf.String(), config)
	if err != nil {
		return "", nil, 0, err
	}
	if answer == "" {
		answer = "Could not retrieve live data"
	}

	// Grounded answers carry no trustworthy self-reported confidence
	return answer, []string{liveSearchSource}, liveSearchConfidence, nil
}

func (a *Actor) synthesizeKnowledge(ctx context.Context, query string, profile *model.Profile) (string, []string, float64, error) {
	var buf bytes.Buffer
	if err := knowledgePromptTmpl.Execute(&buf, map[string]any{
		"Query":   query,
		"Profile": profile,
	}); err != nil {
		return "", nil, 0, goerr.Wrap(err, "failed to execute knowledge prompt template")
	}

	raw, err := a.generate(ctx, buf.String(), nil)
	if err != nil {
		return "", nil, 0, err
	}

	var parsed struct {
		Answer     string   `json:"answer"`
		Confidence *float64 `json:"confidence"`
	}
	if r := jsonx.Decode(raw, &parsed); !r.OK || parsed.Answer == "" {
		return jsonx.Extract(raw), []string{knowledgeSource}, rawFallbackConfidence, nil
	}

	confidence := knowledgeConfidence
	if parsed.Confidence != nil {
		confidence = *parsed.Confidence
	}
	return parsed.Answer, []string{knowledgeSource}, confidence, nil
}

func (a *Actor) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := a.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return "", err
	}
	return adapter.ResponseText(resp), nil
}

// retrievedDocuments finds the first successful document-retrieval
// record and extracts its documents.
func retrievedDocuments(records []*model.ToolExecutionRecord) []*model.Document {
	for _, record := range records {
		if record.Tool != "retrieve_documents" || !record.Success {
			continue
		}
		var result struct {
			Documents []*model.Document `json:"documents"`
		}
		if err := decodeRecord(record.Result, &result); err != nil {
			continue
		}
		return result.Documents
	}
	return nil
}

// decodeRecord converts an arbitrary tool result payload into out via a
// JSON round trip. Tool results may be concrete structs, maps from MCP
// servers or plain text.
func decodeRecord(result any, out any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal tool result")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return goerr.Wrap(err, "failed to unmarshal tool result")
	}
	return nil
}
