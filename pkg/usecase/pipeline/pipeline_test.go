package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kotae/pkg/adapter"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/repository"
	"github.com/m-mizutani/kotae/pkg/tool"
	"github.com/m-mizutani/kotae/pkg/tool/qa"
	"github.com/m-mizutani/kotae/pkg/usecase/pipeline"
	"google.golang.org/genai"
)

// scriptedGemini routes each prompt to a canned response based on which
// stage the prompt belongs to.
type scriptedGemini struct {
	adapter.Gemini
	perception string
	decision   string
	synthesis  string
	calls      []string
}

func (m *scriptedGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	prompt := contents[0].Parts[0].Text

	var text string
	switch {
	case strings.Contains(prompt, "perception stage"):
		m.calls = append(m.calls, "perception")
		text = m.perception
	case strings.Contains(prompt, "decision stage"):
		m.calls = append(m.calls, "decision")
		text = m.decision
	default:
		m.calls = append(m.calls, "synthesis")
		text = m.synthesis
	}

	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role: genai.RoleModel,
					Parts: []*genai.Part{
						{Text: text},
					},
				},
			},
		},
	}, nil
}

func newPipeline(gemini adapter.Gemini, repo repository.Repository, opts ...pipeline.Option) *pipeline.Pipeline {
	client := &tool.Client{Repo: repo, Gemini: gemini}
	registry := tool.New(qa.New(client, nil)...)
	return pipeline.New(gemini, repo, registry, opts...)
}

func TestExecuteRAGScenario(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	doc := &model.Document{
		Title:    "Introduction to Quantum Computing",
		Body:     "quantum quantum quantum quantum quantum computing computing computing",
		URL:      "https://example.com/quantum",
		StoredAt: time.Now(),
	}
	doc.ID = model.NewDocumentID(doc.Title, doc.Body)
	_, err := repo.PutDocument(ctx, doc)
	gt.NoError(t, err)

	gemini := &scriptedGemini{
		perception: `{
			"analyzed_intent": "Explain quantum computing",
			"query_type": "FACTUAL",
			"requires_live_data": false,
			"extracted_keywords": ["quantum", "computing"],
			"reasoning_steps": ["[INTENT_ANALYSIS] explanation request"],
			"confidence": 90
		}`,
		decision: `{
			"should_call_tool": true,
			"tool_calls": [
				{"tool_name": "retrieve_documents", "arguments": {"keywords": ["quantum", "computing"], "limit": 5}, "reasoning": "fetch", "priority": 1}
			],
			"reasoning_steps": ["[TOOL_SEQUENCE] retrieve documents"],
			"confidence": 85,
			"final_answer_ready": true
		}`,
		synthesis: `{"answer": "Quantum computing uses qubits.", "confidence": 88, "sources_used": ["Introduction to Quantum Computing"]}`,
	}

	p := newPipeline(gemini, repo)
	resp, err := p.Execute(ctx, "What is quantum computing?", nil)
	gt.NoError(t, err)

	gt.Equal(t, resp.Strategy, model.StrategyRAG)
	gt.Equal(t, resp.Answer, "Quantum computing uses qubits.")
	gt.A(t, resp.Sources).Length(1)
	gt.Equal(t, resp.Sources[0], "Introduction to Quantum Computing")

	// One pass through every stage
	gt.A(t, resp.ReasoningFlow["perception"]).Longer(0)
	gt.A(t, resp.ReasoningFlow["recall"]).Longer(0)
	gt.A(t, resp.ReasoningFlow["decision_1"]).Longer(0)
	gt.A(t, resp.ReasoningFlow["action_1"]).Longer(0)

	// The exchange lands in conversation history
	history, err := repo.LoadConversations(ctx)
	gt.NoError(t, err)
	gt.A(t, history).Length(1)
	gt.Equal(t, history[0].Query, "What is quantum computing?")
	gt.Equal(t, history[0].Strategy, model.StrategyRAG)
}

func TestExecuteLiveSearchScenario(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	// Model says no live data needed; the temporal marker overrides it
	gemini := &scriptedGemini{
		perception: `{
			"analyzed_intent": "AI regulation news",
			"query_type": "TEMPORAL",
			"requires_live_data": false,
			"extracted_keywords": ["regulations"],
			"confidence": 80
		}`,
		decision:  `{"should_call_tool": false, "tool_calls": [], "confidence": 80}`,
		synthesis: "The latest AI regulations were updated this week.",
	}

	p := newPipeline(gemini, repo)
	resp, err := p.Execute(ctx, "What are the latest AI regulations?", nil)
	gt.NoError(t, err)

	gt.Equal(t, resp.Strategy, model.StrategyLiveSearch)
	gt.V(t, resp.Confidence).Equal(85.0)
	gt.A(t, resp.Sources).Length(1)
	gt.Equal(t, resp.Sources[0], "Google Search (Live Web Data)")
}

func TestExecuteKnowledgeScenario(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	gemini := &scriptedGemini{
		perception: `{
			"analyzed_intent": "Explain photosynthesis",
			"query_type": "FACTUAL",
			"requires_live_data": false,
			"extracted_keywords": ["photosynthesis"],
			"confidence": 92
		}`,
		decision:  `{"should_call_tool": false, "tool_calls": [], "confidence": 80}`,
		synthesis: "Plants convert sunlight into chemical energy.",
	}

	p := newPipeline(gemini, repo)
	resp, err := p.Execute(ctx, "How does photosynthesis work?", nil)
	gt.NoError(t, err)

	gt.Equal(t, resp.Strategy, model.StrategyGeminiKnowledge)

	// Raw text synthesis falls back to reduced confidence
	gt.V(t, resp.Confidence).Equal(75.0)
	gt.Equal(t, resp.Sources[0], "Gemini AI Knowledge Base")
}

func TestExecuteEmptyQuery(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	gemini := &scriptedGemini{}
	p := newPipeline(gemini, repo)

	_, err := p.Execute(ctx, "", nil)
	gt.Error(t, err)
}

func TestExecuteHistoryTrim(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	old := make([]*model.ConversationEntry, 0, model.MaxConversationHistory)
	for i := 0; i < model.MaxConversationHistory; i++ {
		old = append(old, &model.ConversationEntry{
			ID:        model.NewConversationID(),
			Query:     fmt.Sprintf("old question %d", i),
			Answer:    "old answer",
			CreatedAt: time.Now().Add(-time.Hour),
		})
	}
	gt.NoError(t, repo.PutConversations(ctx, old))

	gemini := &scriptedGemini{
		perception: `{"analyzed_intent": "x", "query_type": "FACTUAL", "extracted_keywords": ["x"], "confidence": 80}`,
		decision:   `{"should_call_tool": false, "tool_calls": [], "confidence": 80}`,
		synthesis:  `{"answer": "fresh answer", "confidence": 80}`,
	}

	p := newPipeline(gemini, repo)
	_, err := p.Execute(ctx, "a brand new question", nil)
	gt.NoError(t, err)

	history, err := repo.LoadConversations(ctx)
	gt.NoError(t, err)
	gt.A(t, history).Length(model.MaxConversationHistory)

	// Oldest entry dropped, newest appended
	gt.Equal(t, history[0].Query, "old question 1")
	gt.Equal(t, history[len(history)-1].Query, "a brand new question")
}

type memoryArchive struct {
	objects map[string]*bytes.Buffer
}

type archiveWriter struct {
	*bytes.Buffer
}

func (w *archiveWriter) Close() error { return nil }

func (a *memoryArchive) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	buf := &bytes.Buffer{}
	a.objects[key] = buf
	return &archiveWriter{buf}, nil
}

func (a *memoryArchive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	buf, ok := a.objects[key]
	if !ok {
		return nil, fmt.Errorf("not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

func TestExecuteArchivesResponse(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	archive := &memoryArchive{objects: make(map[string]*bytes.Buffer)}

	gemini := &scriptedGemini{
		perception: `{"analyzed_intent": "x", "query_type": "FACTUAL", "extracted_keywords": ["x"], "confidence": 80}`,
		decision:   `{"should_call_tool": false, "tool_calls": [], "confidence": 80}`,
		synthesis:  `{"answer": "archived answer", "confidence": 80}`,
	}

	p := newPipeline(gemini, repo, pipeline.WithArchive(archive))
	resp, err := p.Execute(ctx, "archive this", nil)
	gt.NoError(t, err)

	gt.V(t, len(archive.objects)).Equal(1)
	for key, buf := range archive.objects {
		gt.S(t, key).Contains("responses/")
		gt.S(t, key).Contains(".json")

		var stored model.Response
		gt.NoError(t, json.Unmarshal(buf.Bytes(), &stored))
		gt.Equal(t, stored.Answer, resp.Answer)
		gt.Equal(t, stored.Query, "archive this")
	}
}

func TestExecuteLoopBound(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	gemini := &scriptedGemini{
		perception: `{"analyzed_intent": "x", "query_type": "FACTUAL", "extracted_keywords": ["x"], "confidence": 80}`,
	}

	p := newPipeline(gemini, repo)

	var decisions, actions int
	p.SetLoopStagesForTest(
		func(ctx context.Context, recalled *model.RecallResult, previous []*model.ToolExecutionRecord) *model.DecisionResult {
			decisions++
			return &model.DecisionResult{FinalAnswerReady: false, NeedsMoreData: true}
		},
		func(ctx context.Context, decision *model.DecisionResult, recalled *model.RecallResult) *model.FinalAnswer {
			actions++
			return &model.FinalAnswer{
				Answer:               fmt.Sprintf("answer %d", actions),
				Strategy:             model.StrategyGeminiKnowledge,
				Confidence:           50,
				NeedsAnotherDecision: true,
			}
		},
	)

	resp, err := p.Execute(ctx, "loop forever", nil)
	gt.NoError(t, err)

	// The ceiling stops the loop and the last action result wins
	gt.Equal(t, decisions, 3)
	gt.Equal(t, actions, 3)
	gt.Equal(t, resp.Answer, "answer 3")
	gt.A(t, resp.ReasoningFlow["decision_3"]).Length(0)
	_, hasFourth := resp.ReasoningFlow["decision_4"]
	gt.V(t, hasFourth).Equal(false)
}

func TestExecuteProfileApplied(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	gemini := &scriptedGemini{
		perception: `{"analyzed_intent": "x", "query_type": "FACTUAL", "extracted_keywords": ["x"], "confidence": 80}`,
		decision:   `{"should_call_tool": false, "tool_calls": [], "confidence": 80}`,
		synthesis:  `{"answer": "tailored answer", "confidence": 80}`,
	}

	profile := &model.Profile{
		ExpertiseLevel:  "expert",
		ResponseStyle:   "detailed",
		DepthPreference: "deep",
	}

	p := newPipeline(gemini, repo)
	resp, err := p.Execute(ctx, "a personalized question", profile)
	gt.NoError(t, err)
	gt.True(t, resp.ProfileApplied)

	resp, err = p.Execute(ctx, "an anonymous question", nil)
	gt.NoError(t, err)
	gt.V(t, resp.ProfileApplied).Equal(false)
}
