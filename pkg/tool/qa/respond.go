package qa

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
)

const snippetLength = 200

type generateResponse struct{}

type responseData struct {
	Query           string   `json:"query"`
	Sources         []string `json:"sources"`
	ContextSnippets []string `json:"context_snippets"`
	ReasoningSteps  []string `json:"reasoning_steps"`
	DocumentCount   int      `json:"document_count"`
	Confidence      float64  `json:"confidence"`
	GeneratedAt     string   `json:"generated_at"`
}

func (t *generateResponse) Descriptor() model.ToolDescriptor {
	return model.ToolDescriptor{
		Name:        "generate_response",
		Description: "Generate a structured response based on query and retrieved documents",
		Parameters: map[string]string{
			"query":           "the user query",
			"documents":       "documents to synthesize from",
			"reasoning_steps": "reasoning steps taken so far",
		},
		WhenToUse: "When retrieved documents should be turned into a structured answer",
	}
}

func (t *generateResponse) Execute(ctx context.Context, args map[string]any) (any, error) {
	query := argString(args, "query")
	if query == "" {
		return nil, goerr.New("query is required")
	}
	docs := argDocuments(args, "documents")

	sources := make([]string, 0, len(docs))
	snippets := make([]string, 0, len(docs))
	for _, doc := range docs {
		title := doc.Title
		if title == "" {
			title = "Untitled"
		}
		sources = append(sources, title)

		snippet := doc.Body
		if len(snippet) > snippetLength {
			snippet = snippet[:snippetLength]
		}
		snippets = append(snippets, snippet)
	}

	return &responseData{
		Query:           query,
		Sources:         sources,
		ContextSnippets: snippets,
		ReasoningSteps:  argStrings(args, "reasoning_steps"),
		DocumentCount:   len(docs),
		Confidence:      documentConfidence(docs, time.Now()),
		GeneratedAt:     time.Now().Format(time.RFC3339),
	}, nil
}

// documentConfidence scores synthesis confidence from document count and
// recency: 20 points per document up to 60, plus 10 per document stored
// within the last day, capped at 95.
func documentConfidence(docs []*model.Document, now time.Time) float64 {
	if len(docs) == 0 {
		return 0
	}

	score := min(float64(len(docs))*20, 60)
	for _, doc := range docs {
		if !doc.StoredAt.IsZero() && now.Sub(doc.StoredAt) < 24*time.Hour {
			score += 10
		}
	}

	return min(score, 95)
}
