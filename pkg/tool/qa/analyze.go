package qa

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
)

var wordPattern = regexp.MustCompile(`[a-zA-Z]{3,}`)

var stopWords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "were": true, "been": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "should": true, "could": true,
	"may": true, "might": true, "must": true, "can": true, "about": true,
}

var questionWords = []string{"what", "when", "where", "who", "why", "how"}
var factualWords = []string{"fact", "data", "information", "stats", "number"}
var recentWords = []string{"recent", "lately", "today", "yesterday", "latest", "now", "current"}
var comparativeWords = []string{"compare", "vs", "versus", "difference", "better"}
var liveDataWords = []string{"latest", "recent", "today", "now", "current", "live", "tweet", "post"}

type analyzeQuery struct{}

type queryAnalysis struct {
	OriginalQuery     string   `json:"original_query"`
	QueryLength       int      `json:"query_length"`
	WordCount         int      `json:"word_count"`
	ContainsQuestion  bool     `json:"contains_question"`
	IsFactual         bool     `json:"is_factual"`
	IsRecent          bool     `json:"is_recent"`
	IsComparative     bool     `json:"is_comparative"`
	RequiresContext   bool     `json:"requires_context"`
	RequiresLiveData  bool     `json:"requires_live_data"`
	Keywords          []string `json:"keywords"`
	QueryType         string   `json:"query_type"`
	RecommendedMethod string   `json:"recommended_method"`
	Timestamp         string   `json:"timestamp"`
}

func (t *analyzeQuery) Descriptor() model.ToolDescriptor {
	return model.ToolDescriptor{
		Name:        "analyze_query",
		Description: "Analyze the user's query to determine intent and extract key information",
		Parameters: map[string]string{
			"query": "the query text to analyze",
		},
		WhenToUse: "When the query's intent, type or keywords are unclear",
	}
}

func (t *analyzeQuery) Execute(ctx context.Context, args map[string]any) (any, error) {
	query := argString(args, "query")
	if query == "" {
		return nil, goerr.New("query is required")
	}

	lower := strings.ToLower(query)
	analysis := &queryAnalysis{
		OriginalQuery:    query,
		QueryLength:      len(query),
		WordCount:        len(strings.Fields(query)),
		ContainsQuestion: containsAny(lower, questionWords),
		IsFactual:        containsAny(lower, factualWords),
		IsRecent:         containsAny(lower, recentWords),
		IsComparative:    containsAny(lower, comparativeWords),
		RequiresLiveData: containsAny(lower, liveDataWords),
		Keywords:         ExtractKeywords(query),
		Timestamp:        time.Now().Format(time.RFC3339),
	}
	analysis.RequiresContext = analysis.WordCount > 5

	switch {
	case analysis.ContainsQuestion && analysis.IsFactual:
		analysis.QueryType = "FACTUAL_QUESTION"
	case analysis.IsComparative:
		analysis.QueryType = "COMPARATIVE_ANALYSIS"
	case analysis.IsRecent || analysis.RequiresLiveData:
		analysis.QueryType = "TEMPORAL_QUERY"
	default:
		analysis.QueryType = "GENERAL_INQUIRY"
	}

	if analysis.RequiresLiveData {
		analysis.RecommendedMethod = "WEB_SEARCH"
	} else {
		analysis.RecommendedMethod = "RAG_OR_KNOWLEDGE"
	}

	return analysis, nil
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// ExtractKeywords pulls the most frequent non-stop-words of three or
// more letters out of text, at most model.MaxKeywords of them. Ties
// keep first-occurrence order.
func ExtractKeywords(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	type entry struct {
		word  string
		count int
		first int
	}
	seen := map[string]*entry{}
	var order []*entry
	for i, w := range words {
		if stopWords[w] {
			continue
		}
		if e, ok := seen[w]; ok {
			e.count++
			continue
		}
		e := &entry{word: w, count: 1, first: i}
		seen[w] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	keywords := make([]string, 0, len(order))
	for _, e := range order {
		keywords = append(keywords, e.word)
		if len(keywords) >= model.MaxKeywords {
			break
		}
	}
	return keywords
}
