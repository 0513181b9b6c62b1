package qa

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
)

var hedgingWords = []string{"maybe", "perhaps", "possibly", "might"}

type verifyAnswer struct{}

type verification struct {
	AnswerLength      int      `json:"answer_length"`
	SourcesCount      int      `json:"sources_count"`
	HasCitations      bool     `json:"has_citations"`
	IsComprehensive   bool     `json:"is_comprehensive"`
	VerificationScore float64  `json:"verification_score"`
	Status            string   `json:"status"`
	Issues            []string `json:"issues"`
}

func (t *verifyAnswer) Descriptor() model.ToolDescriptor {
	return model.ToolDescriptor{
		Name:        "verify_answer",
		Description: "Verify the answer against sources for accuracy",
		Parameters: map[string]string{
			"answer":  "the candidate answer text",
			"sources": "list of sources the answer cites",
		},
		WhenToUse: "Before finalizing an answer, to check citations and completeness",
	}
}

func (t *verifyAnswer) Execute(ctx context.Context, args map[string]any) (any, error) {
	answer := argString(args, "answer")
	if answer == "" {
		return nil, goerr.New("answer is required")
	}
	sources := argStrings(args, "sources")

	v := &verification{
		AnswerLength:    len(answer),
		SourcesCount:    len(sources),
		HasCitations:    len(sources) > 0,
		IsComprehensive: len(answer) > 100,
		Issues:          []string{},
	}

	score := 0.0
	if v.HasCitations {
		score += 40
	}
	if v.IsComprehensive {
		score += 30
	}
	if len(strings.Fields(answer)) > 20 {
		score += 20
	}
	if !containsAny(strings.ToLower(answer), hedgingWords) {
		score += 10
	}
	v.VerificationScore = score

	if !v.HasCitations {
		v.Issues = append(v.Issues, "No source citations provided")
	}
	if len(answer) < 50 {
		v.Issues = append(v.Issues, "Answer may be too brief")
	}

	if score >= 70 {
		v.Status = "VERIFIED"
	} else {
		v.Status = "NEEDS_REVIEW"
	}

	return v, nil
}
