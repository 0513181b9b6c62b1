package qa

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/service/rank"
	"github.com/m-mizutani/kotae/pkg/tool"
)

type retrieveDocuments struct {
	client *tool.Client
}

type retrieveResult struct {
	Documents    []*model.Document `json:"documents"`
	Count        int               `json:"count"`
	TotalInStore int               `json:"total_in_store"`
}

func (t *retrieveDocuments) Descriptor() model.ToolDescriptor {
	return model.ToolDescriptor{
		Name:        "retrieve_documents",
		Description: "Retrieve relevant documents from the document store based on keywords",
		Parameters: map[string]string{
			"keywords": "list of keywords to match against stored documents",
			"limit":    "maximum number of documents to return (default 5)",
		},
		WhenToUse: "When the answer may exist in previously stored documents",
	}
}

func (t *retrieveDocuments) Execute(ctx context.Context, args map[string]any) (any, error) {
	keywords := argStrings(args, "keywords")
	if len(keywords) == 0 {
		return nil, goerr.New("keywords are required")
	}
	limit := argInt(args, "limit")

	docs, err := t.client.Repo.LoadDocuments(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load documents")
	}

	ranked := rank.Documents(docs, keywords, limit)

	ids := make([]model.DocumentID, 0, len(ranked))
	for _, doc := range ranked {
		ids = append(ids, doc.ID)
	}
	// GetDocuments bumps the access counters of everything returned
	retrieved, err := t.client.Repo.GetDocuments(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to mark document access")
	}
	for i, doc := range retrieved {
		if i < len(ranked) {
			doc.Score = ranked[i].Score
		}
	}

	return &retrieveResult{
		Documents:    retrieved,
		Count:        len(retrieved),
		TotalInStore: len(docs),
	}, nil
}
