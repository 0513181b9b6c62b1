package qa

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/service/policy"
	"github.com/m-mizutani/kotae/pkg/tool"
	"github.com/m-mizutani/kotae/pkg/utils/logging"
)

type storeDocument struct {
	client *tool.Client
	gate   *policy.Gate
}

type storeResult struct {
	Success        bool             `json:"success"`
	DocumentID     model.DocumentID `json:"document_id,omitempty"`
	TotalDocuments int              `json:"total_documents,omitempty"`
	Reason         string           `json:"reason,omitempty"`
}

func (t *storeDocument) Descriptor() model.ToolDescriptor {
	return model.ToolDescriptor{
		Name:        "store_document",
		Description: "Store a document in the document store for future retrieval",
		Parameters: map[string]string{
			"title":    "document title",
			"content":  "document body text",
			"url":      "optional source URL",
			"metadata": "optional string key-value metadata",
		},
		WhenToUse: "When new reference material should be kept for later queries",
	}
}

func (t *storeDocument) Execute(ctx context.Context, args map[string]any) (any, error) {
	title := argString(args, "title")
	content := argString(args, "content")
	if title == "" || content == "" {
		return nil, goerr.New("title and content are required")
	}

	doc := &model.Document{
		ID:       model.NewDocumentID(title, content),
		Title:    title,
		Body:     content,
		URL:      argString(args, "url"),
		StoredAt: time.Now(),
	}
	if meta, ok := args["metadata"].(map[string]any); ok {
		doc.Metadata = make(map[string]string, len(meta))
		for k, v := range meta {
			if s, ok := v.(string); ok {
				doc.Metadata[k] = s
			}
		}
	}

	if t.gate != nil {
		allowed, reason, err := t.gate.Allow(ctx, doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to evaluate ingest policy")
		}
		if !allowed {
			logging.From(ctx).Info("document rejected by ingest policy",
				"title", title, "reason", reason)
			return &storeResult{Success: false, Reason: reason}, nil
		}
	}

	total, err := t.client.Repo.PutDocument(ctx, doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store document")
	}

	return &storeResult{
		Success:        true,
		DocumentID:     doc.ID,
		TotalDocuments: total,
	}, nil
}
