package qa

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/tool"
)

type getStatistics struct {
	client *tool.Client
}

// Statistics summarizes store usage. Exposed for the stats CLI command
// and the HTTP API.
type Statistics struct {
	DocumentsStored       int     `json:"documents_stored"`
	MemoriesStored        int     `json:"memories_stored"`
	QueriesProcessed      int     `json:"queries_processed"`
	AvgDocumentsPerQuery  float64 `json:"avg_documents_per_query"`
	MostAccessedDocument  string  `json:"most_accessed_document,omitempty"`
	MostAccessedMemoryKey string  `json:"most_accessed_memory,omitempty"`
}

func (t *getStatistics) Descriptor() model.ToolDescriptor {
	return model.ToolDescriptor{
		Name:        "get_statistics",
		Description: "Get statistics about the agent's stored knowledge and usage",
		Parameters:  map[string]string{},
		WhenToUse:   "When the user asks about stored knowledge or agent usage",
	}
}

func (t *getStatistics) Execute(ctx context.Context, args map[string]any) (any, error) {
	docs, err := t.client.Repo.LoadDocuments(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load documents")
	}
	memories, err := t.client.Repo.LoadMemory(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load memory")
	}
	conversations, err := t.client.Repo.LoadConversations(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load conversations")
	}

	stats := &Statistics{
		DocumentsStored:  len(docs),
		MemoriesStored:   len(memories),
		QueriesProcessed: len(conversations),
	}
	stats.AvgDocumentsPerQuery = float64(len(docs)) / float64(max(len(conversations), 1))

	var topDoc *model.Document
	for _, doc := range docs {
		if topDoc == nil || doc.AccessCount > topDoc.AccessCount {
			topDoc = doc
		}
	}
	if topDoc != nil {
		stats.MostAccessedDocument = topDoc.Title
	}

	var topMemory *model.MemoryItem
	for _, item := range memories {
		if topMemory == nil || item.AccessCount > topMemory.AccessCount {
			topMemory = item
		}
	}
	if topMemory != nil {
		stats.MostAccessedMemoryKey = topMemory.Key
	}

	return stats, nil
}
