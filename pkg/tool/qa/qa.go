// Package qa provides the builtin tool catalog for the question
// answering pipeline: query analysis, document retrieval and storage,
// memory, response synthesis, verification and statistics.
package qa

import (
	"encoding/json"

	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/service/policy"
	"github.com/m-mizutani/kotae/pkg/tool"
)

// New returns the builtin tools in catalog order. The gate may be nil
// when no ingest policy is configured.
func New(client *tool.Client, gate *policy.Gate) []tool.Tool {
	return []tool.Tool{
		&analyzeQuery{},
		&retrieveDocuments{client: client},
		&storeDocument{client: client, gate: gate},
		&generateResponse{},
		&verifyAnswer{},
		&storeInMemory{client: client},
		&retrieveFromMemory{client: client},
		&getStatistics{client: client},
	}
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}

func argStrings(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// argDocuments decodes a loosely typed document list, as produced by a
// planned tool call, into model documents.
func argDocuments(args map[string]any, key string) []*model.Document {
	v, ok := args[key]
	if !ok {
		return nil
	}
	if docs, ok := v.([]*model.Document); ok {
		return docs
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var docs []*model.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil
	}
	return docs
}
