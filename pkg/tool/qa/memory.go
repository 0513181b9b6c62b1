package qa

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/tool"
)

type storeInMemory struct {
	client *tool.Client
}

type storeMemoryResult struct {
	Success       bool `json:"success"`
	TotalMemories int  `json:"total_memories"`
}

func (t *storeInMemory) Descriptor() model.ToolDescriptor {
	return model.ToolDescriptor{
		Name:        "store_in_memory",
		Description: "Store information in memory for quick recall",
		Parameters: map[string]string{
			"key":      "unique key for the fact",
			"value":    "the fact to remember",
			"category": "grouping category (default: general)",
		},
		WhenToUse: "When a small fact about the user or the session should persist",
	}
}

func (t *storeInMemory) Execute(ctx context.Context, args map[string]any) (any, error) {
	key := argString(args, "key")
	value := argString(args, "value")
	if key == "" || value == "" {
		return nil, goerr.New("key and value are required")
	}

	category := argString(args, "category")
	if category == "" {
		category = "general"
	}

	item := &model.MemoryItem{
		Key:      key,
		Value:    value,
		Category: category,
		StoredAt: time.Now(),
	}
	if err := t.client.Repo.PutMemoryItem(ctx, item); err != nil {
		return nil, goerr.Wrap(err, "failed to store memory item")
	}

	items, err := t.client.Repo.LoadMemory(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count memory items")
	}

	return &storeMemoryResult{Success: true, TotalMemories: len(items)}, nil
}

type retrieveFromMemory struct {
	client *tool.Client
}

type retrieveMemoryResult struct {
	Memories []*model.MemoryItem `json:"memories"`
	Count    int                 `json:"count"`
}

func (t *retrieveFromMemory) Descriptor() model.ToolDescriptor {
	return model.ToolDescriptor{
		Name:        "retrieve_from_memory",
		Description: "Retrieve information from memory",
		Parameters: map[string]string{
			"key":      "exact key to look up (optional)",
			"category": "category filter (optional)",
		},
		WhenToUse: "When remembered facts may inform the answer",
	}
}

func (t *retrieveFromMemory) Execute(ctx context.Context, args map[string]any) (any, error) {
	items, err := t.client.Repo.GetMemory(ctx, argString(args, "key"), argString(args, "category"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to retrieve memory")
	}

	return &retrieveMemoryResult{Memories: items, Count: len(items)}, nil
}
