package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kotae/pkg/adapter"
	"google.golang.org/genai"
)

func TestGenerateContent(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, projectID, "us-central1")
	gt.NoError(t, err)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: "Hello, what is the capital of France?"},
			},
		},
	}

	resp, err := client.GenerateContent(ctx, contents, nil)
	if err != nil {
		t.Fatal("failed to call GenerateContent", err)
	}

	if adapter.ResponseText(resp) == "" {
		t.Fatal("unexpected response")
	}

	t.Log("response:", adapter.ResponseText(resp))
}

func TestResponseText(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		gt.V(t, adapter.ResponseText(nil)).Equal("")
	})

	t.Run("first text part", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{
					Content: &genai.Content{
						Parts: []*genai.Part{{Text: "hello"}},
					},
				},
			},
		}
		gt.V(t, adapter.ResponseText(resp)).Equal("hello")
	})
}
