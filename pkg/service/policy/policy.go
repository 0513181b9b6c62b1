// Package policy gates document ingestion with Rego. Operators drop
// .rego files into a directory and the store_document path asks
// data.ingest.allow before writing anything to the corpus.
package policy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Gate evaluates incoming documents against the ingest policy. A nil
// query means no policy files were found and everything is allowed.
type Gate struct {
	query *rego.PreparedEvalQuery
}

// New loads all .rego files from policyDir and prepares the ingest
// query. An empty or missing directory yields a gate that allows all.
func New(ctx context.Context, policyDir string) (*Gate, error) {
	if policyDir == "" {
		return &Gate{}, nil
	}

	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files")
	}
	if len(files) == 0 {
		return &Gate{}, nil
	}

	options := make([]func(*rego.Rego), 0, len(files)+1)
	options = append(options, rego.Query("data.ingest"))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.Value("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare ingest query")
	}

	return &Gate{query: &prepared}, nil
}

// Allow evaluates the document against data.ingest. It returns whether
// the document may be stored and an optional reason from the policy.
func (g *Gate) Allow(ctx context.Context, doc *model.Document) (bool, string, error) {
	if g.query == nil {
		return true, "", nil
	}

	input := map[string]any{
		"title":    doc.Title,
		"body":     doc.Body,
		"url":      doc.URL,
		"metadata": doc.Metadata,
	}

	rs, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, "", goerr.Wrap(err, "failed to evaluate ingest policy")
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return true, "", nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return true, "", nil
	}

	allowed := false
	if v, ok := data["allow"].(bool); ok {
		allowed = v
	}
	reason := ""
	if v, ok := data["reason"].(string); ok {
		reason = v
	}

	return allowed, reason, nil
}
