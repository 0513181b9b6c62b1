package model

import (
	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidQueryType = goerr.New("invalid query type")

// QueryType classifies what kind of question the user asked.
type QueryType string

const (
	QueryTypeFactual     QueryType = "FACTUAL"
	QueryTypeComparative QueryType = "COMPARATIVE"
	QueryTypeTemporal    QueryType = "TEMPORAL"
	QueryTypeProcedural  QueryType = "PROCEDURAL"
	QueryTypeOpinion     QueryType = "OPINION"
)

// Validate checks if the query type is valid
func (t QueryType) Validate() error {
	switch t {
	case QueryTypeFactual, QueryTypeComparative, QueryTypeTemporal, QueryTypeProcedural, QueryTypeOpinion:
		return nil
	default:
		return goerr.Wrap(ErrInvalidQueryType, "unknown query type", goerr.V("type", t))
	}
}

// MaxKeywords caps the extracted keyword list of a PerceptionResult.
const MaxKeywords = 10

// PerceptionResult is the output of the perception stage. It is created
// once per query and immutable afterwards.
type PerceptionResult struct {
	Query                 string    `json:"query"`
	Intent                string    `json:"intent"`
	QueryType             QueryType `json:"query_type"`
	RequiresLiveData      bool      `json:"requires_live_data"`
	RequiresDeepReasoning bool      `json:"requires_deep_reasoning"`
	Keywords              []string  `json:"keywords"`
	Reasoning             []string  `json:"reasoning"`
	Confidence            float64   `json:"confidence"`
	Profile               *Profile  `json:"profile,omitempty"`
}
