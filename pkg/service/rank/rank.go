// Package rank scores stored knowledge against query keywords. The
// scoring is deterministic substring counting, so recall results are
// reproducible for a given store state and keyword set.
package rank

import (
	"sort"
	"strings"

	"github.com/m-mizutani/kotae/pkg/model"
)

const (
	// MaxScore caps a single text score regardless of match count.
	MaxScore = 100.0

	// DocumentThreshold is the minimum combined score for a document to
	// count as relevant.
	DocumentThreshold = 10.0

	// MemoryThreshold is the minimum score for a memory item or a past
	// conversation to be recalled.
	MemoryThreshold = 5.0

	// MaxDocuments is the number of top-ranked documents kept.
	MaxDocuments = 5

	// MaxConversations is the number of past conversations kept after
	// scoring, drawn from the most recent window.
	MaxConversations = 5

	// ConversationWindow is how many recent conversations are considered
	// for scoring at all.
	ConversationWindow = 10

	titleWeight = 1.5
)

// Score counts case-insensitive keyword occurrences in text. Each
// occurrence is worth 10 points, capped at MaxScore.
func Score(text string, keywords []string) float64 {
	if text == "" || len(keywords) == 0 {
		return 0
	}

	lower := strings.ToLower(text)
	score := 0.0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		score += float64(strings.Count(lower, kw)) * 10
	}

	if score > MaxScore {
		return MaxScore
	}
	return score
}

// DocumentScore combines title and body scores. Title matches are
// weighted heavier than body matches.
func DocumentScore(doc *model.Document, keywords []string) float64 {
	titleScore := Score(doc.Title, keywords)
	bodyScore := Score(doc.Body, keywords)
	return (titleScore*titleWeight + bodyScore) / (titleWeight + 1.0)
}

// Documents ranks docs against keywords and returns the relevant ones,
// highest score first. A non-positive limit falls back to MaxDocuments.
// The Score field of each returned document is set as a side effect.
func Documents(docs []*model.Document, keywords []string, limit int) []*model.Document {
	if limit <= 0 {
		limit = MaxDocuments
	}
	var relevant []*model.Document
	for _, doc := range docs {
		score := DocumentScore(doc, keywords)
		if score > DocumentThreshold {
			doc.Score = score
			relevant = append(relevant, doc)
		}
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Score > relevant[j].Score
	})

	if len(relevant) > limit {
		relevant = relevant[:limit]
	}
	return relevant
}

// Memories returns the memory items whose key and value together match
// the keywords above MemoryThreshold, in store order.
func Memories(items []*model.MemoryItem, keywords []string) []*model.MemoryItem {
	var relevant []*model.MemoryItem
	for _, item := range items {
		if Score(item.Key+" "+item.Value, keywords) > MemoryThreshold {
			relevant = append(relevant, item)
		}
	}
	return relevant
}

// Conversations scores the most recent ConversationWindow entries and
// keeps the last MaxConversations that pass MemoryThreshold, preserving
// chronological order.
func Conversations(entries []*model.ConversationEntry, keywords []string) []*model.ConversationEntry {
	recent := entries
	if len(recent) > ConversationWindow {
		recent = recent[len(recent)-ConversationWindow:]
	}

	var relevant []*model.ConversationEntry
	for _, entry := range recent {
		if Score(entry.Query+" "+entry.Answer, keywords) > MemoryThreshold {
			relevant = append(relevant, entry)
		}
	}

	if len(relevant) > MaxConversations {
		relevant = relevant[len(relevant)-MaxConversations:]
	}
	return relevant
}
