// Package docs implements the support knowledge base consumed by the
// support specialist. The contract is textual similarity: search(query)
// returns scored snippets. Semantic/vector search lives outside this
// service; this store ranks by term overlap, which is enough to exercise
// the orchestration contract.
package docs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zulandar/teller/internal/models"
	"gorm.io/gorm"
)

// ScoredDocument is one search hit.
type ScoredDocument struct {
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Store provides access to the support document corpus.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Add inserts a document into the corpus.
func (s *Store) Add(ctx context.Context, title, content string) error {
	doc := models.SupportDocument{
		ID:      models.NewID("doc"),
		Title:   title,
		Content: content,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return fmt.Errorf("docs: add: %w", err)
	}
	return nil
}

// Search returns up to k documents ranked by term overlap with the query.
// Documents with no overlapping terms are omitted.
func (s *Store) Search(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	if k <= 0 {
		k = 3
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var all []models.SupportDocument
	if err := s.db.WithContext(ctx).Find(&all).Error; err != nil {
		return nil, fmt.Errorf("docs: search: %w", err)
	}

	var hits []ScoredDocument
	for _, doc := range all {
		score := overlapScore(terms, tokenize(doc.Title+" "+doc.Content))
		if score > 0 {
			hits = append(hits, ScoredDocument{Title: doc.Title, Text: doc.Content, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// tokenize lowercases and splits on non-letters, dropping short stopwords.
func tokenize(text string) map[string]bool {
	out := make(map[string]bool)
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, f := range fields {
		if len(f) > 2 {
			out[f] = true
		}
	}
	return out
}

// overlapScore is the fraction of query terms present in the document.
func overlapScore(query, doc map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for term := range query {
		if doc[term] {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}
