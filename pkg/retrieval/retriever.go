// Package retrieval ranks stored conversation messages against a free-text
// query. Scoring is keyword overlap with a recency decay; it is a deliberate
// heuristic, not a semantic search.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kcaldas/loom/pkg/store"
)

const (
	// DefaultCandidateLimit caps how many raw hits are pulled from the
	// store before scoring.
	DefaultCandidateLimit = 200

	// SnippetMaxChars bounds the content carried back in a snippet.
	SnippetMaxChars = 240

	// recencyHalfLife is the age at which the recency factor halves.
	recencyHalfLife = 7 * 24 * time.Hour

	minTermLength = 3
)

// stopwords are query terms too common to carry signal.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "what": true, "how": true, "does": true,
	"are": true, "was": true, "were": true, "have": true, "has": true,
	"can": true, "you": true, "not": true, "but": true, "its": true,
}

// Searcher is the slice of the store the retriever needs.
type Searcher interface {
	SearchMessages(ctx context.Context, repoID string, terms []string, limit int) ([]store.MessageHit, error)
}

// Snippet is a ranked excerpt from a past conversation.
type Snippet struct {
	ConversationID string
	Title          string
	Content        string
	Score          float64
}

// Retriever scores stored messages against a query.
type Retriever struct {
	searcher       Searcher
	candidateLimit int
	now            func() time.Time
}

type Option func(*Retriever)

// WithCandidateLimit overrides how many raw hits are fetched for scoring.
func WithCandidateLimit(limit int) Option {
	return func(r *Retriever) {
		r.candidateLimit = limit
	}
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(r *Retriever) {
		r.now = now
	}
}

func New(searcher Searcher, opts ...Option) *Retriever {
	r := &Retriever{
		searcher:       searcher,
		candidateLimit: DefaultCandidateLimit,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to k snippets relevant to the query, best first.
// At most one snippet per conversation is returned. A query with no usable
// terms yields no snippets.
func (r *Retriever) Retrieve(ctx context.Context, repoID, query string, k int) ([]Snippet, error) {
	terms := Tokenize(query)
	if len(terms) == 0 || k <= 0 {
		return []Snippet{}, nil
	}

	hits, err := r.searcher.SearchMessages(ctx, repoID, terms, r.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	best := map[string]Snippet{}
	for _, hit := range hits {
		score := r.score(hit, terms)
		if score <= 0 {
			continue
		}
		existing, seen := best[hit.ConversationID]
		if !seen || score > existing.Score {
			best[hit.ConversationID] = Snippet{
				ConversationID: hit.ConversationID,
				Title:          hit.Title,
				Content:        truncate(hit.Content, SnippetMaxChars),
				Score:          score,
			}
		}
	}

	snippets := make([]Snippet, 0, len(best))
	for _, s := range best {
		snippets = append(snippets, s)
	}
	sort.SliceStable(snippets, func(i, j int) bool {
		if snippets[i].Score != snippets[j].Score {
			return snippets[i].Score > snippets[j].Score
		}
		return snippets[i].ConversationID < snippets[j].ConversationID
	})

	if len(snippets) > k {
		snippets = snippets[:k]
	}
	return snippets, nil
}

func (r *Retriever) score(hit store.MessageHit, terms []string) float64 {
	content := strings.ToLower(hit.Content)
	overlap := 0
	for _, term := range terms {
		if strings.Contains(content, term) {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}

	age := r.now().Sub(hit.UpdatedAt)
	if age < 0 {
		age = 0
	}
	recency := 1.0 / (1.0 + age.Hours()/recencyHalfLife.Hours())

	return float64(overlap) * (1.0 + recency)
}

// Tokenize lowercases a query and splits it into search terms, dropping
// short words and stopwords. Terms are deduplicated, keeping first
// occurrence order.
func Tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := map[string]bool{}
	terms := []string{}
	for _, field := range fields {
		if len(field) < minTermLength || stopwords[field] || seen[field] {
			continue
		}
		seen[field] = true
		terms = append(terms, field)
	}
	return terms
}

// truncate cuts at max bytes without splitting a multi-byte rune.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max] + "..."
}
