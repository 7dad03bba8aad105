package retrieval

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/loom/pkg/store"
)

type fakeSearcher struct {
	hits      []store.MessageHit
	lastTerms []string
	lastLimit int
}

func (f *fakeSearcher) SearchMessages(ctx context.Context, repoID string, terms []string, limit int) ([]store.MessageHit, error) {
	f.lastTerms = terms
	f.lastLimit = limit
	return f.hits, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenize_DropsShortWordsAndStopwords(t *testing.T) {
	terms := Tokenize("How does the allocator handle a big file?")

	assert.Equal(t, []string{"allocator", "handle", "big", "file"}, terms)
}

func TestTokenize_Deduplicates(t *testing.T) {
	terms := Tokenize("budget budget BUDGET tokens")

	assert.Equal(t, []string{"budget", "tokens"}, terms)
}

func TestTokenize_EmptyQuery(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("a an of"))
}

func TestRetriever_RanksByTermOverlap(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	searcher := &fakeSearcher{hits: []store.MessageHit{
		{ConversationID: "c1", Title: "one term", Content: "the allocator is here", UpdatedAt: now},
		{ConversationID: "c2", Title: "two terms", Content: "allocator and budget together", UpdatedAt: now},
	}}
	r := New(searcher, WithClock(fixedClock(now)))

	snippets, err := r.Retrieve(context.Background(), "repo-1", "allocator budget", 5)
	require.NoError(t, err)
	require.Len(t, snippets, 2)

	assert.Equal(t, "c2", snippets[0].ConversationID)
	assert.Equal(t, "c1", snippets[1].ConversationID)
	assert.Greater(t, snippets[0].Score, snippets[1].Score)
}

func TestRetriever_NewerConversationWinsAtEqualOverlap(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	searcher := &fakeSearcher{hits: []store.MessageHit{
		{ConversationID: "old", Content: "allocator", UpdatedAt: now.Add(-30 * 24 * time.Hour)},
		{ConversationID: "new", Content: "allocator", UpdatedAt: now},
	}}
	r := New(searcher, WithClock(fixedClock(now)))

	snippets, err := r.Retrieve(context.Background(), "repo-1", "allocator", 5)
	require.NoError(t, err)
	require.Len(t, snippets, 2)

	assert.Equal(t, "new", snippets[0].ConversationID)
}

func TestRetriever_OneSnippetPerConversation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	searcher := &fakeSearcher{hits: []store.MessageHit{
		{ConversationID: "c1", MessageIndex: 0, Content: "allocator", UpdatedAt: now},
		{ConversationID: "c1", MessageIndex: 1, Content: "allocator budget", UpdatedAt: now},
	}}
	r := New(searcher, WithClock(fixedClock(now)))

	snippets, err := r.Retrieve(context.Background(), "repo-1", "allocator budget", 5)
	require.NoError(t, err)
	require.Len(t, snippets, 1)

	assert.Equal(t, "allocator budget", snippets[0].Content)
}

func TestRetriever_RespectsK(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	searcher := &fakeSearcher{hits: []store.MessageHit{
		{ConversationID: "c1", Content: "allocator", UpdatedAt: now},
		{ConversationID: "c2", Content: "allocator", UpdatedAt: now},
		{ConversationID: "c3", Content: "allocator", UpdatedAt: now},
	}}
	r := New(searcher, WithClock(fixedClock(now)))

	snippets, err := r.Retrieve(context.Background(), "repo-1", "allocator", 2)
	require.NoError(t, err)
	assert.Len(t, snippets, 2)
}

func TestRetriever_NoUsableTermsSkipsSearch(t *testing.T) {
	searcher := &fakeSearcher{}
	r := New(searcher)

	snippets, err := r.Retrieve(context.Background(), "repo-1", "a of the", 5)
	require.NoError(t, err)
	assert.Empty(t, snippets)
	assert.Nil(t, searcher.lastTerms)
}

func TestRetriever_TruncatesLongSnippets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	long := "allocator " + string(make([]byte, 500))
	searcher := &fakeSearcher{hits: []store.MessageHit{
		{ConversationID: "c1", Content: long, UpdatedAt: now},
	}}
	r := New(searcher, WithClock(fixedClock(now)))

	snippets, err := r.Retrieve(context.Background(), "repo-1", "allocator", 5)
	require.NoError(t, err)
	require.Len(t, snippets, 1)

	assert.Len(t, snippets[0].Content, SnippetMaxChars+len("..."))
}

func TestRetriever_TruncationKeepsValidUTF8(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	long := "allocator " + strings.Repeat("日本語", 200)
	searcher := &fakeSearcher{hits: []store.MessageHit{
		{ConversationID: "c1", Content: long, UpdatedAt: now},
	}}
	r := New(searcher, WithClock(fixedClock(now)))

	snippets, err := r.Retrieve(context.Background(), "repo-1", "allocator", 5)
	require.NoError(t, err)
	require.Len(t, snippets, 1)

	assert.True(t, utf8.ValidString(snippets[0].Content))
	assert.LessOrEqual(t, len(snippets[0].Content), SnippetMaxChars+len("..."))
}

func TestRetriever_PassesCandidateLimit(t *testing.T) {
	searcher := &fakeSearcher{}
	r := New(searcher, WithCandidateLimit(17))

	_, err := r.Retrieve(context.Background(), "repo-1", "allocator", 5)
	require.NoError(t, err)
	assert.Equal(t, 17, searcher.lastLimit)
	assert.Equal(t, []string{"allocator"}, searcher.lastTerms)
}

func TestRetriever_DeterministicTieBreak(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	searcher := &fakeSearcher{hits: []store.MessageHit{
		{ConversationID: "zeta", Content: "allocator", UpdatedAt: now},
		{ConversationID: "alpha", Content: "allocator", UpdatedAt: now},
	}}
	r := New(searcher, WithClock(fixedClock(now)))

	snippets, err := r.Retrieve(context.Background(), "repo-1", "allocator", 5)
	require.NoError(t, err)
	require.Len(t, snippets, 2)

	assert.Equal(t, "alpha", snippets[0].ConversationID)
	assert.Equal(t, "zeta", snippets[1].ConversationID)
}
