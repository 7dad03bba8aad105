// Package store persists files, binary artifacts and conversations.
//
// The assembly core never writes through these interfaces on its own; the
// engine owns indexing and conversation bookkeeping, and each interface can
// be backed by a different store without touching the core.
package store

import (
	"context"
	"time"

	"github.com/kcaldas/loom/pkg/codec"
	"github.com/kcaldas/loom/pkg/window"
)

// FileRecord is a source file as held by the store. Content may be empty
// with ContentOffloaded set when the text lives only as a binary artifact.
type FileRecord struct {
	RepoID           string
	Path             string
	Language         string
	Content          string
	ContentOffloaded bool
	ArtifactID       string
	ModTime          time.Time
}

// Message is one conversation turn.
type Message struct {
	Role    string
	Content string
}

// MessageHit is a stored message matched by a search, carried with enough
// conversation context to rank and display it.
type MessageHit struct {
	ConversationID string
	Title          string
	MessageIndex   int
	Role           string
	Content        string
	UpdatedAt      time.Time
}

// Conversation is stored chat metadata; messages are loaded separately.
type Conversation struct {
	ID        string
	RepoID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FileStore provides candidate items for the allocator and owns artifact
// identity. Artifact IDs are opaque strings, stable for the same stored
// content.
type FileStore interface {
	// UpsertFile inserts or replaces a file record.
	UpsertFile(ctx context.Context, record FileRecord) error

	// FetchByPaths returns candidate items for the given paths in the
	// caller-supplied order, marked ClassRequested. Unknown paths are
	// returned with neither content nor artifact so the allocator can
	// record them as unresolvable instead of failing the fetch.
	FetchByPaths(ctx context.Context, repoID string, paths []string) ([]window.CandidateItem, error)

	// FetchRecent returns up to limit candidate items not named in
	// excludePaths, marked ClassRecency, most recently modified first.
	FetchRecent(ctx context.Context, repoID string, excludePaths []string, limit int) ([]window.CandidateItem, error)

	// SaveArtifact stores a binary artifact for a file and links the file
	// record to it. Returns the artifact ID.
	SaveArtifact(ctx context.Context, repoID, path string, artifact codec.Artifact) (string, error)

	// LoadArtifact resolves an artifact ID back to the stored bytes.
	LoadArtifact(ctx context.Context, artifactID string) (codec.Artifact, error)
}

// ConversationStore persists chat history and supports the keyword
// retrieval layer.
type ConversationStore interface {
	// CreateConversation starts a new conversation and returns its ID.
	CreateConversation(ctx context.Context, repoID, title string) (string, error)

	// SetTitle updates a conversation title.
	SetTitle(ctx context.Context, conversationID, title string) error

	// SaveMessages replaces the message history of a conversation.
	SaveMessages(ctx context.Context, conversationID string, history []Message) error

	// LoadMessages loads conversation history in order. Returns an empty
	// slice (not nil) for an unknown conversation.
	LoadMessages(ctx context.Context, conversationID string) ([]Message, error)

	// ListConversations lists conversations for a repo, most recently
	// updated first.
	ListConversations(ctx context.Context, repoID string) ([]Conversation, error)

	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(ctx context.Context, conversationID string) error

	// SearchMessages returns stored messages containing any of the given
	// terms (case-insensitive substring match), most recently updated
	// conversation first. Ranking beyond that recency order is the
	// caller's concern.
	SearchMessages(ctx context.Context, repoID string, terms []string, limit int) ([]MessageHit, error)
}
