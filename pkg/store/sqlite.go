package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kcaldas/loom/pkg/codec"
	"github.com/kcaldas/loom/pkg/window"
)

// SqliteStore implements FileStore and ConversationStore using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	s := &SqliteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	s := &SqliteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS files (
			repo_id TEXT NOT NULL,
			path TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			content TEXT,
			artifact_id TEXT,
			mod_time INTEGER NOT NULL,
			PRIMARY KEY (repo_id, path)
		);

		CREATE INDEX IF NOT EXISTS idx_files_repo_modtime
		ON files(repo_id, mod_time DESC, path ASC);

		CREATE TABLE IF NOT EXISTS artifacts (
			id TEXT PRIMARY KEY,
			repo_id TEXT NOT NULL,
			path TEXT NOT NULL,
			strategy TEXT NOT NULL,
			has_metadata INTEGER NOT NULL DEFAULT 0,
			data BLOB NOT NULL,
			original_size INTEGER NOT NULL,
			compressed_size INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_artifacts_repo_path
		ON artifacts(repo_id, path);

		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			repo_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_repo
		ON conversations(repo_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			message_index INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE,
			UNIQUE(conversation_id, message_index)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, message_index);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// FileStore implementation

// UpsertFile inserts or replaces a file record.
func (s *SqliteStore) UpsertFile(ctx context.Context, record FileRecord) error {
	var content interface{}
	if !record.ContentOffloaded {
		content = record.Content
	}
	var artifactID interface{}
	if record.ArtifactID != "" {
		artifactID = record.ArtifactID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO files (repo_id, path, language, content, artifact_id, mod_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.RepoID,
		record.Path,
		record.Language,
		content,
		artifactID,
		record.ModTime.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	return nil
}

const candidateColumns = `
	f.path, f.language, f.content, f.mod_time,
	a.id, a.strategy, a.has_metadata, a.data, a.original_size, a.compressed_size`

// FetchByPaths returns candidate items in the caller-supplied path order.
// Paths not present in the store come back with neither content nor
// artifact, so the allocator records them as unresolvable drops.
func (s *SqliteStore) FetchByPaths(ctx context.Context, repoID string, paths []string) ([]window.CandidateItem, error) {
	items := make([]window.CandidateItem, 0, len(paths))
	for _, path := range paths {
		row := s.db.QueryRowContext(ctx, `
			SELECT `+candidateColumns+`
			FROM files f
			LEFT JOIN artifacts a ON a.id = f.artifact_id
			WHERE f.repo_id = ? AND f.path = ?`,
			repoID, path)

		item, err := scanCandidate(row)
		if err == sql.ErrNoRows {
			items = append(items, window.CandidateItem{
				Path:           path,
				ContentMissing: true,
				Class:          window.ClassRequested,
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch file %q: %w", path, err)
		}

		item.Class = window.ClassRequested
		items = append(items, item)
	}
	return items, nil
}

// FetchRecent returns up to limit candidates not named in excludePaths,
// most recently modified first, ties broken by ascending path.
func (s *SqliteStore) FetchRecent(ctx context.Context, repoID string, excludePaths []string, limit int) ([]window.CandidateItem, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM files f
		LEFT JOIN artifacts a ON a.id = f.artifact_id
		WHERE f.repo_id = ?`
	args := []interface{}{repoID}

	if len(excludePaths) > 0 {
		query += " AND f.path NOT IN (?" + strings.Repeat(", ?", len(excludePaths)-1) + ")"
		for _, p := range excludePaths {
			args = append(args, p)
		}
	}
	query += " ORDER BY f.mod_time DESC, f.path ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent files: %w", err)
	}
	defer rows.Close()

	items := []window.CandidateItem{}
	for rows.Next() {
		item, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent file: %w", err)
		}
		item.Class = window.ClassRecency
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent files: %w", err)
	}
	return items, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCandidate(row rowScanner) (window.CandidateItem, error) {
	var (
		item           window.CandidateItem
		content        sql.NullString
		modTime        int64
		artifactID     sql.NullString
		strategyName   sql.NullString
		hasMetadata    sql.NullBool
		data           []byte
		originalSize   sql.NullInt64
		compressedSize sql.NullInt64
	)

	err := row.Scan(
		&item.Path, &item.Language, &content, &modTime,
		&artifactID, &strategyName, &hasMetadata, &data, &originalSize, &compressedSize,
	)
	if err != nil {
		return window.CandidateItem{}, err
	}

	if content.Valid {
		item.Content = content.String
	} else {
		item.ContentMissing = true
	}
	item.ModTime = time.Unix(modTime, 0)

	if artifactID.Valid {
		strategy, err := codec.ParseStrategy(strategyName.String)
		if err != nil {
			return window.CandidateItem{}, fmt.Errorf("invalid strategy for artifact %q: %w", artifactID.String, err)
		}
		item.ArtifactID = artifactID.String
		item.Artifact = &codec.Artifact{
			Strategy:       strategy,
			Data:           data,
			OriginalSize:   int(originalSize.Int64),
			CompressedSize: int(compressedSize.Int64),
			HasMetadata:    hasMetadata.Bool,
		}
	}

	return item, nil
}

// SaveArtifact stores an artifact and links its file record to it.
func (s *SqliteStore) SaveArtifact(ctx context.Context, repoID, path string, artifact codec.Artifact) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op after a successful Commit.
	defer func() { _ = tx.Rollback() }()

	// Each file keeps exactly one artifact; superseded rows go with it.
	_, err = tx.ExecContext(ctx,
		"DELETE FROM artifacts WHERE repo_id = ? AND path = ?",
		repoID, path)
	if err != nil {
		return "", fmt.Errorf("failed to prune superseded artifacts: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artifacts (id, repo_id, path, strategy, has_metadata, data, original_size, compressed_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		repoID,
		path,
		artifact.Strategy.String(),
		artifact.HasMetadata,
		artifact.Data,
		artifact.OriginalSize,
		artifact.CompressedSize,
		time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE files SET artifact_id = ? WHERE repo_id = ? AND path = ?",
		id, repoID, path)
	if err != nil {
		return "", fmt.Errorf("failed to link artifact to file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// LoadArtifact resolves an artifact ID back to the stored bytes.
func (s *SqliteStore) LoadArtifact(ctx context.Context, artifactID string) (codec.Artifact, error) {
	var (
		strategyName   string
		hasMetadata    bool
		data           []byte
		originalSize   int
		compressedSize int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT strategy, has_metadata, data, original_size, compressed_size
		FROM artifacts WHERE id = ?`,
		artifactID).Scan(&strategyName, &hasMetadata, &data, &originalSize, &compressedSize)
	if err == sql.ErrNoRows {
		return codec.Artifact{}, fmt.Errorf("artifact %q not found", artifactID)
	}
	if err != nil {
		return codec.Artifact{}, fmt.Errorf("failed to load artifact: %w", err)
	}

	strategy, err := codec.ParseStrategy(strategyName)
	if err != nil {
		return codec.Artifact{}, fmt.Errorf("invalid strategy for artifact %q: %w", artifactID, err)
	}

	return codec.Artifact{
		Strategy:       strategy,
		Data:           data,
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
		HasMetadata:    hasMetadata,
	}, nil
}

// ConversationStore implementation

// CreateConversation starts a new conversation and returns its ID.
func (s *SqliteStore) CreateConversation(ctx context.Context, repoID, title string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversations (id, repo_id, title) VALUES (?, ?, ?)",
		id, repoID, title)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return id, nil
}

// SetTitle updates a conversation title.
func (s *SqliteStore) SetTitle(ctx context.Context, conversationID, title string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET title = ?, updated_at = datetime('now') WHERE id = ?",
		title, conversationID)
	if err != nil {
		return fmt.Errorf("failed to set conversation title: %w", err)
	}
	return nil
}

// SaveMessages replaces the message history of a conversation.
func (s *SqliteStore) SaveMessages(ctx context.Context, conversationID string, history []Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", conversationID)
	if err != nil {
		return fmt.Errorf("failed to clear old messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (conversation_id, message_index, role, content) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range history {
		if _, err := stmt.ExecContext(ctx, conversationID, i, msg.Role, msg.Content); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE conversations SET updated_at = datetime('now') WHERE id = ?",
		conversationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadMessages loads conversation history in order.
// Returns empty slice if the conversation doesn't exist.
func (s *SqliteStore) LoadMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content FROM messages WHERE conversation_id = ? ORDER BY message_index ASC",
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{} // Start with empty slice, not nil
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// ListConversations lists conversations for a repo, most recently updated
// first.
func (s *SqliteStore) ListConversations(ctx context.Context, repoID string) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_id, title, created_at, updated_at
		FROM conversations WHERE repo_id = ?
		ORDER BY updated_at DESC`,
		repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		var (
			c                    Conversation
			createdAt, updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.RepoID, &c.Title, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		c.CreatedAt = parseSqliteTime(createdAt)
		c.UpdatedAt = parseSqliteTime(updatedAt)
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return conversations, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *SqliteStore) DeleteConversation(ctx context.Context, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", conversationID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SearchMessages finds stored messages containing any of the given terms.
// Matching is a case-insensitive substring scan; no term yields no hits.
func (s *SqliteStore) SearchMessages(ctx context.Context, repoID string, terms []string, limit int) ([]MessageHit, error) {
	if len(terms) == 0 {
		return []MessageHit{}, nil
	}

	query := `
		SELECT m.conversation_id, c.title, m.message_index, m.role, m.content, c.updated_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.repo_id = ? AND (`
	args := []interface{}{repoID}
	for i, term := range terms {
		if i > 0 {
			query += " OR "
		}
		query += "m.content LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(term)+"%")
	}
	query += ") ORDER BY c.updated_at DESC, m.message_index ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	hits := []MessageHit{}
	for rows.Next() {
		var (
			hit       MessageHit
			updatedAt string
		)
		if err := rows.Scan(&hit.ConversationID, &hit.Title, &hit.MessageIndex, &hit.Role, &hit.Content, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message hit: %w", err)
		}
		hit.UpdatedAt = parseSqliteTime(updatedAt)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message hits: %w", err)
	}
	return hits, nil
}

func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(term)
}

func parseSqliteTime(value string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Verify SqliteStore implements all interfaces
var _ FileStore = (*SqliteStore)(nil)
var _ ConversationStore = (*SqliteStore)(nil)
