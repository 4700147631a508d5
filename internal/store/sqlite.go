package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/cosmiclasagnadev/zmem/internal/memory"
	"github.com/cosmiclasagnadev/zmem/internal/zerrors"
)

// SQLiteMetadataStore implements MetadataStore over a single-writer
// modernc.org/sqlite connection with WAL journaling and an FTS5 index kept
// in sync by triggers.
type SQLiteMetadataStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ MetadataStore = (*SQLiteMetadataStore)(nil)

const currentSchemaVersion = 1

// OpenSQLiteMetadataStore opens (creating if necessary) the metadata
// database at path, applying WAL/busy-timeout pragmas and the schema.
func OpenSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	dsn := path
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, zerrors.New(zerrors.Database, "create database directory", err)
		}
	} else {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, zerrors.New(zerrors.Database, "open database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, zerrors.New(zerrors.Database, "set pragma", err)
		}
	}

	store := &SQLiteMetadataStore{db: db, path: path}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteMetadataStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS memory_items (
		id            TEXT PRIMARY KEY,
		type          TEXT NOT NULL,
		title         TEXT NOT NULL,
		content       TEXT NOT NULL,
		summary       TEXT NOT NULL DEFAULT '',
		source        TEXT NOT NULL,
		scope         TEXT NOT NULL,
		workspace     TEXT NOT NULL,
		tags          TEXT NOT NULL DEFAULT '[]',
		importance    REAL NOT NULL DEFAULT 0.5,
		status        TEXT NOT NULL,
		supersedes_id TEXT,
		content_hash  TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memory_items_workspace_source ON memory_items(workspace, source);
	CREATE INDEX IF NOT EXISTS idx_memory_items_workspace_status ON memory_items(workspace, status);

	CREATE TABLE IF NOT EXISTS content_chunks (
		id          TEXT PRIMARY KEY,
		memory_id   TEXT NOT NULL REFERENCES memory_items(id),
		seq         INTEGER NOT NULL,
		pos         INTEGER NOT NULL,
		token_count INTEGER NOT NULL,
		text        TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		deleted_at  TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_content_chunks_memory ON content_chunks(memory_id);

	CREATE TABLE IF NOT EXISTS chunk_embeddings (
		chunk_id    TEXT PRIMARY KEY REFERENCES content_chunks(id),
		embedded_at TIMESTAMP NOT NULL,
		model       TEXT NOT NULL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS item_fts USING fts5(
		item_id UNINDEXED,
		title,
		content,
		tags,
		tokenize='unicode61'
	);

	CREATE TRIGGER IF NOT EXISTS trg_items_ai AFTER INSERT ON memory_items
	WHEN NEW.status = 'active'
	BEGIN
		INSERT INTO item_fts(item_id, title, content, tags) VALUES (NEW.id, NEW.title, NEW.content, NEW.tags);
	END;

	CREATE TRIGGER IF NOT EXISTS trg_items_activated AFTER UPDATE OF status ON memory_items
	WHEN NEW.status = 'active' AND OLD.status != 'active'
	BEGIN
		DELETE FROM item_fts WHERE item_id = NEW.id;
		INSERT INTO item_fts(item_id, title, content, tags) VALUES (NEW.id, NEW.title, NEW.content, NEW.tags);
	END;

	CREATE TRIGGER IF NOT EXISTS trg_items_deactivated AFTER UPDATE OF status ON memory_items
	WHEN OLD.status = 'active' AND NEW.status != 'active'
	BEGIN
		DELETE FROM item_fts WHERE item_id = NEW.id;
	END;

	CREATE TRIGGER IF NOT EXISTS trg_items_content_resync AFTER UPDATE OF title, content, tags ON memory_items
	WHEN NEW.status = 'active'
	BEGIN
		DELETE FROM item_fts WHERE item_id = NEW.id;
		INSERT INTO item_fts(item_id, title, content, tags) VALUES (NEW.id, NEW.title, NEW.content, NEW.tags);
	END;

	CREATE TRIGGER IF NOT EXISTS trg_items_ad AFTER DELETE ON memory_items
	BEGIN
		DELETE FROM item_fts WHERE item_id = OLD.id;
	END;

	INSERT OR IGNORE INTO schema_migrations(version) VALUES (1);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return zerrors.New(zerrors.Database, "apply schema", err)
	}
	return nil
}

func marshalTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	raw, _ := json.Marshal(tags)
	return string(raw)
}

func unmarshalTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	return tags
}

// InsertPending inserts a new pending item and its chunks in one
// transaction.
func (s *SQLiteMetadataStore) InsertPending(ctx context.Context, item *memory.Item, chunks []*memory.Chunk) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", zerrors.New(zerrors.Database, "store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", zerrors.New(zerrors.Database, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	item.Status = memory.StatusPending
	ts := now()
	item.CreatedAt = ts
	item.UpdatedAt = ts

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memory_items
			(id, type, title, content, summary, source, scope, workspace, tags, importance, status, supersedes_id, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Type), item.Title, item.Content, item.Summary, item.Source,
		string(item.Scope), item.Workspace, marshalTags(item.Tags), item.Importance,
		string(item.Status), nullable(item.SupersedesID), item.ContentHash, ts, ts,
	)
	if err != nil {
		return "", zerrors.New(zerrors.Database, "insert memory item", err)
	}

	for _, c := range chunks {
		c.MemoryID = item.ID
		c.CreatedAt = ts
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO content_chunks (id, memory_id, seq, pos, token_count, text, created_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
			c.ID, c.MemoryID, c.Seq, c.Pos, c.TokenCount, c.Text, ts,
		); err != nil {
			return "", zerrors.New(zerrors.Database, "insert chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", zerrors.New(zerrors.Database, "commit transaction", err)
	}
	return item.ID, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// SaveChunkEmbeddings records which model embedded which chunk.
func (s *SQLiteMetadataStore) SaveChunkEmbeddings(ctx context.Context, embeddings []memory.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zerrors.New(zerrors.Database, "store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zerrors.New(zerrors.Database, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range embeddings {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO chunk_embeddings (chunk_id, embedded_at, model) VALUES (?, ?, ?)`,
			e.ChunkID, e.EmbeddedAt, e.Model,
		); err != nil {
			return zerrors.New(zerrors.Database, "insert chunk embedding", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return zerrors.New(zerrors.Database, "commit transaction", err)
	}
	return nil
}

// ActivateItem transitions a pending item to active, archiving the
// superseded item in the same transaction.
func (s *SQLiteMetadataStore) ActivateItem(ctx context.Context, itemID, supersedesID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zerrors.New(zerrors.Database, "store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zerrors.New(zerrors.Database, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	res, err := tx.ExecContext(ctx,
		`UPDATE memory_items SET status = ?, updated_at = ? WHERE id = ?`,
		string(memory.StatusActive), ts, itemID)
	if err != nil {
		return zerrors.New(zerrors.Database, "activate item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return zerrors.New(zerrors.NotFound, fmt.Sprintf("item %s not found", itemID), nil)
	}

	if supersedesID != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE memory_items SET status = ?, updated_at = ? WHERE id = ?`,
			string(memory.StatusArchived), ts, supersedesID); err != nil {
			return zerrors.New(zerrors.Database, "archive superseded item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return zerrors.New(zerrors.Database, "commit transaction", err)
	}
	return nil
}

// DeletePendingItem removes a pending item and its chunks.
func (s *SQLiteMetadataStore) DeletePendingItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zerrors.New(zerrors.Database, "store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zerrors.New(zerrors.Database, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_embeddings WHERE chunk_id IN (SELECT id FROM content_chunks WHERE memory_id = ?)`, itemID); err != nil {
		return zerrors.New(zerrors.Database, "delete pending chunk embeddings", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM content_chunks WHERE memory_id = ?`, itemID); err != nil {
		return zerrors.New(zerrors.Database, "delete pending chunks", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM memory_items WHERE id = ? AND status = ?`, itemID, string(memory.StatusPending))
	if err != nil {
		return zerrors.New(zerrors.Database, "delete pending item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return zerrors.New(zerrors.NotFound, fmt.Sprintf("pending item %s not found", itemID), nil)
	}

	return tx.Commit()
}

func scanItem(row interface {
	Scan(dest ...any) error
}) (*memory.Item, error) {
	var item memory.Item
	var tags string
	var supersedesID sql.NullString
	var itemType, scope, status string
	if err := row.Scan(
		&item.ID, &itemType, &item.Title, &item.Content, &item.Summary, &item.Source,
		&scope, &item.Workspace, &tags, &item.Importance, &status, &supersedesID,
		&item.ContentHash, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.Type = memory.Type(itemType)
	item.Scope = memory.Scope(scope)
	item.Status = memory.Status(status)
	item.SupersedesID = supersedesID.String
	item.Tags = unmarshalTags(tags)
	return &item, nil
}

const itemColumns = `id, type, title, content, summary, source, scope, workspace, tags, importance, status, supersedes_id, content_hash, created_at, updated_at`

// GetItem returns an item by ID regardless of status.
func (s *SQLiteMetadataStore) GetItem(ctx context.Context, id string) (*memory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, zerrors.New(zerrors.Database, "store is closed", nil)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM memory_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, zerrors.New(zerrors.NotFound, fmt.Sprintf("memory %s not found", id), nil)
	}
	if err != nil {
		return nil, zerrors.New(zerrors.Database, "query item", err)
	}
	return item, nil
}

// GetActiveBySource returns the active item for a (workspace, source)
// pair, or nil if none exists.
func (s *SQLiteMetadataStore) GetActiveBySource(ctx context.Context, workspace, source string) (*memory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, zerrors.New(zerrors.Database, "store is closed", nil)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM memory_items WHERE workspace = ? AND source = ? AND status = ?`,
		workspace, source, string(memory.StatusActive))
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, zerrors.New(zerrors.Database, "query active item by source", err)
	}
	return item, nil
}

// ListActiveSourcesByWorkspace returns source -> content hash for every
// active item in a workspace.
func (s *SQLiteMetadataStore) ListActiveSourcesByWorkspace(ctx context.Context, workspace string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, zerrors.New(zerrors.Database, "store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, content_hash FROM memory_items WHERE workspace = ? AND status = ?`,
		workspace, string(memory.StatusActive))
	if err != nil {
		return nil, zerrors.New(zerrors.Database, "query active sources", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var source, hash string
		if err := rows.Scan(&source, &hash); err != nil {
			return nil, zerrors.New(zerrors.Database, "scan active source", err)
		}
		result[source] = hash
	}
	return result, rows.Err()
}

// List returns items matching filter, newest first.
func (s *SQLiteMetadataStore) List(ctx context.Context, filter ListFilter) ([]*memory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, zerrors.New(zerrors.Database, "store is closed", nil)
	}

	var clauses []string
	var args []any

	if filter.Workspace != "" {
		clauses = append(clauses, "workspace = ?")
		args = append(args, filter.Workspace)
	}

	statuses := []string{string(memory.StatusActive)}
	if filter.IncludeSuperseded {
		statuses = append(statuses, string(memory.StatusArchived))
	}
	clauses = append(clauses, "status IN ("+placeholders(len(statuses))+")")
	for _, st := range statuses {
		args = append(args, st)
	}

	if len(filter.Scopes) > 0 {
		for _, sc := range filter.Scopes {
			args = append(args, string(sc))
		}
		clauses = append(clauses, "scope IN ("+placeholders(len(filter.Scopes))+")")
	}

	if len(filter.Types) > 0 {
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
		clauses = append(clauses, "type IN ("+placeholders(len(filter.Types))+")")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + itemColumns + ` FROM memory_items`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, zerrors.New(zerrors.Database, "query items", err)
	}
	defer rows.Close()

	var items []*memory.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, zerrors.New(zerrors.Database, "scan item", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ",")
}

// SoftDelete marks an item deleted.
func (s *SQLiteMetadataStore) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zerrors.New(zerrors.Database, "store is closed", nil)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE memory_items SET status = ?, updated_at = ? WHERE id = ?`,
		string(memory.StatusDeleted), now(), id)
	if err != nil {
		return zerrors.New(zerrors.Database, "soft delete item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return zerrors.New(zerrors.NotFound, fmt.Sprintf("memory %s not found", id), nil)
	}
	return nil
}

// GetChunksByMemory returns all non-deleted chunks for a memory item.
func (s *SQLiteMetadataStore) GetChunksByMemory(ctx context.Context, memoryID string) ([]*memory.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, zerrors.New(zerrors.Database, "store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, memory_id, seq, pos, token_count, text, created_at, deleted_at
		 FROM content_chunks WHERE memory_id = ? AND deleted_at IS NULL ORDER BY seq`,
		memoryID)
	if err != nil {
		return nil, zerrors.New(zerrors.Database, "query chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetChunks returns chunks by ID, skipping missing ones.
func (s *SQLiteMetadataStore) GetChunks(ctx context.Context, ids []string) ([]*memory.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, zerrors.New(zerrors.Database, "store is closed", nil)
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT id, memory_id, seq, pos, token_count, text, created_at, deleted_at
	          FROM content_chunks WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, zerrors.New(zerrors.Database, "query chunks by id", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]*memory.Chunk, error) {
	var chunks []*memory.Chunk
	for rows.Next() {
		var c memory.Chunk
		var deletedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.MemoryID, &c.Seq, &c.Pos, &c.TokenCount, &c.Text, &c.CreatedAt, &deletedAt); err != nil {
			return nil, zerrors.New(zerrors.Database, "scan chunk", err)
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			c.DeletedAt = &t
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// ReplaceChunks tombstones every existing non-deleted chunk for itemID,
// inserts newChunks, and advances the item's updated_at without touching
// its status.
func (s *SQLiteMetadataStore) ReplaceChunks(ctx context.Context, itemID string, newChunks []*memory.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zerrors.New(zerrors.Database, "store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zerrors.New(zerrors.Database, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunk_embeddings WHERE chunk_id IN (SELECT id FROM content_chunks WHERE memory_id = ? AND deleted_at IS NULL)`,
		itemID); err != nil {
		return zerrors.New(zerrors.Database, "delete stale chunk embeddings", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE content_chunks SET deleted_at = ? WHERE memory_id = ? AND deleted_at IS NULL`,
		ts, itemID); err != nil {
		return zerrors.New(zerrors.Database, "tombstone stale chunks", err)
	}

	for _, c := range newChunks {
		c.MemoryID = itemID
		c.CreatedAt = ts
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO content_chunks (id, memory_id, seq, pos, token_count, text, created_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
			c.ID, c.MemoryID, c.Seq, c.Pos, c.TokenCount, c.Text, ts,
		); err != nil {
			return zerrors.New(zerrors.Database, "insert replacement chunk", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE memory_items SET updated_at = ? WHERE id = ?`, ts, itemID); err != nil {
		return zerrors.New(zerrors.Database, "advance item updated_at", err)
	}

	return tx.Commit()
}

// LexicalSearch runs an FTS5 MATCH expression over item_fts (title,
// content, tags), scoped to the requested workspace and scopes. Only
// active items carry an item_fts row, so results never include pending,
// archived, or deleted items.
func (s *SQLiteMetadataStore) LexicalSearch(ctx context.Context, matchExpr string, opts SearchOptions) ([]LexicalHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, zerrors.New(zerrors.Database, "store is closed", nil)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 30
	}

	args := []any{matchExpr}
	query := `
		SELECT f.item_id, bm25(item_fts) AS score
		FROM item_fts f
		JOIN memory_items m ON m.id = f.item_id
		WHERE item_fts MATCH ?`
	if opts.Workspace != "" {
		query += " AND m.workspace = ?"
		args = append(args, opts.Workspace)
	}
	if len(opts.Scopes) > 0 {
		for _, sc := range opts.Scopes {
			args = append(args, string(sc))
		}
		query += " AND m.scope IN (" + placeholders(len(opts.Scopes)) + ")"
	}
	query += " ORDER BY score LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, zerrors.New(zerrors.Database, "lexical search", err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var itemID string
		var rawScore float64
		if err := rows.Scan(&itemID, &rawScore); err != nil {
			return nil, zerrors.New(zerrors.Database, "scan lexical hit", err)
		}
		hits = append(hits, LexicalHit{ItemID: itemID, Score: 1.0 / (1.0 + (-rawScore))})
	}
	return hits, rows.Err()
}

// ArchivedKeywordSearch runs a LIKE fallback over archived items, surfacing
// one hit per matching item.
func (s *SQLiteMetadataStore) ArchivedKeywordSearch(ctx context.Context, keyword string, opts SearchOptions) ([]LexicalHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, zerrors.New(zerrors.Database, "store is closed", nil)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 30
	}

	like := "%" + keyword + "%"
	args := []any{string(memory.StatusArchived), like, like}
	query := `
		SELECT m.id FROM memory_items m
		WHERE m.status = ? AND (m.title LIKE ? OR m.content LIKE ?)`
	if opts.Workspace != "" {
		query += " AND m.workspace = ?"
		args = append(args, opts.Workspace)
	}
	query += " ORDER BY m.updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, zerrors.New(zerrors.Database, "archived keyword search", err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return nil, zerrors.New(zerrors.Database, "scan archived hit", err)
		}
		hits = append(hits, LexicalHit{ItemID: itemID, Score: 0.35})
	}
	return hits, rows.Err()
}

// CountByStatus returns the number of items per status.
func (s *SQLiteMetadataStore) CountByStatus(ctx context.Context) (map[memory.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, zerrors.New(zerrors.Database, "store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM memory_items GROUP BY status`)
	if err != nil {
		return nil, zerrors.New(zerrors.Database, "count by status", err)
	}
	defer rows.Close()

	counts := make(map[memory.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, zerrors.New(zerrors.Database, "scan status count", err)
		}
		counts[memory.Status(status)] = count
	}
	return counts, rows.Err()
}

// Close closes the underlying database handle after a final WAL
// checkpoint.
func (s *SQLiteMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}
