// Package store persists Passages — the unit row of the knowledge base —
// in a SQLite database with a vector index (sqlite-vec) and a full-text
// index (FTS5) kept in sync via triggers.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vexrag/vexrag/errs"
)

func init() {
	sqlite_vec.Auto()
}

// Passage is one row of the passage store: a contextual chunk, its
// embedding, and the provenance fields carried alongside it.
type Passage struct {
	ChunkID          string
	ChunkIndex       int
	OriginalChunk    string
	ContextualChunk  string
	GeneratedContext string
	Embedding        []float32
	SourceFile       string
	SourceProject    string
	FilePath         string
	FileType         string
	ContentHash      string
	IndexedAt        time.Time
	LastUpdated      time.Time
	TokenCount       int
	TrustLevel       string
	TrustScore       float64
	SecurityRisk     string
}

// ScoredPassage is a Passage annotated with a retrieval-stage score.
type ScoredPassage struct {
	Passage
	Score float64
}

// Store wraps the SQLite database backing the passage table.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at dbPath and initializes the
// passages table plus its vec0/FTS5 companions.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.New(errs.StorageError, "store.New", fmt.Errorf("creating db directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, errs.New(errs.StorageError, "store.New", fmt.Errorf("opening database: %w", err))
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.New(errs.StorageError, "store.New", fmt.Errorf("pinging database: %w", err))
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, errs.New(errs.StorageError, "store.New", fmt.Errorf("creating schema: %w", err))
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, embeddingDim: embeddingDim}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying connection pool for callers that need direct
// access (migrations tooling, admin CLI commands).
func (s *Store) DB() *sql.DB { return s.db }

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int { return s.embeddingDim }

// SafeEquals builds a `column = '<escaped value>'` clause, doubling any
// single quotes in value per the SQL-99 escape convention. Go's type system
// closes the "non-string value" edge case the original guarded against at
// runtime: this function only accepts a string.
func SafeEquals(column, value string) string {
	escaped := strings.ReplaceAll(value, "'", "''")
	return fmt.Sprintf("%s = '%s'", column, escaped)
}

// HashForFilePath returns the content_hash currently stored for filePath,
// and false if no passage exists for it yet.
func (s *Store) HashForFilePath(ctx context.Context, filePath string) (string, bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT content_hash FROM passages WHERE file_path = ? LIMIT 1", filePath,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.New(errs.StorageError, "store.HashForFilePath", err)
	}
	return hash, true, nil
}

// CountByFilePath returns how many passages exist for filePath.
func (s *Store) CountByFilePath(ctx context.Context, filePath string) (int, error) {
	return s.CountRows(ctx, SafeEquals("file_path", filePath))
}

// CountRows returns the row count matching an optional where clause (empty
// string counts the whole table).
func (s *Store) CountRows(ctx context.Context, whereClause string) (int, error) {
	query := "SELECT COUNT(*) FROM passages"
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, errs.New(errs.StorageError, "store.CountRows", err)
	}
	return n, nil
}

// DeleteByFilePath removes every passage row (and its vector/FTS entries)
// for filePath, returning the number of passage rows removed. Used by the
// external delete_by_file operation; the Indexer's hash-change replacement
// uses ReplaceByFilePath instead, so the delete and the rewrite share one
// transaction.
func (s *Store) DeleteByFilePath(ctx context.Context, filePath string) (int64, error) {
	var n int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = deleteWhereTx(ctx, tx, SafeEquals("file_path", filePath))
		return err
	})
	return n, err
}

// DeleteByProject removes every passage row for sourceProject, returning
// the number of rows removed.
func (s *Store) DeleteByProject(ctx context.Context, sourceProject string) (int64, error) {
	var n int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = deleteWhereTx(ctx, tx, SafeEquals("source_project", sourceProject))
		return err
	})
	return n, err
}

// ReplaceByFilePath atomically deletes every existing row for filePath and
// inserts rows, in a single transaction — the hash-change path of
// index_document (§4.9 step 4).
func (s *Store) ReplaceByFilePath(ctx context.Context, filePath string, rows []Passage) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := deleteWhereTx(ctx, tx, SafeEquals("file_path", filePath)); err != nil {
			return err
		}
		return addTx(ctx, tx, rows)
	})
}

func deleteWhereTx(ctx context.Context, tx *sql.Tx, whereClause string) (int64, error) {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM vec_passages WHERE rowid IN (SELECT rowid FROM passages WHERE %s)", whereClause,
	)); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM passages WHERE "+whereClause)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Add inserts a batch of passages and their embeddings in a single
// transaction.
func (s *Store) Add(ctx context.Context, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return addTx(ctx, tx, passages)
	})
}

func addTx(ctx context.Context, tx *sql.Tx, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (
			chunk_id, chunk_index, original_chunk, contextual_chunk, generated_context,
			source_file, source_project, file_path, file_type, content_hash,
			indexed_at, last_updated, token_count, trust_level, trust_score, security_risk
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer insertStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx, "INSERT INTO vec_passages (rowid, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for _, p := range passages {
		res, err := insertStmt.ExecContext(ctx,
			p.ChunkID, p.ChunkIndex, p.OriginalChunk, p.ContextualChunk, p.GeneratedContext,
			p.SourceFile, p.SourceProject, p.FilePath, p.FileType, p.ContentHash,
			p.IndexedAt.UTC().Format(time.RFC3339), p.LastUpdated.UTC().Format(time.RFC3339),
			p.TokenCount, p.TrustLevel, p.TrustScore, p.SecurityRisk,
		)
		if err != nil {
			return err
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := vecStmt.ExecContext(ctx, rowID, serializeFloat32(p.Embedding)); err != nil {
			return err
		}
	}
	return nil
}

// VectorSearch returns the k nearest passages to queryEmbedding by cosine
// distance, optionally restricted by an equality whereClause (built with
// SafeEquals).
func (s *Store) VectorSearch(ctx context.Context, queryEmbedding []float32, k int, whereClause string) ([]ScoredPassage, error) {
	query := `
		SELECT p.chunk_id, p.chunk_index, p.original_chunk, p.contextual_chunk, p.generated_context,
			p.source_file, p.source_project, p.file_path, p.file_type, p.content_hash,
			p.indexed_at, p.last_updated, p.token_count, p.trust_level, p.trust_score, p.security_risk,
			v.distance
		FROM vec_passages v
		JOIN passages p ON p.rowid = v.rowid
		WHERE v.embedding MATCH ? AND k = ?`
	args := []any{serializeFloat32(queryEmbedding), k}
	if whereClause != "" {
		query += " AND " + whereClause
	}
	query += " ORDER BY v.distance"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.New(errs.StorageError, "store.VectorSearch", err)
	}
	defer rows.Close()

	var results []ScoredPassage
	for rows.Next() {
		var r ScoredPassage
		var distance float64
		if err := scanPassage(rows, &r.Passage, &distance); err != nil {
			return nil, errs.New(errs.StorageError, "store.VectorSearch", err)
		}
		r.Score = 1.0 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// FTSSearch performs a BM25 full-text search over contextual_chunk,
// optionally restricted by an equality whereClause.
func (s *Store) FTSSearch(ctx context.Context, queryText string, limit int, whereClause string) ([]ScoredPassage, error) {
	query := `
		SELECT p.chunk_id, p.chunk_index, p.original_chunk, p.contextual_chunk, p.generated_context,
			p.source_file, p.source_project, p.file_path, p.file_type, p.content_hash,
			p.indexed_at, p.last_updated, p.token_count, p.trust_level, p.trust_score, p.security_risk,
			f.rank
		FROM passages_fts f
		JOIN passages p ON p.rowid = f.rowid
		WHERE passages_fts MATCH ?`
	args := []any{queryText}
	if whereClause != "" {
		query += " AND " + whereClause
	}
	query += " ORDER BY f.rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.New(errs.StorageError, "store.FTSSearch", err)
	}
	defer rows.Close()

	var results []ScoredPassage
	for rows.Next() {
		var r ScoredPassage
		var rank float64
		if err := scanPassage(rows, &r.Passage, &rank); err != nil {
			return nil, errs.New(errs.StorageError, "store.FTSSearch", err)
		}
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// scanPassage scans the common passage-row column set plus one trailing
// float (distance or rank) shared by VectorSearch and FTSSearch.
func scanPassage(rows *sql.Rows, p *Passage, trailing *float64) error {
	var genContext sql.NullString
	var indexedAt, lastUpdated string
	if err := rows.Scan(
		&p.ChunkID, &p.ChunkIndex, &p.OriginalChunk, &p.ContextualChunk, &genContext,
		&p.SourceFile, &p.SourceProject, &p.FilePath, &p.FileType, &p.ContentHash,
		&indexedAt, &lastUpdated, &p.TokenCount, &p.TrustLevel, &p.TrustScore, &p.SecurityRisk,
		trailing,
	); err != nil {
		return err
	}
	p.GeneratedContext = genContext.String
	p.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	p.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for
// sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
