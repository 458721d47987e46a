package store

import "fmt"

// schemaSQL returns the DDL for the passages table plus its vec0 and FTS5
// companions. embeddingDim controls the vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS passages (
    chunk_id TEXT PRIMARY KEY,
    chunk_index INTEGER NOT NULL,
    original_chunk TEXT NOT NULL,
    contextual_chunk TEXT NOT NULL,
    generated_context TEXT,
    source_file TEXT NOT NULL,
    source_project TEXT NOT NULL,
    file_path TEXT NOT NULL,
    file_type TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    indexed_at DATETIME NOT NULL,
    last_updated DATETIME NOT NULL,
    token_count INTEGER NOT NULL,
    trust_level TEXT NOT NULL,
    trust_score REAL NOT NULL,
    security_risk TEXT NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_passages USING vec0(
    rowid INTEGER PRIMARY KEY,
    embedding float[%d] distance_metric=cosine
);

CREATE VIRTUAL TABLE IF NOT EXISTS passages_fts USING fts5(
    contextual_chunk,
    content='passages',
    content_rowid='rowid',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS passages_ai AFTER INSERT ON passages BEGIN
    INSERT INTO passages_fts(rowid, contextual_chunk) VALUES (new.rowid, new.contextual_chunk);
END;
CREATE TRIGGER IF NOT EXISTS passages_ad AFTER DELETE ON passages BEGIN
    INSERT INTO passages_fts(passages_fts, rowid, contextual_chunk) VALUES ('delete', old.rowid, old.contextual_chunk);
END;
CREATE TRIGGER IF NOT EXISTS passages_au AFTER UPDATE ON passages BEGIN
    INSERT INTO passages_fts(passages_fts, rowid, contextual_chunk) VALUES ('delete', old.rowid, old.contextual_chunk);
    INSERT INTO passages_fts(rowid, contextual_chunk) VALUES (new.rowid, new.contextual_chunk);
END;

CREATE INDEX IF NOT EXISTS idx_passages_file_path ON passages(file_path);
CREATE INDEX IF NOT EXISTS idx_passages_source_project ON passages(source_project);
CREATE INDEX IF NOT EXISTS idx_passages_content_hash ON passages(content_hash);
`, embeddingDim)
}
