package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ensureSchema creates the pgvector extension, the chunk table and its
// cosine ivfflat index.
func ensureSchema(ctx context.Context, db *sql.DB, dim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS lumina_chunks (
			collection TEXT NOT NULL,
			chunk_id   TEXT NOT NULL,
			doc_name   TEXT NOT NULL DEFAULT '',
			text       TEXT NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding  vector(%d) NOT NULL,
			PRIMARY KEY (collection, chunk_id)
		)`, dim),
		`CREATE INDEX IF NOT EXISTS lumina_chunks_doc_idx ON lumina_chunks (collection, doc_name)`,
		`DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_class c
				JOIN pg_namespace n ON n.oid=c.relnamespace
				WHERE c.relname='lumina_chunks_embedding_ivfflat_idx'
			) THEN
				EXECUTE 'CREATE INDEX lumina_chunks_embedding_ivfflat_idx ON lumina_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists=100)';
			END IF;
		END $$;`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}

	// ivfflat needs fresh statistics
	_, _ = db.ExecContext(ctx, `ANALYZE lumina_chunks`)
	return nil
}
