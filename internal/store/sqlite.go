package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/katakuxiko/luminarag/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	collection TEXT NOT NULL,
	chunk_id   TEXT NOT NULL,
	file_name  TEXT NOT NULL DEFAULT '',
	text       TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (collection, chunk_id)
);
CREATE INDEX IF NOT EXISTS chunks_file_idx ON chunks (collection, file_name);
`

// SQLite stores a collection as rows of one table in an embedded database
// file. Vectors are little-endian float32 blobs; search is a full scan.
type SQLite struct {
	db         *sql.DB
	collection string
}

func OpenSQLite(ctx context.Context, path, collection string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLite{db: db, collection: collection}, nil
}

func (s *SQLite) Upsert(ctx context.Context, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit
	if err := s.insert(ctx, tx, recs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) ReplaceFile(ctx context.Context, fileName string, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection = ? AND file_name = ?`, s.collection, fileName); err != nil {
		return fmt.Errorf("deleting chunks of %s: %w", fileName, err)
	}
	if err := s.insert(ctx, tx, recs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) insert(ctx context.Context, tx *sql.Tx, recs []Record) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, chunk_id, file_name, text, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, chunk_id) DO UPDATE SET
			file_name = excluded.file_name,
			text = excluded.text,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata of %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, r.ID, r.FileName, r.Text, encodeVector(r.Embedding), string(meta)); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}
	return nil
}

func (s *SQLite) Nearest(ctx context.Context, vec []float32, k int) ([]model.Hit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, text, embedding, metadata
		FROM chunks WHERE collection = ?
		ORDER BY chunk_id
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var recs []Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			r    Record
			blob []byte
			meta string
		)
		if err := rows.Scan(&r.ID, &r.Text, &blob, &meta); err != nil {
			return nil, err
		}
		r.Embedding = decodeVector(blob)
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", r.ID, err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return rank(recs, vec, k)
}

func (s *SQLite) Delete(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunks WHERE collection = ? AND chunk_id = ?`, s.collection, id); err != nil {
			return fmt.Errorf("deleting %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection = ?`, s.collection).Scan(&n)
	return n, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
