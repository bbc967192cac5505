package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/katakuxiko/luminarag/internal/model"
)

// PgStore keeps chunks in Postgres with the pgvector extension and lets the
// database rank them by cosine distance.
type PgStore struct {
	db         *sql.DB
	collection string
	dim        int
}

func NewPgStore(ctx context.Context, conn, collection string, dim int) (*PgStore, error) {
	if dim <= 0 {
		return nil, errors.New("pgvector store requires a positive embedding dimension")
	}
	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(ctx, db, dim); err != nil {
		db.Close()
		return nil, err
	}
	return &PgStore{db: db, collection: collection, dim: dim}, nil
}

func (s *PgStore) Upsert(ctx context.Context, recs []Record) error {
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

func (s *PgStore) ReplaceFile(ctx context.Context, fileName string, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM lumina_chunks WHERE collection = $1 AND doc_name = $2
	`, s.collection, fileName); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", fileName, err)
	}
	if err := s.insert(ctx, tx, recs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PgStore) insert(ctx context.Context, tx *sql.Tx, recs []Record) error {
	for _, r := range recs {
		if len(r.Embedding) != s.dim {
			return fmt.Errorf("%w: %s has dimension %d, collection expects %d",
				model.ErrEmbedding, r.ID, len(r.Embedding), s.dim)
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata of %s: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO lumina_chunks (collection, chunk_id, doc_name, text, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6::vector)
			ON CONFLICT (collection, chunk_id) DO UPDATE
			SET doc_name = EXCLUDED.doc_name,
			    text = EXCLUDED.text,
			    metadata = EXCLUDED.metadata,
			    embedding = EXCLUDED.embedding
		`, s.collection, r.ID, r.FileName, r.Text, string(meta), floatsToPgVectorLiteral(r.Embedding))
		if err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	return nil
}

func (s *PgStore) Nearest(ctx context.Context, vec []float32, k int) ([]model.Hit, error) {
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, collection expects %d", model.ErrEmbedding, len(vec), s.dim)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, text, metadata, embedding <=> $2::vector AS distance
		FROM lumina_chunks
		WHERE collection = $1
		ORDER BY distance, chunk_id
		LIMIT $3
	`, s.collection, floatsToPgVectorLiteral(vec), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []model.Hit{}
	for rows.Next() {
		var (
			h        model.Hit
			meta     []byte
			distance float64
		)
		if err := rows.Scan(&h.ID, &h.Text, &meta, &distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &h.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", h.ID, err)
		}
		h.Score = 1 - distance
		res = append(res, h)
	}
	return res, rows.Err()
}

func (s *PgStore) Delete(ctx context.Context, ids []string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM lumina_chunks WHERE collection = $1 AND chunk_id = ANY($2)
	`, s.collection, pq.Array(ids))
	return err
}

func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM lumina_chunks WHERE collection = $1
	`, s.collection).Scan(&n)
	return n, err
}

func (s *PgStore) Close() error {
	return s.db.Close()
}

func floatsToPgVectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, f := range v {
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', 6, 32))
		if i < len(v)-1 {
			sb.WriteString(",")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
