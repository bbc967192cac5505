// Package store keeps indexed chunks in a persistent collection and answers
// nearest-neighbour queries by text.
//
// An Index pairs a Backend (where records live) with an Embedder (how text
// becomes vectors). Every query result is a flat, best-first []model.Hit.
// The same embedding model must be used for the whole lifetime of a
// collection; nothing here can detect a model swap.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/katakuxiko/luminarag/internal/model"
)

const DefaultTopK = 5

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Record is one stored chunk.
type Record struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding"`
	Metadata  model.Metadata `json:"metadata"`
	FileName  string         `json:"file_name"`
}

// Backend is the persistent side of an Index. Mutations are durable when
// they return; Upsert is last-write-wins per id.
type Backend interface {
	Upsert(ctx context.Context, recs []Record) error
	// ReplaceFile drops every record of fileName and writes recs atomically.
	ReplaceFile(ctx context.Context, fileName string, recs []Record) error
	Nearest(ctx context.Context, vec []float32, k int) ([]model.Hit, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Options selects and addresses a backend.
type Options struct {
	Backend    string // bolt, sqlite, postgres, memory
	PersistDir string
	Collection string
	PgConn     string
	Dimension  int
}

// Open opens or creates the collection described by opts. Opening an
// existing collection reuses it.
func Open(ctx context.Context, opts Options, emb Embedder) (*Index, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", model.ErrValidation)
	}

	var (
		b   Backend
		err error
	)
	switch opts.Backend {
	case "", "bolt":
		if err = os.MkdirAll(opts.PersistDir, 0o755); err == nil {
			b, err = OpenBolt(filepath.Join(opts.PersistDir, "index.db"), opts.Collection)
		}
	case "sqlite":
		if err = os.MkdirAll(opts.PersistDir, 0o755); err == nil {
			b, err = OpenSQLite(ctx, filepath.Join(opts.PersistDir, "index.sqlite"), opts.Collection)
		}
	case "postgres":
		b, err = NewPgStore(ctx, opts.PgConn, opts.Collection, opts.Dimension)
	case "memory":
		b = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Backend, err)
	}
	return NewIndex(b, emb), nil
}

// Index is the chunk store used by ingestion and retrieval.
type Index struct {
	backend  Backend
	embedder Embedder
}

func NewIndex(b Backend, emb Embedder) *Index {
	return &Index{backend: b, embedder: emb}
}

// Add embeds and upserts chunks. ids, texts and metadatas must have equal
// lengths and ids must be unique and non-empty; anything else is
// ErrValidation. Nothing is written if embedding fails.
func (x *Index) Add(ctx context.Context, ids, texts []string, metadatas []model.Metadata) error {
	recs, err := x.records(ctx, ids, texts, metadatas)
	if err != nil {
		return err
	}
	return x.backend.Upsert(ctx, recs)
}

// Replace is Add that first removes every chunk previously stored for
// fileName, so a re-ingested document never leaves stale chunks behind.
func (x *Index) Replace(ctx context.Context, fileName string, ids, texts []string, metadatas []model.Metadata) error {
	if fileName == "" {
		return fmt.Errorf("%w: file name is required", model.ErrValidation)
	}
	recs, err := x.records(ctx, ids, texts, metadatas)
	if err != nil {
		return err
	}
	for i := range recs {
		recs[i].FileName = fileName
	}
	return x.backend.ReplaceFile(ctx, fileName, recs)
}

// RemoveFile drops every chunk stored for fileName.
func (x *Index) RemoveFile(ctx context.Context, fileName string) error {
	if fileName == "" {
		return fmt.Errorf("%w: file name is required", model.ErrValidation)
	}
	return x.backend.ReplaceFile(ctx, fileName, nil)
}

// Query returns the topK chunks nearest to text, best first. An empty
// collection yields an empty result.
func (x *Index) Query(ctx context.Context, text string, topK int) ([]model.Hit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vecs, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", model.ErrEmbedding, len(vecs))
	}
	hits, err := x.backend.Nearest(ctx, vecs[0], topK)
	if err != nil {
		return nil, fmt.Errorf("nearest: %w", err)
	}
	if hits == nil {
		hits = []model.Hit{}
	}
	return hits, nil
}

// DeleteAll removes the given ids; unknown ids are ignored.
func (x *Index) DeleteAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return x.backend.Delete(ctx, ids)
}

func (x *Index) Count(ctx context.Context) (int, error) { return x.backend.Count(ctx) }

func (x *Index) Close() error { return x.backend.Close() }

func (x *Index) records(ctx context.Context, ids, texts []string, metadatas []model.Metadata) ([]Record, error) {
	if len(ids) != len(texts) || len(ids) != len(metadatas) {
		return nil, fmt.Errorf("%w: %d ids, %d texts, %d metadatas",
			model.ErrValidation, len(ids), len(texts), len(metadatas))
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%w: empty id", model.ErrValidation)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", model.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vecs, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", model.ErrEmbedding, len(texts), len(vecs))
	}

	recs := make([]Record, len(ids))
	for i := range ids {
		recs[i] = Record{ID: ids[i], Text: texts[i], Embedding: vecs[i], Metadata: metadatas[i]}
		if name, ok := metadatas[i][model.MetaFileName].(string); ok {
			recs[i].FileName = name
		}
	}
	return recs, nil
}
