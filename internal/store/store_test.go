package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katakuxiko/luminarag/internal/model"
)

// letterEmbedder maps text onto letter frequencies, which is enough for
// similarity ordering in tests.
type letterEmbedder struct {
	calls int
	err   error
}

func (e *letterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 26)
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		out[i] = v
	}
	return out, nil
}

func meta(file string) model.Metadata {
	return model.Metadata{model.MetaFileName: file, model.MetaSourceType: "pdf"}
}

type backendFactory struct {
	name string
	open func(t *testing.T, dir string) Backend
}

func factories() []backendFactory {
	return []backendFactory{
		{"memory", func(t *testing.T, _ string) Backend { return NewMemory() }},
		{"bolt", func(t *testing.T, dir string) Backend {
			b, err := OpenBolt(filepath.Join(dir, "index.db"), "docs")
			require.NoError(t, err)
			return b
		}},
		{"sqlite", func(t *testing.T, dir string) Backend {
			b, err := OpenSQLite(context.Background(), filepath.Join(dir, "index.sqlite"), "docs")
			require.NoError(t, err)
			return b
		}},
	}
}

func TestIndex_Backends(t *testing.T) {
	ctx := context.Background()

	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			t.Run("empty collection", func(t *testing.T) {
				idx := NewIndex(f.open(t, t.TempDir()), &letterEmbedder{})
				defer idx.Close()

				hits, err := idx.Query(ctx, "anything", 5)
				require.NoError(t, err)
				assert.NotNil(t, hits)
				assert.Empty(t, hits)
			})

			t.Run("nearest first", func(t *testing.T) {
				idx := NewIndex(f.open(t, t.TempDir()), &letterEmbedder{})
				defer idx.Close()

				err := idx.Add(ctx,
					[]string{"a.pdf-0", "a.pdf-1", "a.pdf-2"},
					[]string{"zzzz zzzz", "aaaa bbbb", "aaaa cccc"},
					[]model.Metadata{meta("a.pdf"), meta("a.pdf"), meta("a.pdf")})
				require.NoError(t, err)

				hits, err := idx.Query(ctx, "aaaa bbbb", 2)
				require.NoError(t, err)
				require.Len(t, hits, 2)
				assert.Equal(t, "a.pdf-1", hits[0].ID)
				assert.Equal(t, "aaaa bbbb", hits[0].Text)
				assert.Equal(t, "a.pdf-2", hits[1].ID)
				assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
				assert.Equal(t, "a.pdf", hits[0].Metadata[model.MetaFileName])
			})

			t.Run("upsert is last write wins", func(t *testing.T) {
				idx := NewIndex(f.open(t, t.TempDir()), &letterEmbedder{})
				defer idx.Close()

				require.NoError(t, idx.Add(ctx, []string{"x-0"}, []string{"old"}, []model.Metadata{meta("x")}))
				require.NoError(t, idx.Add(ctx, []string{"x-0"}, []string{"new"}, []model.Metadata{meta("x")}))

				n, err := idx.Count(ctx)
				require.NoError(t, err)
				assert.Equal(t, 1, n)

				hits, err := idx.Query(ctx, "new", 5)
				require.NoError(t, err)
				require.Len(t, hits, 1)
				assert.Equal(t, "new", hits[0].Text)
			})

			t.Run("replace drops stale chunks of the file only", func(t *testing.T) {
				idx := NewIndex(f.open(t, t.TempDir()), &letterEmbedder{})
				defer idx.Close()

				require.NoError(t, idx.Replace(ctx, "a.pdf",
					[]string{"a.pdf-0", "a.pdf-1", "a.pdf-2"},
					[]string{"one", "two", "three"},
					[]model.Metadata{meta("a.pdf"), meta("a.pdf"), meta("a.pdf")}))
				require.NoError(t, idx.Replace(ctx, "b.pdf",
					[]string{"b.pdf-0"}, []string{"other"}, []model.Metadata{meta("b.pdf")}))

				require.NoError(t, idx.Replace(ctx, "a.pdf",
					[]string{"a.pdf-0"}, []string{"rewritten"}, []model.Metadata{meta("a.pdf")}))

				n, err := idx.Count(ctx)
				require.NoError(t, err)
				assert.Equal(t, 2, n)
			})

			t.Run("remove file", func(t *testing.T) {
				idx := NewIndex(f.open(t, t.TempDir()), &letterEmbedder{})
				defer idx.Close()

				require.NoError(t, idx.Replace(ctx, "a.pdf",
					[]string{"a.pdf-0", "a.pdf-1"}, []string{"one", "two"},
					[]model.Metadata{meta("a.pdf"), meta("a.pdf")}))
				require.NoError(t, idx.Replace(ctx, "b.pdf",
					[]string{"b.pdf-0"}, []string{"other"}, []model.Metadata{meta("b.pdf")}))

				require.NoError(t, idx.RemoveFile(ctx, "a.pdf"))

				hits, err := idx.Query(ctx, "one", 5)
				require.NoError(t, err)
				require.Len(t, hits, 1)
				assert.Equal(t, "b.pdf-0", hits[0].ID)
			})

			t.Run("delete all", func(t *testing.T) {
				idx := NewIndex(f.open(t, t.TempDir()), &letterEmbedder{})
				defer idx.Close()

				require.NoError(t, idx.Add(ctx,
					[]string{"a-0", "a-1", "b-0"},
					[]string{"one", "two", "three"},
					[]model.Metadata{meta("a"), meta("a"), meta("b")}))

				require.NoError(t, idx.DeleteAll(ctx, []string{"a-0", "a-1", "missing"}))

				n, err := idx.Count(ctx)
				require.NoError(t, err)
				assert.Equal(t, 1, n)
			})
		})
	}
}

func TestIndex_Validation(t *testing.T) {
	ctx := context.Background()
	emb := &letterEmbedder{}
	idx := NewIndex(NewMemory(), emb)

	tests := []struct {
		name  string
		ids   []string
		texts []string
		metas []model.Metadata
	}{
		{"length mismatch", []string{"a", "b"}, []string{"x"}, []model.Metadata{nil, nil}},
		{"metadata mismatch", []string{"a"}, []string{"x"}, nil},
		{"empty id", []string{""}, []string{"x"}, []model.Metadata{nil}},
		{"duplicate id", []string{"a", "a"}, []string{"x", "y"}, []model.Metadata{nil, nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := idx.Add(ctx, tt.ids, tt.texts, tt.metas)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
	assert.Zero(t, emb.calls, "validation happens before embedding")

	err := idx.Replace(ctx, "", []string{"a"}, []string{"x"}, []model.Metadata{nil})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestIndex_EmbeddingFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	idx := NewIndex(mem, &letterEmbedder{err: errors.Join(model.ErrEmbedding, errors.New("boom"))})

	err := idx.Add(ctx, []string{"a-0"}, []string{"text"}, []model.Metadata{meta("a")})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrEmbedding)

	n, _ := mem.Count(ctx)
	assert.Zero(t, n)

	_, err = idx.Query(ctx, "text", 3)
	assert.ErrorIs(t, err, model.ErrEmbedding)
}

// shortEmbedder produces 3-dimensional vectors, standing in for a swapped
// embedding model.
type shortEmbedder struct{}

func (shortEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()

	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			backend := f.open(t, t.TempDir())
			defer backend.Close()

			written := NewIndex(backend, &letterEmbedder{})
			require.NoError(t, written.Add(ctx, []string{"a.pdf-0"}, []string{"hello"}, []model.Metadata{meta("a.pdf")}))

			_, err := NewIndex(backend, shortEmbedder{}).Query(ctx, "hello", 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrEmbedding)
			assert.Contains(t, err.Error(), "a.pdf-0")
		})
	}
}

func TestBolt_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := Open(ctx, Options{Backend: "bolt", PersistDir: dir, Collection: "docs"}, &letterEmbedder{})
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, []string{"a.pdf-0"}, []string{"hello"}, []model.Metadata{{model.MetaPage: 3}}))
	require.NoError(t, idx.Close())

	idx, err = Open(ctx, Options{Backend: "bolt", PersistDir: dir, Collection: "docs"}, &letterEmbedder{})
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Query(ctx, "hello", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.pdf-0", hits[0].ID)
	// JSON round trip turns numbers into float64
	assert.Equal(t, float64(3), hits[0].Metadata[model.MetaPage])
}

func TestSQLite_PersistsPerCollection(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	docs, err := Open(ctx, Options{Backend: "sqlite", PersistDir: dir, Collection: "docs"}, &letterEmbedder{})
	require.NoError(t, err)
	require.NoError(t, docs.Add(ctx, []string{"a-0"}, []string{"hello"}, []model.Metadata{meta("a")}))
	require.NoError(t, docs.Close())

	other, err := Open(ctx, Options{Backend: "sqlite", PersistDir: dir, Collection: "other"}, &letterEmbedder{})
	require.NoError(t, err)
	n, err := other.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, other.Close())

	docs, err = Open(ctx, Options{Backend: "sqlite", PersistDir: dir, Collection: "docs"}, &letterEmbedder{})
	require.NoError(t, err)
	defer docs.Close()
	n, err = docs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Options{Backend: "memory"}, &letterEmbedder{})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = Open(ctx, Options{Backend: "chroma", Collection: "docs"}, &letterEmbedder{})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: "postgres", Collection: "docs", PgConn: "host=localhost"}, &letterEmbedder{})
	assert.Error(t, err, "zero dimension is rejected before dialing")
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestFloatsToPgVectorLiteral(t *testing.T) {
	assert.Equal(t, "[]", floatsToPgVectorLiteral(nil))
	assert.Equal(t, "[0.500000,-1.250000,2.000000]", floatsToPgVectorLiteral([]float32{0.5, -1.25, 2}))
}
