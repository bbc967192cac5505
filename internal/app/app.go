// Package app assembles the pipeline from configuration. The HTTP server
// and the CLI share it.
package app

import (
	"context"
	"fmt"

	"github.com/katakuxiko/luminarag/internal/chunker"
	"github.com/katakuxiko/luminarag/internal/config"
	"github.com/katakuxiko/luminarag/internal/pdf"
	"github.com/katakuxiko/luminarag/internal/service"
	"github.com/katakuxiko/luminarag/internal/store"
	"github.com/katakuxiko/luminarag/internal/websearch"
)

type App struct {
	Config     *config.Config
	Index      *store.Index
	LLM        *service.LLMClient
	Summarizer *service.LLMClient
	Embedder   store.Embedder
	Search     *websearch.Client
	RAG        *service.RAGService
	Ingestor   *service.Ingestor
	Sessions   *service.Sessions
}

// Build wires every component. The caller owns Close.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	return BuildWithEmbedder(ctx, cfg, service.NewEmbeddingClient(cfg.Embed, cfg.EmbedBatch, cfg.RequestTimeout))
}

// BuildWithEmbedder is Build with a caller-supplied embedder.
func BuildWithEmbedder(ctx context.Context, cfg *config.Config, emb store.Embedder) (*App, error) {
	extractor, err := pdf.New(cfg.PDFExtractor)
	if err != nil {
		return nil, err
	}

	idx, err := store.Open(ctx, store.Options{
		Backend:    cfg.Store.Backend,
		PersistDir: cfg.Store.PersistDir,
		Collection: cfg.Store.Collection,
		PgConn:     cfg.Store.PgConn,
		Dimension:  cfg.EmbedDim,
	}, emb)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	a := &App{
		Config:     cfg,
		Index:      idx,
		LLM:        service.NewLLMClient(cfg.LLM, cfg.RequestTimeout),
		Summarizer: service.NewLLMClient(cfg.Summarizer, cfg.RequestTimeout),
		Embedder:   emb,
		Sessions:   service.NewSessions(),
	}

	var (
		summarizer service.Completer
		searcher   service.Searcher
	)
	if cfg.WebSearch.Enabled {
		a.Search = websearch.New(cfg.WebSearch.BaseURL, cfg.WebSearch.RatePerSec, cfg.RequestTimeout)
		summarizer, searcher = a.Summarizer, a.Search
	}

	a.RAG = service.NewRAGService(idx, a.LLM, summarizer, searcher, service.RAGOptions{
		TopK:          cfg.TopK,
		WebSearch:     cfg.WebSearch.Enabled,
		MaxWebResults: cfg.WebSearch.MaxResults,
		EmbedProvider: cfg.Embed.Name,
	})

	splitter := chunker.New(
		chunker.WithChunkSize(cfg.Chunk.Size),
		chunker.WithOverlap(cfg.Chunk.Overlap),
	)
	a.Ingestor = service.NewIngestor(extractor, splitter, idx)
	return a, nil
}

func (a *App) Close() error {
	return a.Index.Close()
}
