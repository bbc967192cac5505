package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/katakuxiko/luminarag/internal/chunker"
	"github.com/katakuxiko/luminarag/internal/logger"
	"github.com/katakuxiko/luminarag/internal/metrics"
	"github.com/katakuxiko/luminarag/internal/model"
	"github.com/katakuxiko/luminarag/internal/pdf"
)

// ChunkWriter is the write side of the index.
type ChunkWriter interface {
	Replace(ctx context.Context, fileName string, ids, texts []string, metadatas []model.Metadata) error
	DeleteAll(ctx context.Context, ids []string) error
}

// Ingestor turns uploaded PDFs into indexed chunks. A file name already
// processed in a session is skipped.
type Ingestor struct {
	extractor pdf.Extractor
	splitter  *chunker.Splitter
	index     ChunkWriter
}

func NewIngestor(ex pdf.Extractor, sp *chunker.Splitter, index ChunkWriter) *Ingestor {
	return &Ingestor{extractor: ex, splitter: sp, index: index}
}

// Ingest indexes one document. Extraction and embedding failures are
// reported in the result; only validation errors are returned.
func (in *Ingestor) Ingest(ctx context.Context, sess *Session, doc model.Document) (model.IngestResult, error) {
	sess.turn.Lock()
	defer sess.turn.Unlock()
	return in.ingest(ctx, sess, doc)
}

// IngestBatch indexes docs in order. A failed document does not stop the
// batch; a validation error does.
func (in *Ingestor) IngestBatch(ctx context.Context, sess *Session, docs []model.Document) ([]model.IngestResult, error) {
	sess.turn.Lock()
	defer sess.turn.Unlock()

	results := make([]model.IngestResult, 0, len(docs))
	for _, doc := range docs {
		res, err := in.ingest(ctx, sess, doc)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (in *Ingestor) ingest(ctx context.Context, sess *Session, doc model.Document) (res model.IngestResult, err error) {
	log := logger.FromContext(ctx).With("session", sess.ID, "file", doc.Name)
	res = model.IngestResult{FileName: doc.Name}
	defer func() {
		if err == nil {
			metrics.ObserveIngest(res)
		}
	}()

	if doc.Name == "" {
		err := fmt.Errorf("%w: document name is required", model.ErrValidation)
		return fail(res, err), err
	}
	if sess.Processed(doc.Name) {
		log.Debug("already processed, skipping")
		res.Status = model.StatusSkipped
		return res, nil
	}

	pages, err := in.extractor.Extract(ctx, doc.Name, doc.Data)
	if err != nil {
		log.Warn("extraction failed", "err", err)
		return fail(res, err), nil
	}

	chunks := in.splitter.Split(doc.Name, pages)
	if len(chunks) == 0 {
		log.Warn("no text extracted")
		return fail(res, fmt.Errorf("%w: %s", model.ErrNoChunks, doc.Name)), nil
	}

	ids := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	metas := make([]model.Metadata, len(chunks))
	for i, ch := range chunks {
		ids[i] = model.ChunkID(doc.Name, i)
		texts[i] = ch.Text
		metas[i] = ch.Metadata
	}

	if err := in.index.Replace(ctx, doc.Name, ids, texts, metas); err != nil {
		if errors.Is(err, model.ErrValidation) {
			return fail(res, err), err
		}
		log.Warn("indexing failed", "err", err)
		return fail(res, err), nil
	}

	sess.markProcessed(doc.Name, len(chunks))
	res.Status = model.StatusIndexed
	res.Chunks = len(chunks)
	log.Info("document indexed", "chunks", len(chunks))
	return res, nil
}

// Reset removes every chunk the session wrote and forgets its files, so
// the same names can be ingested again. It returns the number of ids
// deleted.
func (in *Ingestor) Reset(ctx context.Context, sess *Session) (int, error) {
	sess.turn.Lock()
	defer sess.turn.Unlock()

	ids := sess.chunkIDs()
	if err := in.index.DeleteAll(ctx, ids); err != nil {
		return 0, fmt.Errorf("reset session %s: %w", sess.ID, err)
	}
	sess.clearFiles()
	logger.FromContext(ctx).Info("session reset", "session", sess.ID, "chunks", len(ids))
	return len(ids), nil
}

func fail(res model.IngestResult, err error) model.IngestResult {
	res.Status = model.StatusFailed
	res.Kind = model.KindOf(err)
	res.Err = err
	return res
}
