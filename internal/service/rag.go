package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/katakuxiko/luminarag/internal/logger"
	"github.com/katakuxiko/luminarag/internal/metrics"
	"github.com/katakuxiko/luminarag/internal/model"
	"github.com/katakuxiko/luminarag/internal/websearch"
)

const (
	SystemPrompt = "You are a helpful assistant."

	SummarizerPrompt = "You are a helpful assistant. Given the following web search results, " +
		"answer the user's question as accurately and concisely as possible."
)

// BuildUserPrompt is the user message sent to the primary LLM.
func BuildUserPrompt(question, context string) string {
	return fmt.Sprintf("Context: %s\n\nQuestion: %s", context, question)
}

// BuildSummarizerPrompt is the user message sent to the web summarizer.
func BuildSummarizerPrompt(question, webResults string) string {
	return fmt.Sprintf("User Question: %s\n\nWeb Search Results:\n%s", question, webResults)
}

// ErrorAnswer renders a provider failure the way it is shown to the user.
func ErrorAnswer(provider string, err error) string {
	return fmt.Sprintf("[%s API Error] %v", provider, err)
}

type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]model.Hit, error)
}

type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error)
}

type RAGOptions struct {
	TopK          int
	WebSearch     bool
	MaxWebResults int
	// EmbedProvider labels retrieval failures, e.g. "OpenAI".
	EmbedProvider string
}

// RAGService answers questions from indexed documents, falling back to a
// web search when the index has nothing relevant.
type RAGService struct {
	index      Retriever
	llm        Completer
	summarizer Completer
	search     Searcher
	opts       RAGOptions
}

// NewRAGService wires the orchestrator. summarizer and search may be nil,
// which disables the web fallback.
func NewRAGService(index Retriever, llm, summarizer Completer, search Searcher, opts RAGOptions) *RAGService {
	if opts.EmbedProvider == "" {
		opts.EmbedProvider = "Embedding"
	}
	return &RAGService{index: index, llm: llm, summarizer: summarizer, search: search, opts: opts}
}

func (s *RAGService) webEnabled() bool {
	return s.opts.WebSearch && s.search != nil && s.summarizer != nil
}

// Ask runs one question through retrieval and generation. It never returns
// an error: provider failures come back as an error Answer. Either way the
// exchange is appended to the session history.
func (s *RAGService) Ask(ctx context.Context, sess *Session, question string) model.Answer {
	sess.turn.Lock()
	defer sess.turn.Unlock()

	log := logger.FromContext(ctx).With("session", sess.ID)
	log.Info("question received", "question", logger.Preview(question, 80))

	ans := s.answer(ctx, log, question)
	ans.Text = Sanitize(ans.Text)
	sess.appendTurn(question, ans.Text)
	metrics.ObserveAnswer(ans)

	if ans.Failed() {
		log.Error("answer failed", "path", ans.Path, "kind", ans.Kind, "err", ans.Err)
	} else {
		log.Info("answer ready", "path", ans.Path, "sources", len(ans.Sources))
	}
	return ans
}

func (s *RAGService) answer(ctx context.Context, log *slog.Logger, question string) model.Answer {
	hits, err := s.index.Query(ctx, question, s.opts.TopK)
	if err != nil {
		return failure(s.opts.EmbedProvider, model.PathContext, err)
	}

	if docContext := AssembleContext(hits); docContext != "" {
		log.Debug("state", "from", "retrieve", "to", "generate", "hits", len(hits))
		return s.generate(ctx, question, docContext, model.PathContext, hits)
	}

	if s.webEnabled() {
		log.Debug("state", "from", "retrieve", "to", "web_fallback")
		if ans, ok := s.webFallback(ctx, log, question); ok {
			return ans
		}
	}

	log.Debug("state", "to", "generate", "context", "empty")
	return s.generate(ctx, question, "", model.PathNoContext, nil)
}

func (s *RAGService) generate(ctx context.Context, question, docContext string, path model.AnswerPath, hits []model.Hit) model.Answer {
	text, err := s.llm.Complete(ctx, SystemPrompt, BuildUserPrompt(question, docContext))
	if err != nil {
		return failure(s.llm.Name(), path, err)
	}
	return model.Answer{Text: text, Path: path, Sources: hits}
}

// webFallback reports ok=false when search produced nothing usable, so the
// caller continues without context.
func (s *RAGService) webFallback(ctx context.Context, log *slog.Logger, question string) (model.Answer, bool) {
	results, err := s.search.Search(ctx, question, s.opts.MaxWebResults)
	if err != nil {
		log.Warn("web search failed", "err", err)
		metrics.ObserveSearchFailure()
		return model.Answer{}, false
	}

	formatted := websearch.FormatResults(results)
	if formatted == websearch.NoResults {
		log.Debug("web search returned nothing")
		return model.Answer{}, false
	}

	text, err := s.summarizer.Complete(ctx, SummarizerPrompt, BuildSummarizerPrompt(question, formatted))
	if err != nil {
		return failure(s.summarizer.Name(), model.PathWeb, err), true
	}
	return model.Answer{Text: text, Path: model.PathWeb}, true
}

func failure(provider string, path model.AnswerPath, err error) model.Answer {
	return model.Answer{
		Text: ErrorAnswer(provider, err),
		Path: path,
		Kind: model.KindOf(err),
		Err:  err,
	}
}
