package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/katakuxiko/luminarag/internal/config"
	"github.com/katakuxiko/luminarag/internal/model"
)

// LLMClient talks to one OpenAI-compatible chat endpoint (DeepSeek, Gemini,
// LM Studio, ...).
type LLMClient struct {
	client      *openai.Client
	name        string
	model       string
	temperature float32
	timeout     time.Duration
}

func newOpenAIClient(p config.ProviderConfig, timeout time.Duration) *openai.Client {
	key := p.APIKey
	if key == "" {
		key = "not-needed"
	}
	oaiCfg := openai.DefaultConfig(key)
	if p.BaseURL != "" {
		oaiCfg.BaseURL = strings.TrimRight(p.BaseURL, "/")
	}
	oaiCfg.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(oaiCfg)
}

// NewLLMClient builds a chat client for provider p.
func NewLLMClient(p config.ProviderConfig, timeout time.Duration) *LLMClient {
	name := p.Name
	if name == "" {
		name = "LLM"
	}
	return &LLMClient{
		client:      newOpenAIClient(p, timeout),
		name:        name,
		model:       p.Model,
		temperature: 0.2,
		timeout:     timeout,
	}
}

// Name is the provider label used in error answers.
func (l *LLMClient) Name() string { return l.name }

// Complete sends a system + user message pair and returns the reply text.
// Transport errors, non-2xx responses and empty replies wrap ErrCompletion.
func (l *LLMClient) Complete(ctx context.Context, system, user string) (string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: l.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", model.ErrCompletion)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ListModels returns the models served by the endpoint.
func (l *LLMClient) ListModels(ctx context.Context) ([]openai.Model, error) {
	resp, err := l.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// EmbeddingClient embeds text through an OpenAI-compatible embeddings
// endpoint, batching inputs.
type EmbeddingClient struct {
	client  *openai.Client
	model   string
	batch   int
	timeout time.Duration
}

func NewEmbeddingClient(p config.ProviderConfig, batch int, timeout time.Duration) *EmbeddingClient {
	if batch <= 0 {
		batch = 64
	}
	return &EmbeddingClient{
		client:  newOpenAIClient(p, timeout),
		model:   p.Model,
		batch:   batch,
		timeout: timeout,
	}
}

// Embed returns one vector per text, in input order. Failures wrap
// ErrEmbedding.
func (e *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batch {
		end := min(start+e.batch, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *EmbeddingClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrEmbedding, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", model.ErrEmbedding, len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	vecs := make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", model.ErrEmbedding, i)
		}
		vecs[i] = d.Embedding
	}
	return vecs, nil
}
