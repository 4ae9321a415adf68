package tagging

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultEmbeddingModel is the OpenAI model used for content and prototype vectors.
const DefaultEmbeddingModel = string(openai.SmallEmbedding3)

// MaxEmbeddingInput bounds the characters sent to the embedding provider.
const MaxEmbeddingInput = 8000

// Embedder turns text into a vector. Calls are remote and fallible; callers
// handle failures, nothing retries inside the tagging engine.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder builds an embedder from an API key. An empty model means
// DefaultEmbeddingModel.
func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required for embeddings")
	}
	return newOpenAIEmbedder(openai.DefaultConfig(apiKey), model), nil
}

// NewOpenAIEmbedderWithConfig builds an embedder against a custom endpoint,
// e.g. an OpenAI-compatible gateway.
func NewOpenAIEmbedderWithConfig(cfg openai.ClientConfig, model string) *OpenAIEmbedder {
	return newOpenAIEmbedder(cfg, model)
}

func newOpenAIEmbedder(cfg openai.ClientConfig, model string) *OpenAIEmbedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(cfg), model: model}
}

// Model returns the embedding model name.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Embed returns the embedding of text truncated to MaxEmbeddingInput characters.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{truncateInput(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("create embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}

func truncateInput(text string) string {
	r := []rune(text)
	if len(r) <= MaxEmbeddingInput {
		return text
	}
	return string(r[:MaxEmbeddingInput])
}

// MockEmbedder is a deterministic Embedder for tests and dry runs. EmbedFunc,
// when set, replaces the default hash-derived vectors.
type MockEmbedder struct {
	EmbedFunc  func(ctx context.Context, text string) ([]float32, error)
	Dimensions int

	calls atomic.Int64
}

// NewMockEmbedder returns a mock producing 64-dimensional vectors.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dimensions: 64}
}

// Model identifies mock vectors in persisted lineage.
func (m *MockEmbedder) Model() string {
	return "mock-embedding"
}

// Embed returns a vector derived from the FNV hash of text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return deterministicVector(text, m.Dimensions), nil
}

// Calls reports how many times Embed ran.
func (m *MockEmbedder) Calls() int {
	return int(m.calls.Load())
}

func deterministicVector(text string, dims int) []float32 {
	if dims <= 0 {
		dims = 64
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dims)
	for i := range vec {
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		vec[i] = float32(seed%2000)/1000 - 1
	}
	return vec
}
