package tagging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryVectorCache struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
	failSet bool
}

func newMemoryVectorCache() *memoryVectorCache {
	return &memoryVectorCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryVectorCache) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryVectorCache) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return redis.NewStatusResult("", errors.New("read only replica"))
	}
	m.data[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestCachedEmbedder(t *testing.T) {
	inner := NewMockEmbedder()
	store := newMemoryVectorCache()
	c := NewCachedEmbedder(inner, store, time.Hour, testLogger())
	ctx := context.Background()

	first, err := c.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if inner.Calls() != 1 {
		t.Errorf("second call should hit the cache, inner calls = %d", inner.Calls())
	}
	if len(first) != len(second) || first[3] != second[3] {
		t.Error("cached vector should round-trip")
	}
	for key, ttl := range store.ttls {
		if ttl != time.Hour {
			t.Errorf("key %s stored with ttl %v", key, ttl)
		}
	}
	if c.Model() != inner.Model() {
		t.Errorf("Model() = %q", c.Model())
	}
}

func TestCachedEmbedderFallsThroughOnCacheErrors(t *testing.T) {
	inner := NewMockEmbedder()
	store := newMemoryVectorCache()
	store.failGet = true
	store.failSet = true
	c := NewCachedEmbedder(inner, store, 0, testLogger())

	for i := 0; i < 2; i++ {
		if _, err := c.Embed(context.Background(), "hello"); err != nil {
			t.Fatalf("cache errors must not surface, got %v", err)
		}
	}
	if inner.Calls() != 2 {
		t.Errorf("inner embedder should serve every call, got %d", inner.Calls())
	}
}

func TestCachedEmbedderPropagatesEmbedErrors(t *testing.T) {
	inner := NewMockEmbedder()
	inner.EmbedFunc = func(context.Context, string) ([]float32, error) { return nil, errors.New("quota") }
	c := NewCachedEmbedder(inner, newMemoryVectorCache(), 0, testLogger())
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Error("expected inner error")
	}
}

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0.5, -1.25, 3}
	got, ok := decodeVector(encodeVector(vec))
	if !ok || len(got) != 3 || got[1] != -1.25 {
		t.Errorf("decodeVector = %v, %v", got, ok)
	}
	if _, ok := decodeVector([]byte{1, 2, 3}); ok {
		t.Error("truncated buffer should not decode")
	}
}

func TestTruncateInput(t *testing.T) {
	long := make([]rune, MaxEmbeddingInput+10)
	for i := range long {
		long[i] = 'x'
	}
	if got := []rune(truncateInput(string(long))); len(got) != MaxEmbeddingInput {
		t.Errorf("truncateInput length = %d", len(got))
	}
	if truncateInput("short") != "short" {
		t.Error("short input should be unchanged")
	}
}
