package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// VectorDim matches the schema's vector width.
const VectorDim = 384

// StaticProvider is a deterministic embedding provider for tests: the
// vector for a text depends only on the text, so identical inputs embed
// identically across runs. It records every call.
type StaticProvider struct {
	mu    sync.Mutex
	calls []string

	// Fail, when set, is returned from every EmbedText call.
	Fail error
}

// EmbedText derives a unit vector from a hash of text.
func (p *StaticProvider) EmbedText(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.calls = append(p.calls, text)
	p.mu.Unlock()

	if p.Fail != nil {
		return nil, p.Fail
	}
	return DeterministicVector(text), nil
}

// Calls returns the texts embedded so far.
func (p *StaticProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// DeterministicVector maps text to a stable unit vector. Similar texts
// do not get similar vectors; only equality is meaningful.
func DeterministicVector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, VectorDim)
	var norm float64
	for i := range vec {
		// xorshift over the seed, one value per element.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float32(int64(seed%2000)-1000) / 1000
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// EmbedFuncFor adapts DeterministicVector to the write path's embed
// callback signature.
func EmbedFuncFor() func(ctx context.Context, text, title string) ([]float32, error) {
	return func(_ context.Context, text, title string) ([]float32, error) {
		return DeterministicVector(text + "\x00" + title), nil
	}
}
