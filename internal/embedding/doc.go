// Package embedding turns arbitrary text into fixed-dimension vectors.
//
// The package has three layers:
//
//   - Provider: the external embedding boundary. A Provider embeds one
//     string at a time; the genkit adapter in genkit.go is the production
//     implementation, and RateLimited wraps any Provider with a token
//     bucket so a burst of writes cannot saturate the upstream model.
//
//   - Cache: a bounded LRU over (text, title) pairs. The cache is an
//     explicit object constructed once at process start and injected into
//     the Engine; a changed text is a different key, never a stale hit,
//     so entries are never invalidated.
//
//   - Engine: chunk-and-average. Long text is split into overlapping
//     token windows (Chunk), each window is embedded through the
//     Provider, and the element-wise mean is the document vector. A
//     non-empty title contributes one extra chunk, which gives short
//     documents a meaningful title weight.
//
// Embedding is the single long-latency call in the write path. Engine
// deduplicates concurrent requests for the same (text, title) pair via
// singleflight, so the provider is invoked at most once per unique pair.
package embedding
