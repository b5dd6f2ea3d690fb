package embedding

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"
)

// GenkitProvider adapts a Genkit ai.Embedder to the Provider boundary.
// OutputDimensionality is pinned to the configured dimension so every
// stored vector in a deployment shares one D regardless of the model's
// native size (Matryoshka truncation on Gemini embedders).
type GenkitProvider struct {
	embedder  ai.Embedder
	dimension int32
}

// NewGenkitProvider wraps embedder, truncating output to dimension.
func NewGenkitProvider(embedder ai.Embedder, dimension int32) *GenkitProvider {
	return &GenkitProvider{embedder: embedder, dimension: dimension}
}

// EmbedText implements Provider.
func (p *GenkitProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	dim := p.dimension
	resp, err := p.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	vec := resp.Embeddings[0].Embedding
	if len(vec) != int(p.dimension) {
		return nil, fmt.Errorf("embedder returned dimension %d, want %d", len(vec), p.dimension)
	}
	return vec, nil
}
