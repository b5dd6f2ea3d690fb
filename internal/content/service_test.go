package content

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/inklings/inklings/internal/graph"
	"github.com/inklings/inklings/internal/log"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(context.Context, string, string) ([]float32, error) {
	return s.vec, s.err
}

func TestCreateMemoRejectsEmptyDraft(t *testing.T) {
	svc := NewService(nil, &stubEmbedder{vec: []float32{1}}, nil, nil, log.NewNop())

	_, err := svc.CreateMemo(context.Background(), uuid.New(), Draft{})
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("err = %v, want ErrEmptyContent", err)
	}
}

func TestCreateMemoRejectedWhenEmbeddingFails(t *testing.T) {
	embedErr := errors.New("provider down")
	svc := NewService(nil, &stubEmbedder{err: embedErr}, nil, nil, log.NewNop())

	_, err := svc.CreateMemo(context.Background(), uuid.New(), Draft{Content: "a thought"})
	if !errors.Is(err, embedErr) {
		t.Fatalf("err = %v, want the embedding failure", err)
	}
}

func TestCreateReferenceWithoutFetcher(t *testing.T) {
	svc := NewService(nil, &stubEmbedder{vec: []float32{1}}, nil, nil, log.NewNop())
	if _, err := svc.CreateReference(context.Background(), uuid.New(), "https://example.com", graph.PrivacyPrivate); err == nil {
		t.Fatal("expected error without a fetcher")
	}
}

func TestBlendWithMissing(t *testing.T) {
	typeVec := []float32{1, 0}
	src := []float32{0, 1}
	dst := []float32{1, 1}

	approx := func(t *testing.T, got, want []float32) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("length %d, want %d", len(got), len(want))
		}
		for i := range want {
			if math.Abs(float64(got[i]-want[i])) > 1e-6 {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	}

	// All present: the standard 0.2/0.4/0.4 blend.
	approx(t, blendWithMissing(typeVec, src, dst), []float32{0.6, 0.8})

	// Missing target: weights renormalize to 1/3 and 2/3.
	approx(t, blendWithMissing(typeVec, src, nil),
		[]float32{1.0 / 3, 2.0 / 3})

	// Only the type vector: comes back unscaled.
	approx(t, blendWithMissing(typeVec, nil, nil), []float32{1, 0})
}
